package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"regress/internal/fixture"
	"regress/internal/harness"
	"regress/internal/invoker"
	"regress/internal/observability"
	"regress/internal/shared/logging"
)

// newRootCommand builds the command tree. Output goes to stdout/stderr rather
// than the process streams so tests and CI wrappers can capture it.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "regress",
		Short: "Regression harness for the optimix compiler",
		Long: `regress runs the optimix compiler against a fixed set of example programs
and checks that every expected output fragment shows up on stdout.

Examples:
  regress                                  # built-in suite against ./optimix
  regress --compiler build/optimix         # test another binary
  regress --run '^fib' --json-out out.json # one fixture, JSON report`,
		Args:          noPositionalArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindConfig(v, cmd.Flags()); err != nil {
				return usageError(err)
			}
			cfg, err := loadAppConfig(v)
			if err != nil {
				return usageError(err)
			}
			return runSuite(cmd.Context(), cfg, stdout, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	registerFlags(rootCmd.Flags())

	rootCmd.AddCommand(newListCommand(stdout))
	rootCmd.AddCommand(newVersionCommand(stdout))
	return rootCmd
}

func noPositionalArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError(fmt.Errorf("unexpected arguments: %s", strings.Join(args, " ")))
	}
	return nil
}

func runSuite(ctx context.Context, cfg appConfig, stdout, stderr io.Writer) error {
	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: stderr,
	})

	compiler, err := resolveCompiler(cfg.Compiler)
	if err != nil {
		// Reported on stdout so it lands next to the fixture lines in CI logs.
		fmt.Fprintln(stdout, err)
		return &ExitCodeError{Code: exitCodeFor(err)}
	}

	fixtures, err := loadFixtures(cfg)
	if err != nil {
		return err
	}

	metrics, err := observability.NewMetricsCollector(observability.MetricsConfig{Enabled: cfg.MetricsOut != ""})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if cerr := metrics.Shutdown(context.Background()); cerr != nil {
			logger.Warn("failed to shut down metrics: %v", cerr)
		}
	}()

	inv := invoker.New(invoker.Config{
		Executable: compiler,
		Timeout:    cfg.Timeout,
		Logger:     logging.WithComponent(logger, "invoker"),
	})
	logger.Debug("using compiler %s with a %s budget per fixture", compiler, inv.Timeout())

	runner := harness.NewRunner(harness.Options{
		Invoker:     inv,
		ExamplesDir: cfg.ExamplesDir,
		Out:         stdout,
		Color:       useColor(cfg.NoColor, stdout),
		Logger:      logging.WithComponent(logger, "harness"),
		Metrics:     metrics,
	})
	summary := runner.Run(ctx, fixtures)

	// Report output is best effort; the exit status reflects the suite only.
	if err := writeOutputs(cfg, summary, metrics); err != nil {
		logger.Error("failed to write reports: %v", err)
	}

	if !summary.OK() {
		return &ExitCodeError{Code: exitFailed, Err: fmt.Errorf("%d of %d fixtures failed", summary.Failed(), summary.Total)}
	}
	return nil
}

func loadFixtures(cfg appConfig) ([]fixture.Fixture, error) {
	all := fixture.Default()
	if cfg.Fixtures != "" {
		loaded, err := fixture.LoadFile(cfg.Fixtures)
		if err != nil {
			return nil, err
		}
		all = loaded
	}
	return fixture.Select(all, cfg.Run, cfg.Tags)
}

func writeOutputs(cfg appConfig, summary *harness.RunSummary, metrics *observability.MetricsCollector) error {
	if cfg.JSONOut != "" || cfg.MarkdownOut != "" {
		report := harness.BuildReport(summary)
		if cfg.JSONOut != "" {
			data, err := report.ToJSON()
			if err != nil {
				return fmt.Errorf("encode json report: %w", err)
			}
			if err := writeFile(cfg.JSONOut, data); err != nil {
				return err
			}
		}
		if cfg.MarkdownOut != "" {
			if err := writeFile(cfg.MarkdownOut, []byte(report.ToMarkdown())); err != nil {
				return err
			}
		}
	}
	if cfg.MetricsOut != "" {
		if err := ensureDir(cfg.MetricsOut); err != nil {
			return err
		}
		if err := metrics.WriteTextfile(cfg.MetricsOut); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, contents []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// useColor enables ANSI colors only for terminals, unless disabled by flag
// or NO_COLOR.
func useColor(disabled bool, out io.Writer) bool {
	if disabled || color.NoColor {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func newListCommand(stdout io.Writer) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the fixtures that would run",
		Args:  noPositionalArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindConfig(v, cmd.Flags()); err != nil {
				return usageError(err)
			}
			cfg, err := loadAppConfig(v)
			if err != nil {
				return usageError(err)
			}
			fixtures, err := loadFixtures(cfg)
			if err != nil {
				return usageError(err)
			}
			for _, f := range fixtures {
				fmt.Fprintln(stdout, f.String())
			}
			return nil
		},
	}
	registerFlags(cmd.Flags())
	return cmd
}

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the harness version",
		Args:  noPositionalArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(stdout, "regress %s\n", appVersion())
			return nil
		},
	}
}
