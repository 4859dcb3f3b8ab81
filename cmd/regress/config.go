package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"regress/internal/harness"
	"regress/internal/invoker"
	harnesserrors "regress/internal/shared/errors"
)

const (
	envPrefix        = "REGRESS"
	configName       = "regress"
	defaultCompiler  = "./optimix"
	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
	flagCompiler     = "compiler"
	flagExamplesDir  = "examples-dir"
	flagTimeout      = "timeout"
	flagFixtures     = "fixtures"
	flagRun          = "run"
	flagTag          = "tag"
	flagJSONOut      = "json-out"
	flagMarkdownOut  = "md-out"
	flagMetricsOut   = "metrics-out"
	flagNoColor      = "no-color"
	flagLogLevel     = "log-level"
	flagLogFormat    = "log-format"
	flagConfig       = "config"
)

type appConfig struct {
	Compiler    string
	ExamplesDir string
	Timeout     time.Duration
	Fixtures    string
	Run         string
	Tags        []string
	JSONOut     string
	MarkdownOut string
	MetricsOut  string
	NoColor     bool
	LogLevel    string
	LogFormat   string
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String(flagCompiler, defaultCompiler, "Path to the compiler executable under test")
	flags.String(flagExamplesDir, harness.DefaultExamplesDir, "Directory containing fixture source files")
	flags.Duration(flagTimeout, invoker.DefaultTimeout, "Wall-clock budget for each compiler invocation")
	flags.String(flagFixtures, "", "YAML suite file to use instead of the built-in fixtures")
	flags.String(flagRun, "", "Run only fixtures whose name matches this regular expression")
	flags.StringSlice(flagTag, nil, "Run only fixtures carrying one of these tags (repeatable)")
	flags.String(flagJSONOut, "", "Write a JSON report to this file")
	flags.String(flagMarkdownOut, "", "Write a Markdown report to this file")
	flags.String(flagMetricsOut, "", "Write Prometheus metrics in text format to this file")
	flags.Bool(flagNoColor, false, "Disable colored output")
	flags.String(flagLogLevel, defaultLogLevel, "Diagnostic log level: debug, info, warn, error")
	flags.String(flagLogFormat, defaultLogFormat, "Diagnostic log format: text, json")
	flags.String(flagConfig, "", "Config file (default ./regress.yaml when present)")
}

// bindConfig wires flags, REGRESS_* environment variables and the optional
// config file into v. Precedence is flag, env, file, default.
func bindConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path := strings.TrimSpace(v.GetString(flagConfig)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return harnesserrors.NewConfigError(err, "read config %s", path)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return harnesserrors.NewConfigError(err, "read config")
	}
	return nil
}

func loadAppConfig(v *viper.Viper) (appConfig, error) {
	cfg := appConfig{
		Compiler:    strings.TrimSpace(v.GetString(flagCompiler)),
		ExamplesDir: strings.TrimSpace(v.GetString(flagExamplesDir)),
		Timeout:     v.GetDuration(flagTimeout),
		Fixtures:    strings.TrimSpace(v.GetString(flagFixtures)),
		Run:         v.GetString(flagRun),
		Tags:        parseTagList(v.GetStringSlice(flagTag)),
		JSONOut:     strings.TrimSpace(v.GetString(flagJSONOut)),
		MarkdownOut: strings.TrimSpace(v.GetString(flagMarkdownOut)),
		MetricsOut:  strings.TrimSpace(v.GetString(flagMetricsOut)),
		NoColor:     v.GetBool(flagNoColor),
		LogLevel:    v.GetString(flagLogLevel),
		LogFormat:   v.GetString(flagLogFormat),
	}

	if cfg.Compiler == "" {
		cfg.Compiler = defaultCompiler
	}
	if cfg.ExamplesDir == "" {
		cfg.ExamplesDir = harness.DefaultExamplesDir
	}
	if cfg.Timeout <= 0 {
		return cfg, harnesserrors.NewConfigError(nil, "timeout must be positive, got %s", v.GetString(flagTimeout))
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "text", "json":
	default:
		return cfg, harnesserrors.NewConfigError(nil, "unknown log format %q (expected text or json)", cfg.LogFormat)
	}
	return cfg, nil
}

// parseTagList splits comma-separated entries and drops blanks, so
// "--tag a,b --tag c" and REGRESS_TAG="a,b c" both work.
func parseTagList(raw []string) []string {
	var tags []string
	for _, entry := range raw {
		for _, field := range strings.FieldsFunc(entry, func(r rune) bool { return r == ',' || r == ' ' }) {
			if trimmed := strings.TrimSpace(field); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
	}
	return tags
}

// resolveCompiler turns path into an absolute path and checks that it exists.
func resolveCompiler(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &harnesserrors.ExecutableNotFoundError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &harnesserrors.ExecutableNotFoundError{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &harnesserrors.ExecutableNotFoundError{Path: path, Err: fmt.Errorf("%s is a directory", abs)}
	}
	return abs, nil
}
