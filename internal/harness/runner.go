// Package harness drives the regression suite: it runs every selected fixture
// through the compiler, verifies the output and accumulates a RunSummary.
package harness

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"regress/internal/fixture"
	"regress/internal/invoker"
	"regress/internal/observability"
	harnesserrors "regress/internal/shared/errors"
	"regress/internal/shared/logging"
	"regress/internal/verifier"
)

// DefaultExamplesDir holds fixture sources, relative to the working directory.
const DefaultExamplesDir = "examples"

// State is where a fixture ended up.
type State string

const (
	StatePending      State = "PENDING"
	StateInvoked      State = "INVOKED"
	StateCrashed      State = "CRASHED"
	StateVerifiedPass State = "VERIFIED_PASS"
	StateVerifiedFail State = "VERIFIED_FAIL"
	StateTimedOut     State = "TIMED_OUT"
	StateLaunchError  State = "LAUNCH_ERROR"
)


// Invoker runs the compiler against one source file.
type Invoker interface {
	Invoke(ctx context.Context, sourcePath string) invoker.Result
}

// FixtureResult is the outcome of one fixture.
type FixtureResult struct {
	Fixture      fixture.Fixture
	SourcePath   string
	State        State
	Invocation   invoker.Result
	Verification *verifier.Outcome
	// Err is nil only for StateVerifiedPass.
	Err      error
	Duration time.Duration
}

// Passed reports whether the fixture passed.
func (r FixtureResult) Passed() bool {
	return r.State == StateVerifiedPass
}

// Diagnostic returns the failure detail for a failed fixture.
func (r FixtureResult) Diagnostic() string {
	switch r.State {
	case StateCrashed:
		return r.Invocation.Stderr
	case StateVerifiedFail:
		if r.Verification == nil {
			return ""
		}
		return fmt.Sprintf("Missing expected output: '%s'", r.Verification.FirstMissingExpectation)
	case StateTimedOut:
		return "Timeout"
	case StateLaunchError:
		if r.Invocation.Err != nil {
			return r.Invocation.Err.Error()
		}
		return "launch failed"
	default:
		return ""
	}
}

// RunSummary accumulates results across a run.
type RunSummary struct {
	Passed    int
	Total     int
	Results   []FixtureResult
	StartedAt time.Time
	Duration  time.Duration
}

// Failed returns the number of failed fixtures.
func (s *RunSummary) Failed() int {
	return s.Total - s.Passed
}

// OK reports whether every fixture passed.
func (s *RunSummary) OK() bool {
	return s.Passed == s.Total
}

// ExitCode maps the summary onto a process exit status.
func (s *RunSummary) ExitCode() int {
	if s.OK() {
		return 0
	}
	return 1
}

// record is the only place the counters change.
func (s *RunSummary) record(result FixtureResult) {
	s.Total++
	if result.Passed() {
		s.Passed++
	}
	s.Results = append(s.Results, result)
}

// Options configures a Runner.
type Options struct {
	Invoker     Invoker
	ExamplesDir string
	// Out receives the human-readable report. Nil discards it.
	Out     io.Writer
	Color   bool
	Logger  logging.Logger
	Metrics *observability.MetricsCollector
}

// Runner executes fixtures strictly one after another, in the given order.
type Runner struct {
	invoker     Invoker
	examplesDir string
	printer     *printer
	logger      logging.Logger
	metrics     *observability.MetricsCollector
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	examplesDir := opts.ExamplesDir
	if examplesDir == "" {
		examplesDir = DefaultExamplesDir
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		invoker:     opts.Invoker,
		examplesDir: examplesDir,
		printer:     newPrinter(out, opts.Color),
		logger:      logging.OrNop(opts.Logger),
		metrics:     opts.Metrics,
	}
}

// Run executes every fixture and prints per-fixture lines followed by the
// summary line. A failing fixture never stops the run.
func (r *Runner) Run(ctx context.Context, fixtures []fixture.Fixture) *RunSummary {
	summary := &RunSummary{
		StartedAt: time.Now(),
		Results:   make([]FixtureResult, 0, len(fixtures)),
	}
	r.logger.Info("running %d fixtures from %s", len(fixtures), r.examplesDir)

	for _, f := range fixtures {
		r.printer.start(f)
		result := r.RunFixture(ctx, f)
		r.printer.finish(result)
		summary.record(result)
		r.metrics.RecordFixture(ctx, f.Name, string(result.State), result.Duration)
		if !result.Passed() {
			r.logger.Warn("fixture %s failed: state=%s err=%v", f.Name, result.State, result.Err)
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	r.metrics.RecordSummary(ctx, summary.Passed, summary.Total)
	r.printer.summary(summary)
	r.logger.Info("suite finished: %d/%d passed in %s", summary.Passed, summary.Total, summary.Duration.Round(time.Millisecond))
	return summary
}

// RunFixture moves one fixture from PENDING to a terminal state. The verifier
// is consulted only for completed invocations with exit status zero.
func (r *Runner) RunFixture(ctx context.Context, f fixture.Fixture) FixtureResult {
	result := FixtureResult{
		Fixture:    f,
		SourcePath: filepath.Join(r.examplesDir, f.Name),
		State:      StatePending,
	}

	result.Invocation = r.invoker.Invoke(ctx, result.SourcePath)
	result.State = StateInvoked
	result.Duration = result.Invocation.Duration

	switch result.Invocation.Outcome {
	case invoker.OutcomeTimedOut:
		result.State = StateTimedOut
		result.Err = result.Invocation.Err
		if result.Err == nil {
			result.Err = &harnesserrors.TimeoutError{Source: result.SourcePath}
		}
		return result
	case invoker.OutcomeLaunchFailed:
		result.State = StateLaunchError
		result.Err = result.Invocation.Err
		if result.Err == nil {
			result.Err = &harnesserrors.LaunchFailedError{Err: fmt.Errorf("launch failed")}
		}
		return result
	}

	if !result.Invocation.Succeeded() {
		code := exitCode(result.Invocation)
		result.State = StateCrashed
		result.Err = &harnesserrors.CompilerCrashError{
			Fixture:  f.Name,
			ExitCode: code,
			Stderr:   result.Invocation.Stderr,
		}
		return result
	}

	outcome := verifier.Verify(result.Invocation.Stdout, f.ExpectedOutput)
	result.Verification = &outcome
	if outcome.Passed {
		result.State = StateVerifiedPass
		return result
	}
	result.State = StateVerifiedFail
	result.Err = &harnesserrors.OutputMismatchError{Fixture: f.Name, Expected: outcome.FirstMissingExpectation}
	return result
}

// exitCode treats a completed result without a code as a crash.
func exitCode(res invoker.Result) int {
	if res.ExitCode == nil {
		return -1
	}
	return *res.ExitCode
}
