// Package invoker runs the compiler under test as a child process with a hard
// wall-clock budget and maps every way that can go wrong onto a Result.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	harnesserrors "regress/internal/shared/errors"
	"regress/internal/shared/logging"
)

// DefaultTimeout is the per-invocation budget measured from launch.
const DefaultTimeout = 5 * time.Second

// waitDelay bounds how long Wait blocks on inherited pipes after the child
// has exited or been killed.
const waitDelay = time.Second

// Outcome says how an invocation ended.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeTimedOut     Outcome = "timed_out"
	OutcomeLaunchFailed Outcome = "launch_failed"
)

// Result is the structured outcome of one invocation.
//
// ExitCode is nil unless Outcome is OutcomeCompleted. Stdout and Stderr are
// empty for timed-out invocations.
type Result struct {
	ExitCode *int
	Stdout   string
	Stderr   string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Succeeded reports a completed run with exit status zero.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeCompleted && r.ExitCode != nil && *r.ExitCode == 0
}

// Config configures an Invoker.
type Config struct {
	// Executable is the resolved compiler path.
	Executable string
	// Timeout caps each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	Logger  logging.Logger
}

// Invoker spawns the compiler, one child per call, no retries.
type Invoker struct {
	executable string
	timeout    time.Duration
	logger     logging.Logger
}

// New creates an Invoker.
func New(cfg Config) *Invoker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{
		executable: cfg.Executable,
		timeout:    timeout,
		logger:     logging.OrNop(cfg.Logger),
	}
}

// Timeout returns the effective per-invocation budget.
func (i *Invoker) Timeout() time.Duration {
	return i.timeout
}

// Invoke runs "<executable> compile <sourcePath>" and waits for it to exit or
// for the budget to expire. It never panics and never returns an error:
// failures are reported through Result.Outcome and Result.Err.
func (i *Invoker) Invoke(ctx context.Context, sourcePath string) Result {
	runCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, i.executable, "compile", sourcePath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		i.logger.Warn("launch %s failed: %v", i.executable, err)
		return Result{
			Outcome:  OutcomeLaunchFailed,
			Err:      &harnesserrors.LaunchFailedError{Executable: i.executable, Err: err},
			Duration: time.Since(start),
		}
	}
	i.logger.Debug("started pid=%d: %s compile %s", cmd.Process.Pid, i.executable, sourcePath)

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if waitErr != nil && runCtx.Err() != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			i.logger.Warn("%s exceeded %s and was killed", sourcePath, i.timeout)
			return Result{
				Outcome:  OutcomeTimedOut,
				Err:      &harnesserrors.TimeoutError{Source: sourcePath, Limit: i.timeout.String()},
				Duration: elapsed,
			}
		}
		// The caller gave up on the run: report it as a launch failure
		// carrying the cancellation cause.
		return Result{
			Outcome:  OutcomeLaunchFailed,
			Err:      &harnesserrors.LaunchFailedError{Executable: i.executable, Err: context.Cause(ctx)},
			Duration: elapsed,
		}
	}

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Outcome:  OutcomeCompleted,
		Duration: elapsed,
	}

	if errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		// The compiler exited but a descendant kept its output pipes open.
		// Its own exit status is what counts.
		code := cmd.ProcessState.ExitCode()
		result.ExitCode = &code
		i.logger.Warn("%s exited with status %d but its output pipes stayed open", sourcePath, code)
		return result
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			// I/O failure while copying the child's output.
			result.Outcome = OutcomeLaunchFailed
			result.Err = &harnesserrors.LaunchFailedError{Executable: i.executable, Err: waitErr}
			return result
		}
		code := exitErr.ExitCode()
		result.ExitCode = &code
		i.logger.Debug("%s exited with status %d after %s", sourcePath, code, elapsed.Round(time.Millisecond))
		return result
	}

	code := 0
	result.ExitCode = &code
	i.logger.Debug("%s exited cleanly after %s", sourcePath, elapsed.Round(time.Millisecond))
	return result
}
