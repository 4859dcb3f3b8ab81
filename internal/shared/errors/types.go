package errors

import (
	"errors"
	"fmt"
)

// Kind classifies harness failures.
type Kind int

const (
	// KindNone - no error
	KindNone Kind = iota
	// KindExecutableNotFound - compiler binary missing, fatal to the run
	KindExecutableNotFound
	// KindLaunchFailed - the child process could not be started
	KindLaunchFailed
	// KindTimeout - the child exceeded its wall-clock budget
	KindTimeout
	// KindCompilerCrash - the child exited with a non-zero status
	KindCompilerCrash
	// KindOutputMismatch - an expected output fragment was missing
	KindOutputMismatch
	// KindConfig - invalid flags, suite file or selection
	KindConfig
	// KindUnknown - anything else
	KindUnknown
)

var kindNames = map[Kind]string{
	KindNone:               "none",
	KindExecutableNotFound: "executable_not_found",
	KindLaunchFailed:       "launch_failed",
	KindTimeout:            "timeout",
	KindCompilerCrash:      "compiler_crash",
	KindOutputMismatch:     "output_mismatch",
	KindConfig:             "config",
	KindUnknown:            "unknown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ExecutableNotFoundError reports a compiler path that does not exist.
type ExecutableNotFoundError struct {
	Path string
	Err  error
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("Compiler binary '%s' not found. Please build it first.", e.Path)
}

func (e *ExecutableNotFoundError) Unwrap() error {
	return e.Err
}

// LaunchFailedError reports a child process that never started.
type LaunchFailedError struct {
	Executable string
	Err        error
}

func (e *LaunchFailedError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Executable, e.Err)
}

func (e *LaunchFailedError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a child killed after exceeding its budget. Source is
// the path handed to the compiler.
type TimeoutError struct {
	Source string
	Limit  string
}

func (e *TimeoutError) Error() string {
	if e.Limit == "" {
		return fmt.Sprintf("%s timed out", e.Source)
	}
	return fmt.Sprintf("%s timed out after %s", e.Source, e.Limit)
}

// CompilerCrashError reports a non-zero exit status.
type CompilerCrashError struct {
	Fixture  string
	ExitCode int
	Stderr   string
}

func (e *CompilerCrashError) Error() string {
	return fmt.Sprintf("%s crashed with exit code %d", e.Fixture, e.ExitCode)
}

// OutputMismatchError reports the first expectation missing from stdout.
type OutputMismatchError struct {
	Fixture  string
	Expected string
}

func (e *OutputMismatchError) Error() string {
	return fmt.Sprintf("%s: missing expected output %q", e.Fixture, e.Expected)
}

// ConfigError wraps invalid user input such as a malformed suite file.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(err error, format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies err by walking its wrap chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var notFound *ExecutableNotFoundError
	if errors.As(err, &notFound) {
		return KindExecutableNotFound
	}

	var launch *LaunchFailedError
	if errors.As(err, &launch) {
		return KindLaunchFailed
	}

	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return KindTimeout
	}

	var crash *CompilerCrashError
	if errors.As(err, &crash) {
		return KindCompilerCrash
	}

	var mismatch *OutputMismatchError
	if errors.As(err, &mismatch) {
		return KindOutputMismatch
	}

	var cfg *ConfigError
	if errors.As(err, &cfg) {
		return KindConfig
	}

	return KindUnknown
}

// IsFatal reports whether err stops the suite before any fixture runs.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindExecutableNotFound, KindConfig:
		return true
	default:
		return false
	}
}
