package main

import (
	"errors"

	harnesserrors "regress/internal/shared/errors"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// ExitCodeError wraps an error with a specific process exit code.
//
// Suite failures and a missing compiler exit 1; usage and configuration
// errors exit 2 so CI scripts can tell a broken invocation from a red suite.
// A nil Err means the failure was already reported to the user.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func usageError(err error) error {
	return &ExitCodeError{Code: exitUsage, Err: err}
}

// exitCodeFor maps an error returned by the root command onto an exit status.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if !harnesserrors.IsFatal(err) {
		return exitFailed
	}
	// Setup errors: bad configuration is a usage error, a missing compiler
	// fails the run.
	if harnesserrors.KindOf(err) == harnesserrors.KindConfig {
		return exitUsage
	}
	return exitFailed
}
