package model

import (
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrUndetectable - the device family could not be resolved, fatal before
	// any device interaction.
	ErrUndetectable = errors.New("DPU family undetectable")

	// ErrMissingDeviceType - an operation requiring a resolved family was
	// invoked without one.
	ErrMissingDeviceType = errors.New("device type not resolved")

	// ErrFastPath - a management channel command returned nonzero.
	ErrFastPath = errors.New("management channel command failed")

	// ErrSlowPath - the console path failed after a fast path failure.
	ErrSlowPath = errors.New("console fallback failed")

	// ErrFlashFailure - the firmware write returned nonzero, never retried.
	ErrFlashFailure = errors.New("firmware flash failed")

	// ErrUnsupportedVersion - the requested firmware version is not in the
	// allow-list, rejected before device contact.
	ErrUnsupportedVersion = errors.New("unsupported firmware version")

	// ErrBootStage - a PXE boot stage failed, no automatic re-attempt.
	ErrBootStage = errors.New("boot stage failed")

	// ErrConsoleBusy - the serial endpoint already has an open session.
	ErrConsoleBusy = errors.New("console session already open on endpoint")
)

// ExitCoder is implemented by errors that carry a process exit code from the
// originating failure, the CLI propagates it to the shell.
type ExitCoder interface {
	ExitCode() int
}

// ExitError wraps an error with the exit code of the failed external command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error() + " (exit code " + strconv.Itoa(e.Code) + ")"
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode implements the ExitCoder interface.
func (e *ExitError) ExitCode() int { return e.Code }

// NewExitError wraps err carrying the given command exit code.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}
