package harness

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes harness execution errors.
type ErrorCode string

const (
	// ErrCodeStaging indicates a files entry could not be copied into the
	// sandbox: missing source or underlying I/O failure.
	ErrCodeStaging ErrorCode = "STAGING_FAILED"

	// ErrCodeCommand indicates a cmd_before/cmd_after command line exited
	// non-zero.
	ErrCodeCommand ErrorCode = "COMMAND_FAILED"

	// ErrCodeHook indicates a before/after hook returned an error or
	// panicked.
	ErrCodeHook ErrorCode = "HOOK_FAILED"

	// ErrCodeUnknownHook indicates a before/after expression references a
	// hook that was never registered. Detected before the sandbox is
	// allocated.
	ErrCodeUnknownHook ErrorCode = "UNKNOWN_HOOK"

	// ErrCodeSandbox indicates the ephemeral directory could not be
	// allocated or entered.
	ErrCodeSandbox ErrorCode = "SANDBOX_FAILED"
)

// StepError is a failure in one harness step. It carries the step detail
// (source path, command line or hook name) so diagnostics can name exactly
// what failed.
type StepError struct {
	Code     ErrorCode
	Detail   string // source path, command line, or hook name
	ExitCode int    // command failures only
	Output   string // command failures only, combined output
	Err      error  // underlying cause, when any
}

// Error implements the error interface.
func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Detail)
	if e.Code == ErrCodeCommand {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsStaging reports whether err is a staging failure.
// Uses errors.As to handle wrapped errors.
func IsStaging(err error) bool {
	return hasCode(err, ErrCodeStaging)
}

// IsCommand reports whether err is a command failure.
func IsCommand(err error) bool {
	return hasCode(err, ErrCodeCommand)
}

// IsHook reports whether err is a hook failure.
func IsHook(err error) bool {
	return hasCode(err, ErrCodeHook)
}

// IsUnknownHook reports whether err references an unregistered hook.
func IsUnknownHook(err error) bool {
	return hasCode(err, ErrCodeUnknownHook)
}

func hasCode(err error, code ErrorCode) bool {
	var se *StepError
	return errors.As(err, &se) && se.Code == code
}

func newStagingError(source string, err error) *StepError {
	return &StepError{Code: ErrCodeStaging, Detail: source, Err: err}
}

func newCommandError(command string, exit int, output []byte) *StepError {
	return &StepError{Code: ErrCodeCommand, Detail: command, ExitCode: exit, Output: string(output)}
}

func newHookError(hook string, err error) *StepError {
	return &StepError{Code: ErrCodeHook, Detail: hook, Err: err}
}

func newUnknownHookError(hook string, known []string) *StepError {
	detail := "no hooks registered"
	if len(known) > 0 {
		detail = "registered hooks: " + strings.Join(known, ", ")
	}
	return &StepError{
		Code:   ErrCodeUnknownHook,
		Detail: hook,
		Err:    errors.New(detail),
	}
}

func newSandboxError(err error) *StepError {
	return &StepError{Code: ErrCodeSandbox, Detail: "allocate", Err: err}
}
