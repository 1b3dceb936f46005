package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// childMarkerEnv names the environment variable that carries the target test
// name into the child process. Its presence marks the child role.
const childMarkerEnv = "SEALED_TEST_CHILD"

// ExitHarnessFailure is the child exit code reserved for setup/teardown
// infrastructure failures, distinguishing them from ordinary test failures
// (exit 1) and aborts.
const ExitHarnessFailure = 3

// OutcomeClass classifies how an invocation ended.
type OutcomeClass string

const (
	// OutcomePassed: the body ran to completion without failure.
	OutcomePassed OutcomeClass = "passed"

	// OutcomeTestFailed: the body reported a failure. A defect in the
	// test's own logic, not in the harness.
	OutcomeTestFailed OutcomeClass = "test_failed"

	// OutcomeHarnessFailed: staging, hooks or command blocks failed.
	OutcomeHarnessFailed OutcomeClass = "harness_failed"

	// OutcomeAborted: the child terminated abnormally (panic, signal).
	OutcomeAborted OutcomeClass = "aborted"
)

// Outcome is the child process result as observed by the parent.
type Outcome struct {
	Class    OutcomeClass
	ExitCode int
	Output   []byte
}

// IsolationError indicates that the child process could not be spawned at
// all. It is distinct from a test failure: the framework must not interpret
// it as an assertion defect.
type IsolationError struct {
	Test string
	Err  error
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("failed to spawn isolated process for %s: %v", e.Test, e.Err)
}

func (e *IsolationError) Unwrap() error {
	return e.Err
}

// InChildProcess reports whether this process is a sandbox child.
func InChildProcess() bool {
	return os.Getenv(childMarkerEnv) != ""
}

// IsChild reports whether this process is the sandbox child for the named
// test specifically.
func IsChild(name string) bool {
	return os.Getenv(childMarkerEnv) == name
}

// Spawn re-executes the current test binary running only the named test and
// blocks until it terminates. The child inherits the parent environment plus
// the child marker; it shares no working-directory or environment mutations
// with the parent afterwards.
func Spawn(ctx context.Context, name string) (*Outcome, error) {
	cmd := exec.CommandContext(ctx, os.Args[0], "-test.run="+runPattern(name), "-test.v")
	cmd.Env = append(os.Environ(), childMarkerEnv+"="+name)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return &Outcome{Class: OutcomePassed, ExitCode: 0, Output: output}, nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return nil, &IsolationError{Test: name, Err: err}
	}
	return &Outcome{
		Class:    classifyExit(ee.ExitCode()),
		ExitCode: ee.ExitCode(),
		Output:   output,
	}, nil
}

// classifyExit maps a child exit code onto an outcome class. The Go test
// binary exits 1 on ordinary failure; ExitHarnessFailure is reserved by the
// harness; anything else (panic exit 2, signal -1) is an abort.
func classifyExit(code int) OutcomeClass {
	switch code {
	case 0:
		return OutcomePassed
	case 1:
		return OutcomeTestFailed
	case ExitHarnessFailure:
		return OutcomeHarnessFailed
	default:
		return OutcomeAborted
	}
}

// runPattern builds a -test.run pattern that matches exactly one test,
// including subtests: each path segment is anchored and quoted.
func runPattern(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = "^" + regexp.QuoteMeta(p) + "$"
	}
	return strings.Join(parts, "/")
}
