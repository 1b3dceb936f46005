// Package sealed runs tests in sealed sandboxes: each wrapped test executes
// in its own child process with a private working directory, explicit
// control over staged files and environment variables, and ordered
// setup/teardown hooks.
//
// Without isolation, tests that mutate process-global state interfere with
// each other when run concurrently:
//
//	func TestFoo(t *testing.T) { // racing TestBar for VAR
//		os.Setenv("VAR", "foo")
//		...
//	}
//
// Wrapped in a sealed sandbox, each test owns its process and directory:
//
//	func TestFoo(t *testing.T) {
//		sealed.Run(t, `env = [("VAR", "foo")]`, func() error {
//			if os.Getenv("VAR") != "foo" {
//				return errors.New("unexpected VAR")
//			}
//			return nil
//		})
//	}
//
//	func TestWithGit(t *testing.T) {
//		sealed.Run(t, `files = ["testdata/repo"], cmd_before = {
//			git init;
//			git commit -m c1 --allow-empty;
//		}`, func() error {
//			// runs in a fresh directory containing a staged copy of
//			// testdata/repo and an initialized git repository
//			return nil
//		})
//	}
//
// The attribute string is parsed by internal/config; see that package for
// the grammar. Hooks referenced by before/after are registered with
// RegisterHook, typically from an init function so both the parent and the
// re-executed child see them.
//
// Run must wrap the entire test function: isolation works by re-executing
// the test binary with -test.run pinned to the calling test, so statements
// outside the Run call execute in both processes.
package sealed

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/roach88/sealed/internal/config"
	"github.com/roach88/sealed/internal/harness"
	"github.com/roach88/sealed/internal/sandbox"
)

// RegisterHook binds a name usable in before/after expressions to a
// function. Registration replaces any previous binding with the same name.
func RegisterHook(name string, fn func(args ...string) error) {
	harness.Register(name, harness.HookFunc(fn))
}

// Run executes body inside a sealed sandbox in a dedicated child process.
//
// attrs is the declarative configuration in attribute syntax; the empty
// string yields bare isolation. Configuration errors fail the test before
// any process or directory is allocated.
//
// The reported outcome distinguishes three failure classes: a failure
// returned by body (an ordinary test failure), a setup/teardown
// infrastructure failure, and an isolation failure (the child could not be
// spawned at all).
func Run(t *testing.T, attrs string, body func() error) {
	t.Helper()
	cfg, err := config.Parse(attrs)
	if err != nil {
		t.Fatalf("invalid sealed configuration: %v", err)
	}
	RunConfig(t, cfg, body)
}

// RunConfig is Run for an already-parsed configuration.
func RunConfig(t *testing.T, cfg *config.Config, body func() error) {
	t.Helper()
	if sandbox.InChildProcess() {
		// This process already is the isolation boundary: run the
		// harness in-process. -test.run pins execution to the target
		// test, so no other test reaches this point in the child.
		runChild(t, cfg, body)
		return
	}
	runParent(t)
}

// runParent spawns the child process for the calling test and translates
// its outcome.
func runParent(t *testing.T) {
	t.Helper()
	outcome, err := sandbox.Spawn(context.Background(), t.Name())
	if err != nil {
		// Spawn failures are infrastructure faults, not assertion
		// failures; keep the isolation error text distinct.
		t.Fatalf("sealed: %v", err)
	}
	switch outcome.Class {
	case sandbox.OutcomePassed:
		if testing.Verbose() {
			t.Logf("sealed child output:\n%s", outcome.Output)
		}
	case sandbox.OutcomeTestFailed:
		t.Fatalf("sealed test failed in child process:\n%s", outcome.Output)
	case sandbox.OutcomeHarnessFailed:
		t.Fatalf("sealed sandbox setup/teardown failed:\n%s", outcome.Output)
	default:
		t.Fatalf("sealed child process aborted (exit %d):\n%s", outcome.ExitCode, outcome.Output)
	}
}

// runChild synthesizes and executes the harness procedure around body.
func runChild(t *testing.T, cfg *config.Config, body func() error) {
	t.Helper()
	exec := &harness.Executor{Test: t.Name()}
	res := exec.Execute(context.Background(), harness.Synthesize(cfg), body)
	switch res.Class {
	case sandbox.OutcomePassed:
	case sandbox.OutcomeTestFailed:
		t.Fatal(res.Err())
	default:
		// Infrastructure failure: exit with the reserved code so the
		// parent reports it as a harness failure, not a test failure.
		fmt.Fprintf(os.Stderr, "sealed sandbox failure: %v\n", res.Err())
		os.Exit(sandbox.ExitHarnessFailure)
	}
}
