package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sealed/internal/config"
	"github.com/roach88/sealed/internal/sandbox"
	"github.com/roach88/sealed/internal/testutil"
)

// fakeRunner records command invocations and fails configured commands.
type fakeRunner struct {
	calls  []string
	failOn string
	exit   int
}

func (r *fakeRunner) Run(_ context.Context, _ string, command string) (int, []byte, error) {
	r.calls = append(r.calls, command)
	if command == r.failOn {
		return r.exit, []byte("command output"), nil
	}
	return 0, nil, nil
}

func newExecutor(t *testing.T) (*Executor, *Registry, *fakeRunner) {
	t.Helper()
	registry := NewRegistry()
	runner := &fakeRunner{}
	return &Executor{
		Root:   t.TempDir(),
		Hooks:  registry,
		Shell:  runner,
		Logger: testutil.DiscardLogger(),
		RunIDs: testutil.NewFixedRunIDGenerator(""),
	}, registry, runner
}

func mustParse(t *testing.T, attrs string) *Plan {
	t.Helper()
	cfg, err := config.Parse(attrs)
	require.NoError(t, err)
	return Synthesize(cfg)
}

func TestExecute_StepOrder(t *testing.T) {
	exec, registry, runner := newExecutor(t)
	require.NoError(t, os.MkdirAll(filepath.Join(exec.Root, "tests"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exec.Root, "tests", "foo"), []byte("x"), 0o644))

	var log []string
	registry.Register("setup", func(args ...string) error {
		log = append(log, "setup")
		return nil
	})
	registry.Register("teardown", func(args ...string) error {
		log = append(log, "teardown")
		return nil
	})

	plan := mustParse(t, `
		files = ["tests/foo"],
		env = [("SEALED_TEST_ORDER_VAR", "v")],
		before = setup(),
		after = teardown(),
		cmd_before = { cmd-one },
		cmd_after = { cmd-two },
	`)
	res := exec.Execute(context.Background(), plan, func() error {
		log = append(log, "body")
		return nil
	})

	require.False(t, res.Failed())
	assert.NoError(t, res.Err())
	assert.Equal(t, []string{"setup", "body", "teardown"}, log)
	assert.Equal(t, []string{"cmd-one", "cmd-two"}, runner.calls)

	kinds := make([]StepKind, 0, len(res.Trace))
	for _, ev := range res.Trace {
		kinds = append(kinds, ev.Step)
	}
	assert.Equal(t, []StepKind{
		StepAllocate, StepStage, StepSetEnv, StepCommand, StepHook,
		StepBody,
		StepHook, StepCommand, StepRelease,
	}, kinds)

	// Seq is a strictly increasing logical clock.
	for i, ev := range res.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestExecute_StagesFileIntoWorkdir(t *testing.T) {
	exec, _, _ := newExecutor(t)
	require.NoError(t, os.MkdirAll(filepath.Join(exec.Root, "tests"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exec.Root, "tests", "foo"), []byte("contents"), 0o644))

	plan := mustParse(t, `files = ["tests/foo"]`)
	res := exec.Execute(context.Background(), plan, func() error {
		// Staged under the final path component of the source.
		data, err := os.ReadFile("foo")
		if err != nil {
			return err
		}
		if string(data) != "contents" {
			return errors.New("unexpected staged contents")
		}
		return nil
	})
	require.False(t, res.Failed())
}

func TestExecute_StagesDirectoryRecursively(t *testing.T) {
	exec, _, _ := newExecutor(t)
	require.NoError(t, os.MkdirAll(filepath.Join(exec.Root, "tests", "baz"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exec.Root, "tests", "baz", "buzz"), []byte("b"), 0o644))

	plan := mustParse(t, `files = ["tests/baz"]`)
	res := exec.Execute(context.Background(), plan, func() error {
		_, err := os.Stat(filepath.Join("baz", "buzz"))
		return err
	})
	require.False(t, res.Failed())
}

func TestExecute_EnvLastWriteWins(t *testing.T) {
	exec, _, _ := newExecutor(t)
	t.Setenv("SEALED_TEST_LWW_VAR", "initial")

	plan := mustParse(t, `env = [("SEALED_TEST_LWW_VAR", "first"), ("SEALED_TEST_LWW_VAR", "second")]`)
	res := exec.Execute(context.Background(), plan, func() error {
		if got := os.Getenv("SEALED_TEST_LWW_VAR"); got != "second" {
			return errors.New("expected last write to win, got " + got)
		}
		return nil
	})
	require.False(t, res.Failed())
}

func TestExecute_StagingFailureSkipsBody(t *testing.T) {
	exec, _, runner := newExecutor(t)

	bodyRan := false
	plan := mustParse(t, `files = ["tests/missing"], cmd_before = { never }`)
	res := exec.Execute(context.Background(), plan, func() error {
		bodyRan = true
		return nil
	})

	assert.False(t, bodyRan)
	assert.Empty(t, runner.calls)
	assert.Equal(t, sandbox.OutcomeHarnessFailed, res.Class)
	require.Error(t, res.Primary)
	assert.True(t, IsStaging(res.Primary))
	assert.Contains(t, res.Primary.Error(), "tests/missing")

	// Short-circuits directly to release: last trace event is the release.
	require.NotEmpty(t, res.Trace)
	assert.Equal(t, StepRelease, res.Trace[len(res.Trace)-1].Step)
	for _, ev := range res.Trace {
		assert.NotEqual(t, StepBody, ev.Step)
	}
}

func TestExecute_CommandFailureSkipsBody(t *testing.T) {
	exec, _, runner := newExecutor(t)
	runner.failOn = "fail-here"
	runner.exit = 2

	bodyRan := false
	plan := mustParse(t, `cmd_before = { ok-one; fail-here; never }`)
	res := exec.Execute(context.Background(), plan, func() error {
		bodyRan = true
		return nil
	})

	assert.False(t, bodyRan)
	assert.Equal(t, []string{"ok-one", "fail-here"}, runner.calls)
	require.True(t, IsCommand(res.Primary))
	var se *StepError
	require.ErrorAs(t, res.Primary, &se)
	assert.Equal(t, "fail-here", se.Detail)
	assert.Equal(t, 2, se.ExitCode)
	assert.Equal(t, "command output", se.Output)
}

func TestExecute_BodyFailureStillRunsTeardown(t *testing.T) {
	exec, registry, runner := newExecutor(t)

	afterRan := false
	registry.Register("teardown", func(args ...string) error {
		afterRan = true
		return nil
	})

	bodyErr := errors.New("assertion failed")
	plan := mustParse(t, `after = teardown(), cmd_after = { cleanup }`)
	res := exec.Execute(context.Background(), plan, func() error {
		return bodyErr
	})

	assert.True(t, afterRan)
	assert.Equal(t, []string{"cleanup"}, runner.calls)
	// The body outcome is the primary failure, reported as a test failure,
	// not a teardown failure.
	assert.Equal(t, sandbox.OutcomeTestFailed, res.Class)
	assert.ErrorIs(t, res.Primary, bodyErr)
	assert.Empty(t, res.Secondary)
}

func TestExecute_AfterFailureAfterPassingBodyIsPrimary(t *testing.T) {
	exec, registry, _ := newExecutor(t)

	hookErr := errors.New("teardown broke")
	registry.Register("teardown", func(args ...string) error {
		return hookErr
	})

	plan := mustParse(t, `after = teardown()`)
	res := exec.Execute(context.Background(), plan, func() error { return nil })

	assert.Equal(t, sandbox.OutcomeHarnessFailed, res.Class)
	assert.True(t, IsHook(res.Primary))
	assert.ErrorIs(t, res.Primary, hookErr)
}

func TestExecute_AfterFailureNeverMasksBodyFailure(t *testing.T) {
	exec, registry, runner := newExecutor(t)
	runner.failOn = "cleanup"
	runner.exit = 9

	registry.Register("teardown", func(args ...string) error {
		return errors.New("teardown broke")
	})

	bodyErr := errors.New("assertion failed")
	plan := mustParse(t, `after = teardown(), cmd_after = { cleanup }`)
	res := exec.Execute(context.Background(), plan, func() error {
		return bodyErr
	})

	assert.Equal(t, sandbox.OutcomeTestFailed, res.Class)
	assert.ErrorIs(t, res.Primary, bodyErr)
	require.Len(t, res.Secondary, 2)
	assert.True(t, IsHook(res.Secondary[0]))
	assert.True(t, IsCommand(res.Secondary[1]))

	// Err surfaces both without losing the primary.
	combined := res.Err()
	assert.ErrorIs(t, combined, bodyErr)
	assert.Contains(t, combined.Error(), "teardown broke")
	assert.Contains(t, combined.Error(), "cleanup")
}

func TestExecute_CmdAfterStopsAtFirstNonZero(t *testing.T) {
	exec, _, runner := newExecutor(t)
	runner.failOn = "first"
	runner.exit = 1

	plan := mustParse(t, `cmd_after = { first; second }`)
	res := exec.Execute(context.Background(), plan, func() error { return nil })

	assert.Equal(t, []string{"first"}, runner.calls)
	assert.True(t, IsCommand(res.Primary))
}

func TestExecute_UnknownHookFailsBeforeAllocation(t *testing.T) {
	exec, registry, _ := newExecutor(t)
	registry.Register("known", func(args ...string) error { return nil })

	plan := mustParse(t, `before = unknown()`)
	res := exec.Execute(context.Background(), plan, func() error {
		t.Fatal("body must not run")
		return nil
	})

	assert.Equal(t, sandbox.OutcomeHarnessFailed, res.Class)
	assert.True(t, IsUnknownHook(res.Primary))
	assert.Contains(t, res.Primary.Error(), "known")
	// No sandbox was allocated: the trace is empty.
	assert.Empty(t, res.Trace)
}

func TestExecute_HookPanicIsContained(t *testing.T) {
	exec, registry, _ := newExecutor(t)
	registry.Register("explosive", func(args ...string) error {
		panic("boom")
	})

	bodyRan := false
	plan := mustParse(t, `before = explosive()`)
	res := exec.Execute(context.Background(), plan, func() error {
		bodyRan = true
		return nil
	})

	assert.False(t, bodyRan)
	assert.True(t, IsHook(res.Primary))
	assert.Contains(t, res.Primary.Error(), "boom")

	// Working directory was restored despite the aborting hook.
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.NotContains(t, wd, "sealed-")
}

func TestExecute_BodyPanicRunsTeardownThenRethrows(t *testing.T) {
	exec, registry, runner := newExecutor(t)

	afterRan := false
	registry.Register("teardown", func(args ...string) error {
		afterRan = true
		return nil
	})

	before, err := os.Getwd()
	require.NoError(t, err)

	plan := mustParse(t, `after = teardown(), cmd_after = { cleanup }`)
	assert.PanicsWithValue(t, "body exploded", func() {
		exec.Execute(context.Background(), plan, func() error {
			panic("body exploded")
		})
	})

	// Steps 7-9 completed before the panic was re-raised.
	assert.True(t, afterRan)
	assert.Equal(t, []string{"cleanup"}, runner.calls)
	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestExecute_PassesHookArguments(t *testing.T) {
	exec, registry, _ := newExecutor(t)

	var got []string
	registry.Register("setup", func(args ...string) error {
		got = args
		return nil
	})

	plan := mustParse(t, `before = setup("fixtures", "extra")`)
	res := exec.Execute(context.Background(), plan, func() error { return nil })

	require.False(t, res.Failed())
	assert.Equal(t, []string{"fixtures", "extra"}, got)
}

func TestExecute_EmptyPlanIsBareIsolation(t *testing.T) {
	exec, _, runner := newExecutor(t)
	before, err := os.Getwd()
	require.NoError(t, err)

	plan := Synthesize(&config.Config{})
	res := exec.Execute(context.Background(), plan, func() error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		if wd == before {
			return errors.New("body did not run in a fresh directory")
		}
		entries, err := os.ReadDir(".")
		if err != nil {
			return err
		}
		if len(entries) != 0 {
			return errors.New("fresh directory is not empty")
		}
		return nil
	})

	require.False(t, res.Failed())
	assert.Empty(t, runner.calls)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
