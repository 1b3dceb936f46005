package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/sealed/internal/sandbox"
)

// CommandRunner is the external shell-command capability: it runs one
// command line in a directory, blocking until it exits, and reports the exit
// code with combined output. Satisfied by sandbox.ShellRunner.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) (int, []byte, error)
}

// Executor runs synthesized plans. The zero value is usable: it stages
// against the current working directory, resolves hooks from the default
// registry, runs commands through the system shell, generates UUID run IDs
// and discards logs.
type Executor struct {
	// Root overrides the project root that files entries are resolved
	// against. Empty means the working directory in effect at Execute.
	Root string

	// Test names the wrapped test for diagnostics and the run journal.
	Test string

	// Hooks resolves before/after expressions. Nil means DefaultRegistry.
	Hooks *Registry

	// Shell runs command steps. Nil means sandbox.ShellRunner.
	Shell CommandRunner

	// Logger receives teardown diagnostics. Nil discards.
	Logger *slog.Logger

	// RunIDs generates invocation identifiers. Nil means UUIDGenerator.
	RunIDs RunIDGenerator
}

// Execute runs a plan around the given body, honoring the nine-step order
// and teardown guarantees documented on this package.
//
// Execution is synchronous and sequential; there is no concurrency inside
// one invocation. If the body panics, Execute completes steps 7-9 and then
// re-raises the original panic so the surrounding framework observes the
// abort unchanged.
func (e *Executor) Execute(ctx context.Context, plan *Plan, body func() error) *Result {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registry := e.Hooks
	if registry == nil {
		registry = DefaultRegistry()
	}
	shell := e.Shell
	if shell == nil {
		shell = sandbox.ShellRunner{}
	}
	gen := e.RunIDs
	if gen == nil {
		gen = UUIDGenerator{}
	}

	res := &Result{RunID: gen.Generate(), Test: e.Test, Class: sandbox.OutcomePassed}

	// Resolve hook references before any process or directory exists:
	// a configuration naming an unregistered hook fails at the cheapest
	// possible point.
	resolved := make(map[string]HookFunc)
	for _, s := range plan.hooks() {
		fn, ok := registry.Resolve(s.Hook.Name)
		if !ok {
			res.fail(sandbox.OutcomeHarnessFailed, newUnknownHookError(s.Hook.Name, registry.Names()))
			return res
		}
		resolved[s.Hook.Name] = fn
	}

	// Step 1: allocate the isolated environment.
	sb, err := sandbox.Enter(res.RunID)
	if err != nil {
		serr := newSandboxError(err)
		res.record(StepAllocate, "", res.RunID, serr)
		res.fail(sandbox.OutcomeHarnessFailed, serr)
		return res
	}
	if e.Root != "" {
		sb.Root = e.Root
	}
	res.record(StepAllocate, "", res.RunID, nil)
	logger.Debug("sandbox allocated", "run_id", res.RunID, "dir", sb.Dir)

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		res.record(StepRelease, "", res.RunID, nil)
		sb.Leave(logger)
	}
	// Teardown is unconditional once the sandbox exists, including when the
	// body panics and unwinds through Execute.
	defer release()

	setup, teardown := splitAtBody(plan)

	// Steps 2-5: short-circuit on first failure, skipping directly to
	// step 9 without running the body.
	for _, s := range setup {
		if err := e.runStep(ctx, s, sb, shell, resolved); err != nil {
			res.record(s.Kind, s.Phase, stepDetail(s), err)
			res.fail(sandbox.OutcomeHarnessFailed, err)
			logger.Debug("setup step failed", "run_id", res.RunID, "step", s.Kind, "error", err)
			return res
		}
		res.record(s.Kind, s.Phase, stepDetail(s), nil)
	}

	// Step 6: the body outcome is captured, not swallowed.
	var bodyErr error
	var panicked bool
	var panicValue any
	func() {
		defer func() {
			if v := recover(); v != nil {
				panicked = true
				panicValue = v
			}
		}()
		bodyErr = body()
	}()
	switch {
	case panicked:
		err := fmt.Errorf("test body panicked: %v", panicValue)
		res.record(StepBody, "", "", err)
		res.fail(sandbox.OutcomeAborted, err)
	case bodyErr != nil:
		res.record(StepBody, "", "", bodyErr)
		res.fail(sandbox.OutcomeTestFailed, bodyErr)
	default:
		res.record(StepBody, "", "", nil)
	}

	// Steps 7-8: run regardless of the body outcome. The command sequence
	// stops at its first non-zero exit; failures here never mask an
	// earlier primary failure.
	skipCommands := false
	for _, s := range teardown {
		if s.Kind == StepCommand && skipCommands {
			continue
		}
		if err := e.runStep(ctx, s, sb, shell, resolved); err != nil {
			res.record(s.Kind, s.Phase, stepDetail(s), err)
			res.fail(sandbox.OutcomeHarnessFailed, err)
			if s.Kind == StepCommand {
				skipCommands = true
			}
			continue
		}
		res.record(s.Kind, s.Phase, stepDetail(s), nil)
	}

	// Step 9.
	release()

	if panicked {
		panic(panicValue)
	}
	return res
}

func (e *Executor) runStep(ctx context.Context, s Step, sb *sandbox.Sandbox, shell CommandRunner, resolved map[string]HookFunc) error {
	switch s.Kind {
	case StepStage:
		if err := sb.Stage(s.Source); err != nil {
			return newStagingError(s.Source, err)
		}
	case StepSetEnv:
		// Sequential set: a repeated name overwrites the earlier value.
		if err := os.Setenv(s.Env.Name, s.Env.Value); err != nil {
			return fmt.Errorf("failed to set %s: %w", s.Env.Name, err)
		}
	case StepCommand:
		code, output, err := shell.Run(ctx, sb.Dir, s.Command)
		if err != nil {
			return &StepError{Code: ErrCodeCommand, Detail: s.Command, ExitCode: code, Err: err}
		}
		if code != 0 {
			return newCommandError(s.Command, code, output)
		}
	case StepHook:
		if err := callHook(resolved[s.Hook.Name], s.Hook.Args); err != nil {
			return newHookError(s.Hook.Name, err)
		}
	}
	return nil
}

// callHook invokes a hook, converting a panic-equivalent abort into an
// error so teardown ordering is preserved.
func callHook(fn HookFunc, args []string) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("hook panicked: %v", v)
		}
	}()
	return fn(args...)
}

// splitAtBody partitions the plan's middle steps around the body marker.
// Allocate and release are handled explicitly by Execute.
func splitAtBody(plan *Plan) (setup, teardown []Step) {
	seenBody := false
	for _, s := range plan.Steps {
		switch s.Kind {
		case StepAllocate, StepRelease:
		case StepBody:
			seenBody = true
		default:
			if seenBody {
				teardown = append(teardown, s)
			} else {
				setup = append(setup, s)
			}
		}
	}
	return setup, teardown
}

func stepDetail(s Step) string {
	switch s.Kind {
	case StepStage:
		return s.Source
	case StepSetEnv:
		return s.Env.Name + "=" + s.Env.Value
	case StepCommand:
		return s.Command
	case StepHook:
		return s.Hook.String()
	}
	return ""
}
