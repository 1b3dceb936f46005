package harness

import (
	"github.com/roach88/sealed/internal/config"
)

// StepKind identifies one operation in a synthesized plan.
type StepKind string

const (
	StepAllocate StepKind = "allocate"
	StepStage    StepKind = "stage"
	StepSetEnv   StepKind = "set_env"
	StepCommand  StepKind = "command"
	StepHook     StepKind = "hook"
	StepBody     StepKind = "body"
	StepRelease  StepKind = "release"
)

// Phase distinguishes command and hook steps on either side of the body.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseTeardown Phase = "teardown"
)

// Step is one operation in the harness procedure. Exactly one payload field
// is populated, matching the kind.
type Step struct {
	Kind    StepKind       `json:"kind"`
	Phase   Phase          `json:"phase,omitempty"`
	Source  string         `json:"source,omitempty"`
	Env     *config.EnvVar `json:"env,omitempty"`
	Command string         `json:"command,omitempty"`
	Hook    *config.Expr   `json:"hook,omitempty"`
}

// Plan is the ordered harness procedure synthesized from one configuration.
// It is pure data: constructed once per invocation, executed exactly once,
// discarded afterwards. The body itself is not part of the plan; the
// executor binds it at the StepBody position.
type Plan struct {
	Steps []Step `json:"steps"`
}

// Synthesize produces the plan for a configuration, in the fixed nine-step
// order documented on this package. An empty configuration yields bare
// isolation: allocate, body, release.
func Synthesize(cfg *config.Config) *Plan {
	plan := &Plan{}
	plan.add(Step{Kind: StepAllocate})
	for _, f := range cfg.Files {
		plan.add(Step{Kind: StepStage, Source: f})
	}
	for i := range cfg.Env {
		plan.add(Step{Kind: StepSetEnv, Env: &cfg.Env[i]})
	}
	for _, c := range cfg.CmdBefore {
		plan.add(Step{Kind: StepCommand, Phase: PhaseSetup, Command: c})
	}
	if cfg.Before != nil {
		plan.add(Step{Kind: StepHook, Phase: PhaseSetup, Hook: cfg.Before})
	}
	plan.add(Step{Kind: StepBody})
	if cfg.After != nil {
		plan.add(Step{Kind: StepHook, Phase: PhaseTeardown, Hook: cfg.After})
	}
	for _, c := range cfg.CmdAfter {
		plan.add(Step{Kind: StepCommand, Phase: PhaseTeardown, Command: c})
	}
	plan.add(Step{Kind: StepRelease})
	return plan
}

func (p *Plan) add(s Step) {
	p.Steps = append(p.Steps, s)
}

// hooks returns the hook steps of the plan, used for resolution ahead of
// execution.
func (p *Plan) hooks() []Step {
	var out []Step
	for _, s := range p.Steps {
		if s.Kind == StepHook {
			out = append(out, s)
		}
	}
	return out
}
