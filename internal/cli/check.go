package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sealed/internal/config"
	"github.com/roach88/sealed/internal/harness"
)

// CheckResult holds the outcome of validating one configuration file.
type CheckResult struct {
	Valid  bool           `json:"valid"`
	Config *config.Config `json:"config,omitempty"`
	Plan   []harness.Step `json:"plan,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <config-file>",
		Short: "Validate a sandbox configuration file",
		Long: `Validate a sandbox configuration file and show the execution plan.

Accepts the attribute syntax (files = [...], env = [...], before = hook(),
cmd_before = { ... }) or a YAML file (.yaml/.yml extension). Unknown and
duplicate keys are rejected. On success the synthesized step sequence is
printed in execution order.

Examples:
  sealed check sandbox.conf
  sealed check sandbox.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(path)
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			_ = formatter.Error(string(cfgErr.Code), cfgErr.Message, cfgErr.Attr)
			// Rejected configuration is a validation failure, not a usage error.
			return NewExitError(ExitFailure, cfgErr.Error())
		}
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	plan := harness.Synthesize(cfg)

	if formatter.Format == "json" {
		return formatter.Success(CheckResult{Valid: true, Config: cfg, Plan: plan.Steps})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n\n", path)
	fmt.Fprintln(formatter.Writer, "Execution plan:")
	for i, s := range plan.Steps {
		fmt.Fprintf(formatter.Writer, "  %d. %s\n", i+1, describeStep(s))
	}
	return nil
}

// describeStep renders one plan step for text output.
func describeStep(s harness.Step) string {
	var b strings.Builder
	b.WriteString(string(s.Kind))
	switch s.Kind {
	case harness.StepStage:
		fmt.Fprintf(&b, " %s", s.Source)
	case harness.StepSetEnv:
		fmt.Fprintf(&b, " %s=%s", s.Env.Name, s.Env.Value)
	case harness.StepCommand:
		fmt.Fprintf(&b, " %q", s.Command)
	case harness.StepHook:
		fmt.Fprintf(&b, " %s", s.Hook.String())
	}
	if s.Phase != "" {
		fmt.Fprintf(&b, " (%s)", s.Phase)
	}
	return b.String()
}
