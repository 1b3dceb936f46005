package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ShellRunner executes command lines through the system shell.
//
// Each command line is passed verbatim to `sh -c`; interpretation of the
// line is entirely the shell's concern. The runner reports the exit code and
// combined output so the harness can apply its stop-at-first-non-zero
// contract.
type ShellRunner struct {
	// Env overrides the child environment when non-nil. The default is to
	// inherit the current process environment, which inside a sandbox child
	// already carries the configured variables.
	Env []string
}

// Run executes one command line in dir and blocks until it exits.
//
// A non-zero exit is not an error at this level: the exit code is returned
// alongside the combined output and err stays nil. err is reserved for
// failures to start the command at all.
func (r ShellRunner) Run(ctx context.Context, dir, command string) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return ee.ExitCode(), output, nil
		}
		return -1, output, fmt.Errorf("failed to run command %q: %w", command, err)
	}
	return 0, output, nil
}
