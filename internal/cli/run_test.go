package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sealed/internal/store"
)

func TestRun_Success(t *testing.T) {
	out, err := execute(t, "run", "--", "true")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passed")
}

func TestRun_CommandFails(t *testing.T) {
	out, err := execute(t, "run", "--", "false")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "test_failed")
}

func TestRun_RunsInFreshDirectory(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	// The command's working directory is the sandbox, not the caller's.
	_, err = execute(t, "run", "--", "sh", "-c", `test "$PWD" != `+cwd)
	require.NoError(t, err)

	// The caller's working directory is restored afterwards.
	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, cwd, after)
}

func TestRun_ConfigEnvReachesCommand(t *testing.T) {
	path := writeConfigFile(t, "sandbox.conf", `env = [("SEALED_CLI_RUN_VAR", "from-config")]`)
	t.Cleanup(func() { os.Unsetenv("SEALED_CLI_RUN_VAR") })

	_, err := execute(t, "run", "--config", path,
		"--", "sh", "-c", `test "$SEALED_CLI_RUN_VAR" = from-config`)
	require.NoError(t, err)
}

func TestRun_EnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "extra.env")
	require.NoError(t, os.WriteFile(envPath, []byte("SEALED_CLI_DOTENV_VAR=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SEALED_CLI_DOTENV_VAR") })

	_, err := execute(t, "run", "--env-file", envPath,
		"--", "sh", "-c", `test "$SEALED_CLI_DOTENV_VAR" = from-dotenv`)
	require.NoError(t, err)
}

func TestRun_JournalRecordsRun(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(t, "run", "--journal", journal, "--", "true")
	require.NoError(t, err)

	st, err := store.Open(journal)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "passed", runs[0].Class)
	assert.Equal(t, "true", runs[0].Test)

	trace, err := st.ReadTrace(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, trace)
}

func TestRun_JSONOutput(t *testing.T) {
	out, err := execute(t, "run", "--format", "json", "--", "true")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "passed", data["class"])
	assert.NotEmpty(t, data["run_id"])
}

func TestRun_RejectedConfig(t *testing.T) {
	path := writeConfigFile(t, "sandbox.conf", `fils = ["a.txt"]`)

	_, err := execute(t, "run", "--config", path, "--", "true")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRun_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "absent.conf"), "--", "true")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_NoCommand(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
}
