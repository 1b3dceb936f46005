package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/roach88/sealed/internal/config"
	"github.com/roach88/sealed/internal/harness"
	"github.com/roach88/sealed/internal/sandbox"
	"github.com/roach88/sealed/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigFile string
	Root       string
	EnvFile    string
	Journal    string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDGenerator.
	RunIDs harness.RunIDGenerator
}

// RunReport is the serialized outcome of one isolated run.
type RunReport struct {
	RunID     string               `json:"run_id"`
	Class     sandbox.OutcomeClass `json:"class"`
	Primary   string               `json:"primary_error,omitempty"`
	Secondary []string             `json:"secondary_errors,omitempty"`
	Trace     []harness.TraceEvent `json:"trace,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [flags] -- <command> [args...]",
		Short: "Run a command inside a fresh sandbox",
		Long: `Run a command inside a fresh, private working directory.

The sandbox is prepared from the configuration file (staged files, environment
variables, setup commands and hooks), the command runs with the sandbox as its
working directory, and teardown runs regardless of the command's outcome. The
directory is removed afterwards.

Exit codes: 0 when the command succeeds, 1 when it fails, 2 when the sandbox
itself cannot be prepared or torn down.

Examples:
  sealed run -- make test
  sealed run --config sandbox.conf -- ./script.sh
  sealed run --config sandbox.yaml --env-file .env --journal runs.db -- go test ./...`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSandboxed(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "path to sandbox configuration file")
	cmd.Flags().StringVar(&opts.Root, "root", "", "project root that files entries resolve against (default: current directory)")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file loaded before the sandbox is prepared")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite run journal (created if missing)")

	return cmd
}

func runSandboxed(opts *RunOptions, argv []string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return WrapExitError(ExitCommandError, "failed to load env file", err)
		}
		logger.Debug("env file loaded", "path", opts.EnvFile)
	}

	cfg := &config.Config{}
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			var cfgErr *config.Error
			if errors.As(err, &cfgErr) {
				return WrapExitError(ExitFailure, "configuration rejected", err)
			}
			return WrapExitError(ExitCommandError, "failed to load configuration", err)
		}
		cfg = loaded
	}

	var journal *store.Store
	if opts.Journal != "" {
		st, err := store.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		journal = st
	}

	// Setup signal handling: an interrupt cancels in-flight commands but the
	// harness still runs teardown and releases the sandbox.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, cancelling", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	executor := &harness.Executor{
		Root:   opts.Root,
		Test:   argv[0],
		Logger: logger,
		RunIDs: opts.RunIDs,
	}
	plan := harness.Synthesize(cfg)

	startedAt := time.Now()
	res := executor.Execute(ctx, plan, func() error {
		return runBody(ctx, argv, cmd)
	})

	if journal != nil {
		if err := journal.WriteRun(ctx, startedAt, res); err != nil {
			logger.Error("failed to journal run", "run_id", res.RunID, "error", err)
		}
	}

	return outputRunResult(opts, cmd, res)
}

// runBody executes the command line with the sandbox directory as its
// working directory, streaming output through.
func runBody(ctx context.Context, argv []string, cmd *cobra.Command) error {
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	c.Stdin = os.Stdin
	return c.Run()
}

func outputRunResult(opts *RunOptions, cmd *cobra.Command, res *harness.Result) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if formatter.Format == "json" {
		report := RunReport{
			RunID:     res.RunID,
			Class:     res.Class,
			Primary:   res.PrimaryMessage(),
			Secondary: res.SecondaryMessages(),
		}
		if opts.Verbose {
			report.Trace = res.Trace
		}
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		switch res.Class {
		case sandbox.OutcomePassed:
			fmt.Fprintf(formatter.Writer, "✓ passed (run %s)\n", res.RunID)
		default:
			fmt.Fprintf(formatter.Writer, "✗ %s (run %s)\n", res.Class, res.RunID)
			fmt.Fprintf(formatter.Writer, "  %s\n", res.PrimaryMessage())
			for _, msg := range res.SecondaryMessages() {
				fmt.Fprintf(formatter.Writer, "  also: %s\n", msg)
			}
		}
	}

	switch res.Class {
	case sandbox.OutcomePassed:
		return nil
	case sandbox.OutcomeTestFailed:
		return NewExitError(ExitFailure, res.PrimaryMessage())
	default:
		return NewExitError(ExitCommandError, res.PrimaryMessage())
	}
}
