package sandbox

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Sandbox is the ephemeral working directory backing one invocation.
//
// Exactly one Sandbox exists per invocation. It is created by Enter, owned
// exclusively by the creating process, and destroyed by Leave regardless of
// the invocation outcome. It is never shared or reused.
type Sandbox struct {
	// ID identifies the invocation owning this sandbox.
	ID string

	// Root is the project root that staged sources are resolved against.
	// Defaults to the working directory in effect when Enter was called.
	Root string

	// Dir is the ephemeral working directory.
	Dir string

	prev string // working directory to restore on Leave
}

// Enter allocates an ephemeral directory and makes it the process's current
// working directory. The previous working directory becomes the staging root
// and is restored by Leave.
func Enter(id string) (*Sandbox, error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	dir, err := os.MkdirTemp("", "sealed-")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate sandbox directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		// Allocation failed halfway; don't leak the directory.
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to enter sandbox directory: %w", err)
	}
	return &Sandbox{ID: id, Root: prev, Dir: dir, prev: prev}, nil
}

// Leave restores the previous working directory and releases the ephemeral
// directory. Both operations are best-effort: the invocation outcome is
// already determined by the time Leave runs, so failures are logged and
// never escalated.
func (s *Sandbox) Leave(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.Chdir(s.prev); err != nil {
		logger.Warn("failed to restore working directory", "dir", s.prev, "error", err)
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		logger.Warn("failed to release sandbox directory", "dir", s.Dir, "error", err)
	}
}

// Stage copies a source file or directory from the project root into the
// sandbox working directory. The destination is named after the source's
// final path component; directories copy recursively.
func (s *Sandbox) Stage(source string) error {
	src := source
	if !filepath.IsAbs(src) {
		src = filepath.Join(s.Root, src)
	}
	dest := filepath.Join(s.Dir, filepath.Base(src))

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source %s: %w", source, err)
	}
	if info.IsDir() {
		if err := copyDir(src, dest); err != nil {
			return fmt.Errorf("source %s: %w", source, err)
		}
		return nil
	}
	if err := copyFile(src, dest, info.Mode()); err != nil {
		return fmt.Errorf("source %s: %w", source, err)
	}
	return nil
}
