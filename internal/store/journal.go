package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/sealed/internal/harness"
)

// RunRecord is one journaled harness invocation.
type RunRecord struct {
	ID        string
	Test      string
	Class     string
	Primary   string
	Secondary []string
	StartedAt time.Time
}

// secondarySeparator joins secondary error messages into one column.
// A record separator keeps ordinary message text unambiguous.
const secondarySeparator = "\x1e"

// WriteRun journals a harness result and its step trace in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: replaying the same run
// ID is silently ignored.
func (s *Store) WriteRun(ctx context.Context, startedAt time.Time, res *harness.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, test, class, primary_error, secondary_errors, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		res.RunID,
		res.Test,
		string(res.Class),
		res.PrimaryMessage(),
		strings.Join(res.SecondaryMessages(), secondarySeparator),
		startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, ev := range res.Trace {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trace_events (run_id, seq, step, phase, detail, error)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`,
			res.RunID, ev.Seq, string(ev.Step), string(ev.Phase), ev.Detail, ev.Error,
		)
		if err != nil {
			return fmt.Errorf("write trace event %d: %w", ev.Seq, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, test, class, primary_error, secondary_errors, started_at
		FROM runs
		ORDER BY started_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var secondary, startedAt string
		if err := rows.Scan(&rec.ID, &rec.Test, &rec.Class, &rec.Primary, &secondary, &startedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if secondary != "" {
			rec.Secondary = strings.Split(secondary, secondarySeparator)
		}
		ts, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("list runs: invalid started_at %q: %w", startedAt, err)
		}
		rec.StartedAt = ts
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ReadTrace returns the step trace of one run in seq order.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]harness.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, step, phase, detail, error
		FROM trace_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	defer rows.Close()

	var trace []harness.TraceEvent
	for rows.Next() {
		var ev harness.TraceEvent
		var step, phase string
		if err := rows.Scan(&ev.Seq, &step, &phase, &ev.Detail, &ev.Error); err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
		ev.Step = harness.StepKind(step)
		ev.Phase = harness.Phase(phase)
		trace = append(trace, ev)
	}
	return trace, rows.Err()
}
