package harness

import (
	"errors"

	"github.com/roach88/sealed/internal/sandbox"
)

// TraceEvent records one executed step.
//
// Details are chosen to be deterministic for a given plan: source paths,
// NAME=value pairs, command lines, hook names and the run ID, never
// ephemeral directory paths or timestamps. Ordering uses Seq, a per-run
// logical clock.
type TraceEvent struct {
	Seq    int64    `json:"seq"`
	Step   StepKind `json:"step"`
	Phase  Phase    `json:"phase,omitempty"`
	Detail string   `json:"detail,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Result is the outcome of one harness execution.
type Result struct {
	// RunID identifies the invocation.
	RunID string `json:"run_id"`

	// Test names the wrapped test, when known.
	Test string `json:"test,omitempty"`

	// Class is the invocation outcome class.
	Class sandbox.OutcomeClass `json:"class"`

	// Primary is the outcome that determines pass/fail: the body failure,
	// or the first setup failure, or the first teardown failure after a
	// passing body. Nil when the invocation passed.
	Primary error `json:"-"`

	// Secondary holds teardown-stage failures that occurred after Primary
	// was already set. They are surfaced but never mask Primary.
	Secondary []error `json:"-"`

	// Trace lists the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	seq int64
}

// Failed reports whether the invocation ended in any failure class.
func (r *Result) Failed() bool {
	return r.Class != sandbox.OutcomePassed
}

// Err combines the primary and secondary failures into one error chain,
// primary first. Returns nil when the invocation passed.
func (r *Result) Err() error {
	if r.Primary == nil && len(r.Secondary) == 0 {
		return nil
	}
	if len(r.Secondary) == 0 {
		return r.Primary
	}
	return errors.Join(append([]error{r.Primary}, r.Secondary...)...)
}

// PrimaryMessage renders the primary failure for serialization.
func (r *Result) PrimaryMessage() string {
	if r.Primary == nil {
		return ""
	}
	return r.Primary.Error()
}

// SecondaryMessages renders the secondary failures for serialization.
func (r *Result) SecondaryMessages() []string {
	msgs := make([]string, 0, len(r.Secondary))
	for _, err := range r.Secondary {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

// record appends a trace event with the next sequence number.
func (r *Result) record(step StepKind, phase Phase, detail string, err error) {
	r.seq++
	ev := TraceEvent{Seq: r.seq, Step: step, Phase: phase, Detail: detail}
	if err != nil {
		ev.Error = err.Error()
	}
	r.Trace = append(r.Trace, ev)
}

// fail records a failure according to the priority rule: the first failure
// becomes primary, later ones append as secondary.
func (r *Result) fail(class sandbox.OutcomeClass, err error) {
	if r.Primary == nil {
		r.Primary = err
		r.Class = class
		return
	}
	r.Secondary = append(r.Secondary, err)
}
