package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sealed/internal/sandbox"
)

// TraceSnapshot is the deterministic projection of a Result compared against
// golden files. It carries no ephemeral paths or wall-clock data; with a
// fixed run-ID generator the serialization is byte-identical across runs.
type TraceSnapshot struct {
	Test  string               `json:"test,omitempty"`
	Class sandbox.OutcomeClass `json:"class"`
	Trace []TraceEvent         `json:"trace"`
}

// AssertPlanGolden compares a synthesized plan against
// testdata/golden/{name}.golden. Regenerate with `go test -update`.
func AssertPlanGolden(t *testing.T, name string, plan *Plan) {
	t.Helper()
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal plan: %v", err)
	}
	newGoldie(t).Assert(t, name, data)
}

// AssertTraceGolden compares an execution trace against
// testdata/golden/{name}.golden. The result must have been produced with a
// deterministic run-ID generator, or the snapshot will not reproduce.
func AssertTraceGolden(t *testing.T, name string, res *Result) {
	t.Helper()
	snapshot := TraceSnapshot{Test: res.Test, Class: res.Class, Trace: res.Trace}
	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal trace snapshot: %v", err)
	}
	newGoldie(t).Assert(t, name, data)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
