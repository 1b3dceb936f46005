// Package testutil provides deterministic helpers for harness tests.
package testutil

// FixedRunIDGenerator returns the same run ID every time.
//
// This enables deterministic execution traces and golden snapshot
// comparison: the same plan with the same FixedRunIDGenerator produces
// byte-identical trace serializations.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator that always returns id.
// If id is empty, Generate returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
// Implements harness.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
