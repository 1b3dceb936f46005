package harness

import "github.com/google/uuid"

// RunIDGenerator produces identifiers for harness invocations.
// Implemented by UUIDGenerator (production) and testutil.FixedRunIDGenerator
// (deterministic traces in tests).
type RunIDGenerator interface {
	Generate() string
}

// UUIDGenerator generates time-sortable UUIDv7 run IDs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
