// Package store provides SQLite-backed storage for sandbox run records.
//
// The journal is an append-only history of harness invocations: one row per
// run with its outcome class and failure messages, plus the ordered step
// trace. The CLI writes a record after each `sealed run` and `sealed
// history` reads them back.
//
// Ordering always uses the per-run seq column (a logical clock), never
// timestamps, so traces read back exactly as they were recorded.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: trace events always belong to a run
package store
