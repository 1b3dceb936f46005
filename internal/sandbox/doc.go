// Package sandbox provides the isolated environment primitives composed by
// the harness: an ephemeral working directory owned by one invocation, a
// recursive staging copy, a shell command runner, and process isolation via
// re-execution of the current test binary.
//
// # Isolation Model
//
// Isolation is structural, not lock-based. Each invocation gets a dedicated
// child process, so mutation of process-global state (environment variables,
// current working directory) can never be observed by another concurrently
// running invocation. The parent blocks until the child terminates and
// translates its exit status into an Outcome.
//
// Spawn re-executes the running test binary with -test.run pinned to one
// test and a marker environment variable identifying the child role. It is
// therefore only meaningful inside a `go test` binary.
package sandbox
