// Package harness synthesizes and executes the ordered procedure that wraps
// a test body in a sealed sandbox.
//
// # Synthesis
//
// Synthesize turns a parsed configuration into a Plan: an ordered list of
// steps that is pure data until executed. The order is a strict contract:
//
//	1. allocate the sandbox (ephemeral directory, chdir into it)
//	2. stage each declared file or directory, in declaration order
//	3. set each declared environment variable, in declaration order
//	4. run each cmd_before command, stopping at the first non-zero exit
//	5. invoke the before hook
//	6. run the test body
//	7. invoke the after hook, regardless of the body outcome
//	8. run each cmd_after command, same semantics as step 4
//	9. release the sandbox (restore directory, remove tree, best-effort)
//
// Steps 2-5 short-circuit on first failure, skipping directly to step 9
// without running the body. Once the sandbox is allocated, step 9 always
// runs, including when the body panics.
//
// # Failure Priority
//
// The body outcome is the invocation's primary failure. Failures in steps
// 7-8 that occur after a body failure are recorded as secondary diagnostics
// and never mask it; after a passing body they become the primary failure
// with the harness-failed class.
//
// # Tracing
//
// Every executed step appends a TraceEvent with a monotonic sequence number.
// With a fixed run-ID generator the trace is deterministic, which the golden
// helpers rely on for byte-identical comparison.
package harness
