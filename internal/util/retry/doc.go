// Package retry provides backoff retries for transient failures and bounded
// polling for external state that converges over time.
//
// [WithExponentialBackoff] retries an operation (SSH dials, flaky command
// invocations) until it succeeds, returns a [Fatal] error, or runs out of
// attempts. [Poll] checks a condition at a fixed interval for a fixed
// number of attempts and reports a tri-state [Outcome] instead of looping
// with ad hoc sleeps.
package retry
