// Package retry computes backoff delays and retry eligibility for failed
// channel sends. A Policy is a pure value: NextDelay(attempt) maps an
// attempt number to a duration under a fixed, linear, or exponential curve
// with optional jitter, and ShouldRetry consults the structured delivery
// error's retryable flag against the attempt budget.
//
// The adapter base runs the actual retry loop; this package deliberately
// owns no timers so it stays trivially testable.
package retry
