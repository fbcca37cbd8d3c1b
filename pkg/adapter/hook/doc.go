// Package hook implements the outbound webhook channel adapter. Deliveries
// are signed JSON envelopes posted to subscriber-owned endpoints with a
// configurable auth scheme (none, bearer, API key, basic) and custom
// headers. A per-instance circuit breaker stops hammering endpoints that
// fail consistently; an open circuit surfaces as a retryable delivery error
// so the orchestrator can fall back to another channel.
package hook
