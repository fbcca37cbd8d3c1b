// Package comms defines the channel-agnostic message model shared by every
// layer of the communication delivery subsystem: the orchestrator, the
// adapter factory, and the channel adapters themselves.
//
// The central types are Message (what a producer wants delivered),
// DeliveryResult (what one channel attempt produced), and IncomingMessage
// (a normalized inbound provider webhook).
//
// Delivery failures are values, not Go errors: a failed attempt is a
// DeliveryResult with a structured DeliveryError carrying a stable code and
// a retryable flag. This lets the orchestrator make fallback decisions
// without string matching and guarantees adapters never panic or leak
// provider errors past their boundary.
package comms
