// Package adapter defines the channel adapter contract and the shared send
// pipeline every concrete adapter builds on.
//
// # Architecture
//
// An Adapter translates the generic comms.Message model into one external
// provider's wire protocol. Concrete implementations (chat, hook, sms, mail)
// embed Base and supply only:
//
//   - their provider request/response mapping (a ProviderCall)
//   - their recipient identifier validation
//   - their classification of provider error codes into retryable vs fatal
//
// Base owns everything else: lifecycle state transitions, token-bucket
// admission, per-attempt timeouts, the backoff-driven retry loop, in-flight
// send tracking for graceful shutdown, and normalization of every failure
// into the structured DeliveryResult error.
//
// # Lifecycle
//
//	uninitialized -> initializing -> ready <-> degraded -> shutdown
//
// Degraded is entered after consecutive health-check failures or a
// non-retryable authentication error. A degraded adapter keeps accepting
// sends so transient provider incidents heal without operator action; the
// factory surfaces the state through its health map.
package adapter
