// Package ratelimiter implements token-bucket admission control for channel
// adapters. Every adapter instance owns one Bucket sized from its
// configuration; concurrent sends to the same adapter contend only on that
// bucket's mutex.
//
// TryAcquire is non-blocking and suits callers that map exhaustion to a
// RATE_LIMITED delivery error. Acquire waits for a refill, for adapters
// configured to queue briefly instead.
package ratelimiter
