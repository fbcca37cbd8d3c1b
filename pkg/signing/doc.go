// Package signing implements the HMAC-SHA256 request signing scheme shared
// by the outbound webhook adapter (signing what we send) and the chat
// adapter (verifying what providers send us).
//
// The signature covers timestamp + "." + raw body under a shared secret and
// travels in three headers derived from a channel prefix:
// {prefix}-Signature, {prefix}-Timestamp, and {prefix}-ID. Verification uses
// constant-time comparison and rejects timestamps outside the replay window.
package signing
