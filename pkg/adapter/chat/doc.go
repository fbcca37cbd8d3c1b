// Package chat implements the instant-messaging channel adapter. It speaks
// JSON over the provider's REST API with bearer authentication and is the
// subsystem's only two-way channel: Receive verifies the provider's webhook
// signature (HMAC-SHA256, X-Chat-* headers) and normalizes the payload into
// a comms.IncomingMessage.
package chat
