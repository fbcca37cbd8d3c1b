package signing

import "errors"

var (
	// ErrInvalidSecret indicates a missing or unusable shared secret.
	ErrInvalidSecret = errors.New("invalid signing secret")

	// ErrInvalidPayload indicates an empty payload.
	ErrInvalidPayload = errors.New("invalid signing payload")

	// ErrInvalidSignature indicates verification failed: missing headers,
	// stale timestamp, or signature mismatch.
	ErrInvalidSignature = errors.New("invalid signature")
)
