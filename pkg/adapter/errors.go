package adapter

import "errors"

// Domain errors for adapter lifecycle and configuration. Delivery failures
// are never Go errors; they travel inside comms.DeliveryResult.
var (
	// ErrInvalidConfig indicates the adapter configuration is invalid.
	ErrInvalidConfig = errors.New("invalid adapter configuration")

	// ErrAlreadyInitialized indicates Initialize was called twice.
	ErrAlreadyInitialized = errors.New("adapter already initialized")

	// ErrNotSupported indicates the operation is not available on this
	// channel, e.g. Receive on a one-way adapter.
	ErrNotSupported = errors.New("operation not supported by this channel")

	// ErrShutdownTimeout indicates in-flight sends did not drain within
	// the shutdown grace period.
	ErrShutdownTimeout = errors.New("adapter shutdown grace period exceeded")
)
