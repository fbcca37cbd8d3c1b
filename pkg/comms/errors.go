package comms

import "errors"

// Package-level error definitions for message validation.
var (
	// ErrInvalidMessage indicates the message type is missing or unknown.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrEmptyContent indicates the content payload does not match the
	// declared message type.
	ErrEmptyContent = errors.New("empty message content")
)
