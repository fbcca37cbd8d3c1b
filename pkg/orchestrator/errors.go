package orchestrator

import "errors"

var (
	// ErrInvalidRequest indicates the send request is missing required
	// fields.
	ErrInvalidRequest = errors.New("invalid send request")

	// ErrNoConfig indicates no adapter configuration exists for the
	// channel and organization.
	ErrNoConfig = errors.New("no adapter configuration for channel")
)
