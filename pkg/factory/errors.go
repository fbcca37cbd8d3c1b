package factory

import "errors"

var (
	// ErrUnknownChannel indicates no adapter constructor is registered for
	// the requested channel type.
	ErrUnknownChannel = errors.New("no adapter registered for channel")

	// ErrFactoryClosed indicates the factory has been shut down and no
	// longer serves adapters.
	ErrFactoryClosed = errors.New("adapter factory is closed")
)
