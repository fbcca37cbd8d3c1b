package config

import "errors"

var (
	// ErrParsingConfig indicates environment variables could not be parsed
	// into the struct.
	ErrParsingConfig = errors.New("failed to parse environment into config")

	// ErrConfigNotLoaded indicates a previous load attempt for this type
	// failed and no cached value exists.
	ErrConfigNotLoaded = errors.New("configuration has not been loaded")

	// ErrNilPointer indicates a nil target was passed to the loader.
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)
