package preferences

import "errors"

var (
	// ErrNotFound indicates no preference record exists for the user.
	ErrNotFound = errors.New("preference not found")

	// ErrInvalidPreference indicates a preference record failed validation.
	ErrInvalidPreference = errors.New("invalid preference")

	// ErrInvalidWindow indicates a quiet-hours window is malformed.
	ErrInvalidWindow = errors.New("invalid quiet-hours window")

	// ErrIdentifierNotFound indicates the identifier is not registered for
	// the channel.
	ErrIdentifierNotFound = errors.New("identifier not registered")
)
