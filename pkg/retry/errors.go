package retry

import "errors"

var (
	// ErrInvalidPolicy indicates the policy configuration is invalid.
	ErrInvalidPolicy = errors.New("invalid retry policy")
)
