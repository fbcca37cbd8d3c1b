package redis

import "errors"

var (
	// ErrInvalidConnectionURL indicates the Redis URL could not be parsed.
	ErrInvalidConnectionURL = errors.New("invalid redis connection url")

	// ErrNotReady indicates Redis did not accept a connection within the
	// configured attempts.
	ErrNotReady = errors.New("redis did not become ready")

	// ErrHealthcheckFailed indicates the Redis ping probe failed.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
