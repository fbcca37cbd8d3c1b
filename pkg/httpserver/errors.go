package httpserver

import "errors"

var (
	// ErrStart indicates the server failed to start listening.
	ErrStart = errors.New("failed to start ops server")

	// ErrShutdown indicates graceful shutdown did not complete in time.
	ErrShutdown = errors.New("failed to shut down ops server gracefully")

	// ErrAlreadyRunning indicates Run was called twice on the same Server.
	ErrAlreadyRunning = errors.New("ops server already running")
)
