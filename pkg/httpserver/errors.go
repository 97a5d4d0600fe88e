package httpserver

import "errors"

var (
	// ErrStart wraps listen failures reported by Run.
	ErrStart = errors.New("failed to start HTTP server")

	// ErrShutdown wraps errors from graceful shutdown.
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)
