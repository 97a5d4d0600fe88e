package httpserver

import "log/slog"

// newNoopLogger returns a logger that discards every record. Used when no
// logger is configured so hooks never receive nil.
func newNoopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
