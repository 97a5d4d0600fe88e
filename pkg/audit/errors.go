package audit

import "errors"

var (
	// ErrStorageNil is returned when a monitor or writer is constructed
	// without storage.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrWriterClosed is returned when findings are submitted after Close.
	ErrWriterClosed = errors.New("async writer is closed")
)
