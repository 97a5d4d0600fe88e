package slug

import "errors"

var (
	// ErrEmptySlug is returned when the input produces no usable slug
	// characters at all.
	ErrEmptySlug = errors.New("derived slug is empty")

	// ErrTooManyCollisions is returned when no free candidate was found
	// within the probe limit.
	ErrTooManyCollisions = errors.New("too many slug collisions")
)
