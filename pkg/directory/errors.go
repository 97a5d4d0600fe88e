package directory

import "errors"

var (
	// ErrSlugTaken is returned when creating a tenant with a slug that
	// already exists.
	ErrSlugTaken = errors.New("tenant slug already taken")

	// ErrDomainTaken is returned when attaching a custom domain that is
	// already claimed by another tenant.
	ErrDomainTaken = errors.New("custom domain already taken")

	// ErrSlugImmutable is returned when an update attempts to change a
	// tenant's slug. Domains and URLs are generated from the slug, so it is
	// frozen at creation.
	ErrSlugImmutable = errors.New("tenant slug is immutable")

	// ErrInvalidStatus is returned when a status value outside the lifecycle
	// state machine is written.
	ErrInvalidStatus = errors.New("invalid tenant status")
)
