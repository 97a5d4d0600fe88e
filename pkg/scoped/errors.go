package scoped

import "errors"

var (
	// ErrNotFound is returned when a record is absent or belongs to a
	// different tenant. The two cases are deliberately indistinguishable so
	// record existence cannot leak across tenant boundaries.
	ErrNotFound = errors.New("record not found")

	// ErrNoActiveTenant is returned when a write is attempted with no tenant
	// bound in the context and no explicit target tenant. The operation is
	// failed rather than defaulted; orphan records are never created.
	ErrNoActiveTenant = errors.New("no active tenant for scoped operation")

	// ErrTenantReassigned is returned when an update attempts to change a
	// record's tenant binding after creation. Rejected before any
	// persistence occurs.
	ErrTenantReassigned = errors.New("tenant binding is immutable")

	// ErrTenantMismatch is returned when a create carries an explicit tenant
	// that differs from the active context outside an administrative bypass
	// block.
	ErrTenantMismatch = errors.New("explicit tenant differs from active tenant")

	// ErrBackendNil is returned when a repository is constructed without a backend.
	ErrBackendNil = errors.New("backend cannot be nil")

	// ErrNoIdentityColumn is returned when a by-id operation is used against
	// an entity without a declared identity column (e.g. a junction table).
	ErrNoIdentityColumn = errors.New("entity has no identity column")
)
