package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant.
type Status string

const (
	// StatusActive tenants resolve normally and may execute work.
	StatusActive Status = "active"
	// StatusSuspended tenants are temporarily blocked; the transition is reversible.
	StatusSuspended Status = "suspended"
	// StatusInactive tenants are decommissioned; reversible only administratively.
	StatusInactive Status = "inactive"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusInactive:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle state machine permits
// moving from s to next. Self-transitions are not permitted.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next || !s.Valid() || !next.Valid() {
		return false
	}
	switch s {
	case StatusActive:
		return next == StatusSuspended || next == StatusInactive
	case StatusSuspended:
		return next == StatusActive || next == StatusInactive
	case StatusInactive:
		// Administrative revival only; callers gate this path themselves.
		return next == StatusActive
	}
	return false
}

// Tenant is one isolated customer organization sharing the application instance.
//
// ID is the internal surrogate key stamped onto tenant-owned records; PublicID
// is the externally shareable identifier and never appears in scoping predicates.
type Tenant struct {
	ID          int64      `json:"-"`
	PublicID    uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Status      Status     `json:"status"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActive reports whether the tenant may resolve and execute work.
func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == StatusActive
}

// Provider loads tenant information from a data source.
// Implementations should handle various identifier formats
// (public UUID, slug, custom domain) based on application needs.
type Provider interface {
	// GetByIdentifier retrieves a tenant using any unique identifier.
	// Returns ErrTenantNotFound if no tenant matches the identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}

// ProviderFunc is an adapter to allow ordinary functions as Providers.
type ProviderFunc func(ctx context.Context, identifier string) (*Tenant, error)

// GetByIdentifier calls the function.
func (f ProviderFunc) GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	return f(ctx, identifier)
}

// CheckLiveness returns nil when the tenant may serve work, or the status-specific
// rejection error. A suspended or inactive tenant is a distinct failure from a
// missing tenant so callers never conflate "blocked" with "not found".
func CheckLiveness(t *Tenant) error {
	if t == nil {
		return ErrTenantNotFound
	}
	switch t.Status {
	case StatusActive:
		return nil
	case StatusSuspended:
		return ErrTenantSuspended
	default:
		return ErrTenantInactive
	}
}
