package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Store is the persistent directory of tenant records. It is read by many
// concurrent units of work and written rarely (lifecycle transitions).
type Store interface {
	// Create persists a new tenant and fills in its generated identifiers.
	Create(ctx context.Context, t *tenant.Tenant) error

	// GetByID looks a tenant up by internal surrogate key.
	GetByID(ctx context.Context, id int64) (*tenant.Tenant, error)

	// GetByPublicID looks a tenant up by its externally shareable UUID.
	GetByPublicID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)

	// GetBySlug looks a tenant up by its URL-safe slug.
	GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)

	// GetByDomain looks a tenant up by a verified custom domain.
	GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error)

	// Update persists mutable tenant attributes. The slug is immutable once
	// set and must not be changed through this method.
	Update(ctx context.Context, t *tenant.Tenant) error

	// UpdateStatus performs a lifecycle transition.
	UpdateStatus(ctx context.Context, id int64, status tenant.Status) error

	// SlugExists reports whether the slug is already taken. Used by slug
	// derivation for deterministic collision resolution.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// AddDomain attaches a verified custom domain to a tenant.
	AddDomain(ctx context.Context, tenantID int64, domain string) error

	// ListSettings returns all settings of a tenant.
	ListSettings(ctx context.Context, tenantID int64) ([]tenant.Setting, error)

	// UpsertSetting creates or replaces one grouped setting.
	UpsertSetting(ctx context.Context, tenantID int64, s tenant.Setting) error

	// Delete hard-deletes a tenant row. Callers are responsible for the
	// cascade/export step; the common path is a status transition instead.
	Delete(ctx context.Context, id int64) error

	// InTx runs fn against a transactional view of the store. If fn returns
	// an error, every write made inside it is rolled back. Lifecycle
	// provisioning uses this so a tenant is never left half-provisioned.
	InTx(ctx context.Context, fn func(Store) error) error
}

// NewProvider adapts a Store to the tenant.Provider interface used by the
// resolution middleware. The identifier may be a custom domain (as produced
// by the domain resolver), a public UUID, or a slug.
func NewProvider(store Store) tenant.Provider {
	return tenant.ProviderFunc(func(ctx context.Context, identifier string) (*tenant.Tenant, error) {
		if host, ok := tenant.SplitDomainIdentifier(identifier); ok {
			return store.GetByDomain(ctx, host)
		}
		if id, err := uuid.Parse(identifier); err == nil {
			return store.GetByPublicID(ctx, id)
		}
		return store.GetBySlug(ctx, identifier)
	})
}
