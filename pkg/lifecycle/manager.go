package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantguard/pkg/directory"
	"github.com/dmitrymomot/tenantguard/pkg/slug"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// SessionRevoker invalidates every live session of a tenant. Suspension
// calls it so in-flight users lose access at their next request, not at
// their next login.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, tenantID int64) error
}

// SessionRevokerFunc adapts a function to the SessionRevoker interface.
type SessionRevokerFunc func(ctx context.Context, tenantID int64) error

// RevokeAll calls the function.
func (f SessionRevokerFunc) RevokeAll(ctx context.Context, tenantID int64) error {
	return f(ctx, tenantID)
}

// ProvisionFunc runs inside the creation transaction with a transactional
// view of the directory. Anything it writes is rolled back together with
// the tenant row if it fails.
type ProvisionFunc func(ctx context.Context, store directory.Store, t *tenant.Tenant) error

// Manager drives tenant lifecycle transitions against the directory,
// enforcing the status state machine and keeping dependent state (resolver
// cache entries, live sessions) consistent with each transition.
type Manager struct {
	store   directory.Store
	revoker SessionRevoker
	cache   tenant.Cache
	log     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionRevoker sets the hook invoked on suspension and deactivation.
func WithSessionRevoker(r SessionRevoker) ManagerOption {
	return func(m *Manager) {
		m.revoker = r
	}
}

// WithResolverCache sets the resolver cache to invalidate on transitions,
// so a suspension takes effect within the current requests rather than
// after the cache TTL.
func WithResolverCache(c tenant.Cache) ManagerOption {
	return func(m *Manager) {
		m.cache = c
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates a lifecycle manager over the directory store.
func NewManager(store directory.Store, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	m := &Manager{
		store: store,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// NewTenant carries the caller-supplied attributes of a tenant to create.
type NewTenant struct {
	Name  string
	Email string
	Phone string
	// Slug is optional; when empty it is derived from Name. Either way the
	// final slug is made unique with a numeric suffix on collision.
	Slug string
	// TrialDays sets a trial expiry this many days out. Zero means no trial.
	TrialDays int
}

// Create provisions a new tenant: derives a unique slug, writes the tenant
// row, and runs the provisioning callback, all inside one transaction. A
// failing callback rolls everything back; a tenant is never observable
// half-provisioned.
func (m *Manager) Create(ctx context.Context, in NewTenant, provision ProvisionFunc) (*tenant.Tenant, error) {
	base := in.Slug
	if base == "" {
		base = in.Name
	}
	uniqueSlug, err := slug.Unique(ctx, base, m.store.SlugExists)
	if err != nil {
		return nil, fmt.Errorf("derive slug: %w", err)
	}

	t := &tenant.Tenant{
		Name:   in.Name,
		Slug:   uniqueSlug,
		Email:  in.Email,
		Phone:  in.Phone,
		Status: tenant.StatusActive,
	}
	if in.TrialDays > 0 {
		trialEnd := time.Now().AddDate(0, 0, in.TrialDays)
		t.TrialEndsAt = &trialEnd
	}

	err = m.store.InTx(ctx, func(tx directory.Store) error {
		if err := tx.Create(ctx, t); err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		if provision != nil {
			if err := provision(ctx, tx, t); err != nil {
				return fmt.Errorf("%w: %w", ErrProvisionFailed, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("tenant created",
		slog.String("slug", t.Slug),
		slog.Int64("tenant_id", t.ID))
	return t, nil
}

// Suspend transitions a tenant to suspended and revokes its live sessions.
func (m *Manager) Suspend(ctx context.Context, id int64) error {
	return m.transition(ctx, id, tenant.StatusSuspended, true)
}

// Activate transitions a suspended or inactive tenant back to active.
func (m *Manager) Activate(ctx context.Context, id int64) error {
	return m.transition(ctx, id, tenant.StatusActive, false)
}

// Deactivate retires a tenant. Its data stays in place for export and
// retention; resolution and restores fail from here on.
func (m *Manager) Deactivate(ctx context.Context, id int64) error {
	return m.transition(ctx, id, tenant.StatusInactive, true)
}

func (m *Manager) transition(ctx context.Context, id int64, to tenant.Status, revokeSessions bool) error {
	t, err := m.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load tenant %d: %w", id, err)
	}
	if !t.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}

	if err := m.store.UpdateStatus(ctx, id, to); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	m.invalidate(ctx, t)

	if revokeSessions && m.revoker != nil {
		if err := m.revoker.RevokeAll(ctx, id); err != nil {
			// The transition already happened; resolution now rejects the
			// tenant even while stale sessions age out.
			m.log.Error("failed to revoke tenant sessions",
				slog.Int64("tenant_id", id),
				slog.String("error", err.Error()))
		}
	}

	m.log.Info("tenant status changed",
		slog.Int64("tenant_id", id),
		slog.String("from", string(t.Status)),
		slog.String("to", string(to)))
	return nil
}

// invalidate drops every cached resolver entry that can map to the tenant.
func (m *Manager) invalidate(ctx context.Context, t *tenant.Tenant) {
	if m.cache == nil {
		return
	}
	m.cache.Delete(ctx, t.Slug)
	m.cache.Delete(ctx, t.PublicID.String())
}
