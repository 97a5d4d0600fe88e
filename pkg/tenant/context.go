package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// scope is the per-unit-of-work tenant binding. It also carries the
// administrative bypass flags so that bypass state lives in the same
// execution-scoped storage as the tenant itself and can never leak
// through shared mutable state.
type scope struct {
	tenant       *Tenant
	unscoped     bool
	impersonated bool
}

func scopeFromContext(ctx context.Context) (*scope, bool) {
	s, ok := ctx.Value(contextKey{}).(*scope)
	return s, ok
}

// WithTenant returns a derived context bound to the given tenant.
// Any bypass state of the parent context is discarded.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, &scope{tenant: t})
}

// FromContext retrieves the tenant from the context.
// Returns nil, false if no tenant is bound.
func FromContext(ctx context.Context) (*Tenant, bool) {
	s, ok := scopeFromContext(ctx)
	if !ok || s.tenant == nil {
		return nil, false
	}
	return s.tenant, true
}

// IDFromContext retrieves just the internal tenant ID from the context.
func IDFromContext(ctx context.Context) (int64, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return 0, false
	}
	return t.ID, true
}

// PublicIDFromContext retrieves the externally shareable tenant ID from the context.
func PublicIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return t.PublicID, true
}

// MustFromContext retrieves the tenant from the context.
// Panics if no tenant is bound. Use this only in handlers
// that absolutely require a tenant to function.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// IsUnscoped reports whether the context is inside a RunUnscoped block.
func IsUnscoped(ctx context.Context) bool {
	s, ok := scopeFromContext(ctx)
	return ok && s.unscoped
}

// IsBypass reports whether the context is inside any administrative bypass
// block (RunUnscoped or RunAs). Audit monitoring exempts such operations.
func IsBypass(ctx context.Context) bool {
	s, ok := scopeFromContext(ctx)
	return ok && (s.unscoped || s.impersonated)
}

// IsImpersonated reports whether the tenant binding was established on
// behalf of an administrator rather than by normal resolution.
func IsImpersonated(ctx context.Context) bool {
	s, ok := scopeFromContext(ctx)
	return ok && s.impersonated
}

// WithImpersonation returns a derived context bound to the given tenant and
// flagged as administratively established. Writes performed under it are
// logged distinctly from normal tenant writes.
func WithImpersonation(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, &scope{tenant: t, impersonated: true})
}

// RunUnscoped executes fn with tenant scoping suspended. The bypass exists
// only in the derived context passed to fn; the caller's context is never
// mutated, so prior state is restored on any exit path including panics,
// and concurrent units of work cannot observe each other's bypass.
func RunUnscoped(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, contextKey{}, &scope{unscoped: true}))
}

// RunAs executes fn with the tenant binding substituted for t, regardless of
// the ambient binding. As with RunUnscoped, the substitution is confined to
// the derived context passed to fn.
func RunAs(ctx context.Context, t *Tenant, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, contextKey{}, &scope{tenant: t, impersonated: true}))
}

// LoggerExtractor returns a ContextExtractor for the logger that extracts
// the tenant ID from context. Impersonation sessions additionally carry an
// impersonated marker so their records stand apart from normal tenant
// traffic.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := PublicIDFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		if IsImpersonated(ctx) {
			// Empty-keyed group attrs are inlined by slog handlers.
			return slog.Attr{Value: slog.GroupValue(
				slog.String("tenant_id", id.String()),
				slog.Bool("impersonated", true),
			)}, true
		}
		return slog.String("tenant_id", id.String()), true
	}
}
