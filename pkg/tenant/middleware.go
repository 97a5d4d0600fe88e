package tenant

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Middleware creates HTTP middleware that resolves the active tenant for the
// request and binds it into the request context.
//
// Resolution happens at most once per request: if an upstream middleware
// already bound a tenant, the binding is reused rather than re-derived, so the
// context cannot drift mid-request. Resolved tenants pass a liveness check;
// suspended and inactive tenants are rejected with a failure distinct from
// "not found". Directory lookups are bounded by the configured timeout and
// fail closed.
func Middleware(resolver Resolver, provider Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		cache:          NewInMemoryCache(),
		cacheTTL:       5 * time.Minute,
		errorHandler:   defaultErrorHandler,
		resolveTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Resolution is idempotent within one request.
			if _, ok := FromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			identifier, err := resolver(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			// No identifier found, continue without tenant.
			if identifier == "" {
				next.ServeHTTP(w, r)
				return
			}

			if cached, ok := cfg.cache.Get(r.Context(), identifier); ok {
				if err := CheckLiveness(cached); err != nil {
					cfg.errorHandler(w, r, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), cached)))
				return
			}

			t, err := lookupWithTimeout(r.Context(), provider, identifier, cfg.resolveTimeout)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			if err := CheckLiveness(t); err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			cfg.cache.Set(r.Context(), identifier, t, cfg.cacheTTL)

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
		})
	}
}

// lookupWithTimeout performs the directory lookup under a bounded deadline.
// A deadline hit or unavailable directory rejects the request; it never
// degrades to "no tenant".
func lookupWithTimeout(ctx context.Context, provider Provider, identifier string, timeout time.Duration) (*Tenant, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t, err := provider.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrResolutionTimeout
		}
		return nil, err
	}
	return t, nil
}

// RequireTenant creates middleware that ensures a tenant is bound in the
// context, for protecting routes that cannot operate tenant-less.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
