// Package tenant provides the tenant model, the per-request tenant context,
// and HTTP tenant resolution for multi-tenant applications.
//
// The package is built around three core concepts:
//
//  1. Resolvers - extract tenant identifiers from HTTP requests using a
//     prioritized strategy chain (authenticated principal, custom domain,
//     subdomain, header, session)
//  2. Providers - load full tenant information from a data source
//  3. Context - the execution-scoped binding of the active tenant, including
//     the administrative bypass scopes RunUnscoped and RunAs
//
// # Resolution
//
// The middleware resolves the tenant exactly once per request, verifies the
// tenant is active, and binds it into the request context. Suspended and
// inactive tenants are rejected with an error distinct from "not found".
// Directory lookups are cached with a short TTL and bounded by a timeout;
// when resolution cannot complete, the request fails closed.
//
//	resolver := tenant.NewChainResolver(
//		tenant.NewPrincipalResolver(principalLookup),
//		tenant.NewDomainResolver("saas.com"),
//		tenant.NewSubdomainResolver(".saas.com"),
//		tenant.NewHeaderResolver("X-Tenant-ID"),
//	)
//
//	router.Use(tenant.Middleware(resolver, provider,
//		tenant.WithCacheTTL(time.Minute),
//		tenant.WithSkipPaths([]string{"/health"}),
//	))
//
// # Context and bypass
//
// The active tenant and the administrative bypass flags share one
// context-scoped value, so a bypass can never outlive its callback or leak
// into a concurrently executing unit of work:
//
//	err := tenant.RunAs(ctx, other, func(ctx context.Context) error {
//		// ctx is bound to other for this callback only
//		return doWork(ctx)
//	})
//	// the caller's ctx binding is unchanged here, even if doWork panicked
//
// # Settings
//
// Tenant settings are grouped key/value pairs with an explicit value kind
// (text, number, bool, structured JSON). Reading a value with the wrong
// accessor returns ErrInvalidSettingKind instead of silently coercing.
package tenant
