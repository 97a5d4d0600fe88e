// Package directory is the persistent store of tenant records: identity,
// lifecycle status, verified custom domains, and grouped typed settings.
//
// The Store interface is implemented twice: PGStore over pgx for production
// and MemoryStore for tests. Both expose InTx so callers (notably tenant
// provisioning) can make multi-step writes atomic.
//
// NewProvider adapts a Store to the tenant.Provider interface consumed by the
// resolution middleware, dispatching on identifier shape: custom domain,
// public UUID, or slug.
package directory
