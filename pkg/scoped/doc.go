// Package scoped provides tenant-scoped data access: a generic repository
// that injects the tenant predicate from the request context into every read
// and write, stamps new records with the owning tenant, and refuses changes
// that would move a record between tenants.
//
// Records belonging to another tenant behave as if they do not exist; reads
// return ErrNotFound and writes report zero rows. Queries with joins scope
// every tenant-owned joined table independently, so a join cannot widen the
// visible rows past the active tenant.
//
// Two backends share identical semantics: MemoryBackend for tests and
// PGBackend for Postgres via pgx. Administrative code escapes scoping only
// through tenant.RunUnscoped or tenant.RunAs, and every executed operation
// can be reported to an Observer for audit.
//
// Usage:
//
//	repo, err := scoped.NewRepository(leadMapper, backend, scoped.WithObserver(monitor))
//	if err != nil {
//		return err
//	}
//
//	// ctx carries the tenant bound by tenant.Middleware.
//	lead, err := repo.Find(ctx, leadID)
package scoped
