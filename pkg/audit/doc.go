// Package audit detects tenant-isolation violations at runtime. It is the
// safety net behind the scoped repository: detection, not enforcement, and
// never in the hot path of the operations it watches.
//
// Two detectors feed one findings pipeline:
//
//   - Monitor implements scoped.Observer and verifies each executed
//     operation's structured predicates against the active tenant. This is
//     the authoritative check.
//   - SQLInspector implements pgx.QueryTracer and applies a best-effort
//     text heuristic to raw statements that bypass the repository.
//
// Findings flow through a Sink into Storage; AsyncWriter batches them and
// drops on overflow rather than ever blocking a request. Prometheus
// counters track inspected operations, findings by reason, and drops.
//
//	storage := audit.NewMemoryStorage()
//	writer, closeFn, _ := audit.NewAsyncWriter(storage, audit.AsyncOptions{})
//	defer closeFn(context.Background())
//
//	monitor, _ := audit.NewMonitor(writer, audit.WithTables("leads", "campaigns"))
//	repo, _ := scoped.NewRepository(mapper, backend, scoped.WithObserver(monitor))
package audit
