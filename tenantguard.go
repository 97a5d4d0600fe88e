// Package tenantguard is a multi-tenant data-isolation toolkit: it resolves
// the active tenant at the request edge, binds it into context, and keeps
// every read, write, and background task confined to that tenant from then
// on.
//
// The packages compose around one context contract (pkg/tenant):
//
//   - pkg/tenant resolves and binds the active tenant, with explicit,
//     auditable bypass via RunUnscoped and RunAs.
//   - pkg/directory is the tenant registry over Postgres or memory.
//   - pkg/scoped wraps data access so tenant predicates are injected
//     automatically and cross-tenant rows stay unreachable.
//   - pkg/carrier captures tenant identity into a serializable token and
//     restores it in workers, re-checking liveness at restore time.
//   - pkg/queue runs background tasks under their originating tenant.
//   - pkg/audit watches executed operations and records isolation findings.
//   - pkg/lifecycle provisions tenants and moves them between states,
//     revoking sessions and caches so transitions take effect immediately.
package tenantguard

import "embed"

// Migrations holds the embedded SQL schema migrations, applied with
// pg.Migrate at service startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS
