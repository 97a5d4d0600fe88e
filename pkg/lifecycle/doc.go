// Package lifecycle manages tenant state transitions and operator access.
//
// The Manager provisions new tenants inside a single transaction, so a
// failed provisioning step never leaves a half-created tenant behind, and
// moves tenants between active, suspended, and inactive states. A
// transition immediately invalidates resolver caches and, when a
// SessionRevoker is attached, tears down the tenant's live sessions so a
// suspension takes effect mid-session rather than at next login.
//
// The Impersonator issues short-lived, single-use grants that let an
// operator act as a tenant. Redeeming a grant re-checks the tenant against
// the directory and yields a context carrying the impersonation marker, so
// every downstream write is attributable to an operator session.
package lifecycle
