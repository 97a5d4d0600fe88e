package audit

import (
	"time"

	"github.com/google/uuid"
)

// Reason classifies why an operation was flagged.
type Reason string

const (
	// ReasonMissingPredicate: the operation ran with an active tenant but no
	// equality predicate on the tenant column of its base table.
	ReasonMissingPredicate Reason = "missing_predicate"

	// ReasonWrongTenant: a tenant predicate was present but bound to a
	// different tenant than the active context.
	ReasonWrongTenant Reason = "wrong_tenant"

	// ReasonUnscopedJoin: a tenant-owned joined table had no tenant
	// predicate of its own.
	ReasonUnscopedJoin Reason = "unscoped_join"

	// ReasonImpersonatedWrite: informational; a write ran under an
	// operator impersonation session. Not a violation, recorded so the
	// session leaves a trail distinct from normal tenant writes.
	ReasonImpersonatedWrite Reason = "impersonated_write"

	// ReasonRawStatement: advisory; raw SQL referenced a registered table
	// without any tenant column predicate.
	ReasonRawStatement Reason = "raw_statement"
)

// Finding is one append-only record of a suspected isolation violation.
// Findings are evidence for investigation, not a gate: the operation that
// produced one has already executed.
type Finding struct {
	ID             uuid.UUID `json:"id"`
	Table          string    `json:"table"`
	Statement      string    `json:"statement"`
	ExpectedTenant int64     `json:"expected_tenant"`
	Filters        []string  `json:"filters,omitempty"`
	Reason         Reason    `json:"reason"`
	Trace          string    `json:"trace,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
