package scoped

import "context"

// OpKind classifies an executed data-access operation.
type OpKind string

const (
	OpSelect OpKind = "select"
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation is the structured description of one executed data-access
// operation, handed to the observer after execution. It carries everything
// needed to verify the tenant predicate was present without re-parsing SQL.
type Operation struct {
	Kind         OpKind
	Table        string
	TenantColumn string
	Joins        []Join
	Filters      []Filter
	// Bypass marks operations executed inside an administrative bypass
	// block; they intentionally omit or substitute the tenant predicate.
	Bypass bool
	// Impersonated marks operations whose tenant binding was established
	// by an operator acting as the tenant rather than by normal
	// resolution. Writes under impersonation are recorded distinctly.
	Impersonated bool
	// Statement is a human-readable summary of what was executed (the SQL
	// text for the Postgres backend). Diagnostic only.
	Statement string
}

// Observer passively inspects executed operations. Implementations must
// never mutate state or alter control flow of the operation they inspect;
// the repository isolates them accordingly (panics are swallowed, return
// values do not exist).
type Observer interface {
	Observe(ctx context.Context, op Operation)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op Operation)

// Observe calls the function.
func (f ObserverFunc) Observe(ctx context.Context, op Operation) { f(ctx, op) }
