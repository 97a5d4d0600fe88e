package scoped

// FilterOp is a comparison operator in a structured predicate.
type FilterOp string

const (
	OpEq    FilterOp = "="
	OpNotEq FilterOp = "<>"
	OpGt    FilterOp = ">"
	OpGte   FilterOp = ">="
	OpLt    FilterOp = "<"
	OpLte   FilterOp = "<="
	OpIn    FilterOp = "in"
)

// Filter is one structured predicate. Table is empty for the base table of
// the query; set it to constrain a joined table instead. Structured filters
// (rather than SQL fragments) are what allow the tenant predicate to be
// injected and audited reliably.
type Filter struct {
	Table  string
	Column string
	Op     FilterOp
	Value  any
}

// Eq builds an equality predicate on the base table.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// NotEq builds an inequality predicate on the base table.
func NotEq(column string, value any) Filter {
	return Filter{Column: column, Op: OpNotEq, Value: value}
}

// Gt builds a greater-than predicate on the base table.
func Gt(column string, value any) Filter {
	return Filter{Column: column, Op: OpGt, Value: value}
}

// Gte builds a greater-or-equal predicate on the base table.
func Gte(column string, value any) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

// Lt builds a less-than predicate on the base table.
func Lt(column string, value any) Filter {
	return Filter{Column: column, Op: OpLt, Value: value}
}

// Lte builds a less-or-equal predicate on the base table.
func Lte(column string, value any) Filter {
	return Filter{Column: column, Op: OpLte, Value: value}
}

// In builds a membership predicate on the base table.
func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// On rebinds the filter to a named (joined) table.
func (f Filter) On(table string) Filter {
	f.Table = table
	return f
}

// Join declares an inner join against a secondary table. When the joined
// table is tenant-owned, it independently receives the tenant predicate:
// filtering only the base table of a join reintroduces leakage even though
// every base row is scoped.
type Join struct {
	// Table is the joined table name.
	Table string
	// LeftColumn is the join key on the base table.
	LeftColumn string
	// RightColumn is the join key on the joined table.
	RightColumn string
	// TenantOwned marks the joined table as carrying the tenant attribute.
	TenantOwned bool
}

// Query is the structured shape of a list/aggregate operation.
type Query struct {
	Filters []Filter
	Joins   []Join
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}
