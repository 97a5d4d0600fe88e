package scoped

// Record is the capability implemented by tenant-owned entities. The tenant
// binding is stamped exactly once at creation and is immutable thereafter;
// the repository enforces both halves of that invariant.
//
// Implement it on the pointer type and instantiate repositories with that
// pointer type:
//
//	type Lead struct {
//		ID       int64
//		TenantID int64
//		Name     string
//	}
//
//	func (l *Lead) GetTenantID() int64   { return l.TenantID }
//	func (l *Lead) SetTenantID(id int64) { l.TenantID = id }
//
//	repo := scoped.NewRepository[*Lead](mapper, backend)
type Record interface {
	GetTenantID() int64
	SetTenantID(id int64)
}

// Mapper describes how an entity maps onto its table. It is the single
// source of truth both backends share: the Postgres backend builds SQL from
// it, the memory backend evaluates filters against Values.
type Mapper[T Record] struct {
	// Table is the entity's table name.
	Table string

	// IDColumn is the primary identity column. Leave empty for pure
	// association/junction rows; by-id operations then fail with
	// ErrNoIdentityColumn and callers use predicate-based operations.
	IDColumn string

	// TenantColumn is the tenant attribute column. Defaults to "tenant_id"
	// when empty.
	TenantColumn string

	// Columns lists every column in declaration order, including the
	// identity and tenant columns.
	Columns []string

	// New allocates an empty record.
	New func() T

	// Values extracts the record's column values keyed by column name.
	Values func(rec T) map[string]any

	// ScanTargets returns scan destinations aligned with Columns.
	ScanTargets func(rec T) []any

	// Apply mutates the record with a change-set keyed by column name.
	Apply func(rec T, changes map[string]any) error
}

func (m Mapper[T]) tenantColumn() string {
	if m.TenantColumn == "" {
		return "tenant_id"
	}
	return m.TenantColumn
}
