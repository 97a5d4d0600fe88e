package scoped

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Backend executes structured operations against the underlying storage.
// Implementations receive fully scoped queries; they never decide scoping
// themselves.
type Backend[T Record] interface {
	Insert(ctx context.Context, rec T) error
	Select(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int64, error)
	Update(ctx context.Context, q Query, changes map[string]any) (int64, error)
	Delete(ctx context.Context, q Query) (int64, error)

	// Describe renders a diagnostic statement summary for observation
	// (the SQL text for the Postgres backend).
	Describe(kind OpKind, q Query) string
}

type repoOptions struct {
	observer Observer
	global   bool
}

// RepositoryOption configures a repository.
type RepositoryOption func(*repoOptions)

// WithObserver attaches a passive operation observer (the audit monitor).
func WithObserver(obs Observer) RepositoryOption {
	return func(o *repoOptions) {
		o.observer = obs
	}
}

// Global marks the entity as intentionally tenant-agnostic (shared reference
// data such as country lists). No predicate is injected and no stamping
// happens. Use sparingly; everything else is tenant-owned.
func Global() RepositoryOption {
	return func(o *repoOptions) {
		o.global = true
	}
}

// Repository is the sole sanctioned access path to tenant-owned storage.
// Every operation composes the tenant predicate from the context before the
// backend executes, stamps creates, and treats foreign records as absent.
type Repository[T Record] struct {
	mapper   Mapper[T]
	backend  Backend[T]
	observer Observer
	global   bool
}

// NewRepository creates a scoped repository for one entity type.
func NewRepository[T Record](mapper Mapper[T], backend Backend[T], opts ...RepositoryOption) (*Repository[T], error) {
	if backend == nil {
		return nil, ErrBackendNil
	}
	if mapper.Table == "" {
		return nil, fmt.Errorf("mapper for %T: table name required", mapper.New)
	}

	options := &repoOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return &Repository[T]{
		mapper:   mapper,
		backend:  backend,
		observer: options.observer,
		global:   options.global,
	}, nil
}

// scope injects the tenant predicate into q based on the context: the base
// table and every tenant-owned joined table receive an equality filter on the
// tenant column. Inside RunUnscoped no predicate is injected; with no tenant
// bound the operation fails rather than running unscoped by accident.
func (r *Repository[T]) scope(ctx context.Context, q Query) (Query, bool, error) {
	if r.global {
		return q, false, nil
	}
	if tenant.IsUnscoped(ctx) {
		return q, true, nil
	}

	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return Query{}, false, ErrNoActiveTenant
	}

	col := r.mapper.tenantColumn()
	filters := make([]Filter, 0, len(q.Filters)+1+len(q.Joins))
	filters = append(filters, Filter{Column: col, Op: OpEq, Value: id})
	for _, join := range q.Joins {
		if join.TenantOwned {
			filters = append(filters, Filter{Table: join.Table, Column: col, Op: OpEq, Value: id})
		}
	}
	q.Filters = append(filters, q.Filters...)

	return q, tenant.IsBypass(ctx), nil
}

// observe reports an executed operation. Observation is strictly passive:
// observer panics are swallowed so detection can never become a gate.
func (r *Repository[T]) observe(ctx context.Context, kind OpKind, q Query, bypass bool) {
	if r.observer == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	r.observer.Observe(ctx, Operation{
		Kind:         kind,
		Table:        r.mapper.Table,
		TenantColumn: r.mapper.tenantColumn(),
		Joins:        q.Joins,
		Filters:      q.Filters,
		Bypass:       bypass,
		Impersonated: tenant.IsImpersonated(ctx),
		Statement:    r.backend.Describe(kind, q),
	})
}

// Find returns the record with the given identity, scoped to the active
// tenant. A record belonging to another tenant is ErrNotFound.
func (r *Repository[T]) Find(ctx context.Context, id any) (T, error) {
	var zero T
	if r.mapper.IDColumn == "" {
		return zero, ErrNoIdentityColumn
	}
	return r.FindBy(ctx, Eq(r.mapper.IDColumn, id))
}

// FindBy returns the first record matching the filters under the active
// tenant's scope.
func (r *Repository[T]) FindBy(ctx context.Context, filters ...Filter) (T, error) {
	var zero T

	q, bypass, err := r.scope(ctx, Query{Filters: filters, Limit: 1})
	if err != nil {
		return zero, err
	}

	recs, err := r.backend.Select(ctx, q)
	r.observe(ctx, OpSelect, q, bypass)
	if err != nil {
		return zero, fmt.Errorf("select %s: %w", r.mapper.Table, err)
	}
	if len(recs) == 0 {
		return zero, ErrNotFound
	}
	return recs[0], nil
}

// List returns all records matching the query under the active tenant's
// scope, including independent scoping of tenant-owned joined tables.
func (r *Repository[T]) List(ctx context.Context, q Query) ([]T, error) {
	q, bypass, err := r.scope(ctx, q)
	if err != nil {
		return nil, err
	}

	recs, err := r.backend.Select(ctx, q)
	r.observe(ctx, OpSelect, q, bypass)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", r.mapper.Table, err)
	}
	return recs, nil
}

// Count returns the number of records matching the filters under scope.
func (r *Repository[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	q, bypass, err := r.scope(ctx, Query{Filters: filters})
	if err != nil {
		return 0, err
	}

	n, err := r.backend.Count(ctx, q)
	r.observe(ctx, OpSelect, q, bypass)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.mapper.Table, err)
	}
	return n, nil
}

// Paginate returns one page of records plus the total under scope.
func (r *Repository[T]) Paginate(ctx context.Context, page, perPage int, q Query) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}

	countQ := Query{Filters: q.Filters, Joins: q.Joins}
	scopedCount, bypass, err := r.scope(ctx, countQ)
	if err != nil {
		return Page[T]{}, err
	}
	total, err := r.backend.Count(ctx, scopedCount)
	r.observe(ctx, OpSelect, scopedCount, bypass)
	if err != nil {
		return Page[T]{}, fmt.Errorf("count %s: %w", r.mapper.Table, err)
	}

	q.Limit = perPage
	q.Offset = (page - 1) * perPage
	items, err := r.List(ctx, q)
	if err != nil {
		return Page[T]{}, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// Create persists a new record, stamping it with the active tenant when the
// tenant attribute is unset. An explicit pre-set tenant is honored only when
// it matches the active tenant or the caller is inside an administrative
// bypass block; creating with no active tenant and no explicit target fails.
func (r *Repository[T]) Create(ctx context.Context, rec T) error {
	bypass := false

	if !r.global {
		explicit := rec.GetTenantID()
		activeID, hasActive := tenant.IDFromContext(ctx)
		bypass = tenant.IsBypass(ctx)

		switch {
		case explicit == 0 && hasActive:
			rec.SetTenantID(activeID)
		case explicit == 0:
			return ErrNoActiveTenant
		case bypass:
			// Administrative path: the explicit tenant wins.
		case hasActive && explicit == activeID:
			// Explicit stamp agrees with ambient context.
		case hasActive:
			return fmt.Errorf("%w: record targets tenant %d, context is tenant %d",
				ErrTenantMismatch, explicit, activeID)
		default:
			return ErrNoActiveTenant
		}
	}

	if err := r.backend.Insert(ctx, rec); err != nil {
		return fmt.Errorf("insert %s: %w", r.mapper.Table, err)
	}

	q := Query{Filters: []Filter{{Column: r.mapper.tenantColumn(), Op: OpEq, Value: rec.GetTenantID()}}}
	r.observe(ctx, OpInsert, q, bypass)
	return nil
}

// Update applies a change-set to the record with the given identity. The
// target is resolved through the scoped read path first, so a foreign id is
// ErrNotFound. A change-set that would alter the tenant binding fails with
// ErrTenantReassigned before anything is persisted.
func (r *Repository[T]) Update(ctx context.Context, id any, changes map[string]any) error {
	if r.mapper.IDColumn == "" {
		return ErrNoIdentityColumn
	}

	existing, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	col := r.mapper.tenantColumn()
	if v, present := changes[col]; present {
		if !sameID(v, existing.GetTenantID()) {
			return fmt.Errorf("%w: cannot move record to tenant %v", ErrTenantReassigned, v)
		}
		// Writing the identical value is a no-op; strip it from the set.
		changes = cloneWithout(changes, col)
	}
	if len(changes) == 0 {
		return nil
	}

	q, bypass, err := r.scope(ctx, Query{Filters: []Filter{Eq(r.mapper.IDColumn, id)}})
	if err != nil {
		return err
	}

	affected, err := r.backend.Update(ctx, q, changes)
	r.observe(ctx, OpUpdate, q, bypass)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.mapper.Table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record with the given identity under scope. A foreign
// id is ErrNotFound, indistinguishable from an absent record.
func (r *Repository[T]) Delete(ctx context.Context, id any) error {
	if r.mapper.IDColumn == "" {
		return ErrNoIdentityColumn
	}

	if _, err := r.Find(ctx, id); err != nil {
		return err
	}

	q, bypass, err := r.scope(ctx, Query{Filters: []Filter{Eq(r.mapper.IDColumn, id)}})
	if err != nil {
		return err
	}

	affected, err := r.backend.Delete(ctx, q)
	r.observe(ctx, OpDelete, q, bypass)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.mapper.Table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWhere removes every record matching the filters under scope and
// returns the number of rows removed.
func (r *Repository[T]) DeleteWhere(ctx context.Context, filters ...Filter) (int64, error) {
	q, bypass, err := r.scope(ctx, Query{Filters: filters})
	if err != nil {
		return 0, err
	}

	affected, err := r.backend.Delete(ctx, q)
	r.observe(ctx, OpDelete, q, bypass)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", r.mapper.Table, err)
	}
	return affected, nil
}

// sameID compares a change-set value against the stamped tenant id across
// the integer widths a decoded change-set may carry.
func sameID(v any, id int64) bool {
	switch n := v.(type) {
	case int64:
		return n == id
	case int:
		return int64(n) == id
	case int32:
		return int64(n) == id
	case float64:
		return int64(n) == id && n == float64(int64(n))
	default:
		return false
	}
}

func cloneWithout(changes map[string]any, col string) map[string]any {
	out := make(map[string]any, len(changes)-1)
	for k, v := range changes {
		if k != col {
			out[k] = v
		}
	}
	return out
}
