package scoped

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantguard/pkg/pg"
)

// Querier is the subset of pgx used by the backend. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so a backend can run inside a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGBackend executes structured queries against Postgres. All predicates
// arrive already scoped; the backend's job is faithful, parameterized SQL.
type PGBackend[T Record] struct {
	mapper Mapper[T]
	db     Querier
}

// NewPGBackend creates a Postgres backend for one entity type.
func NewPGBackend[T Record](db Querier, mapper Mapper[T]) (*PGBackend[T], error) {
	if db == nil {
		return nil, ErrBackendNil
	}
	return &PGBackend[T]{mapper: mapper, db: db}, nil
}

// WithTx returns a backend bound to the given transaction.
func (b *PGBackend[T]) WithTx(tx pgx.Tx) *PGBackend[T] {
	return &PGBackend[T]{mapper: b.mapper, db: tx}
}

func (b *PGBackend[T]) Insert(ctx context.Context, rec T) error {
	values := b.mapper.Values(rec)

	// A zero identity means the database assigns it.
	returningID := b.mapper.IDColumn != "" && isZeroValue(values[b.mapper.IDColumn])

	cols := make([]string, 0, len(b.mapper.Columns))
	args := make([]any, 0, len(b.mapper.Columns))
	placeholders := make([]string, 0, len(b.mapper.Columns))
	for _, col := range b.mapper.Columns {
		if returningID && col == b.mapper.IDColumn {
			continue
		}
		cols = append(cols, col)
		args = append(args, values[col])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.mapper.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if returningID {
		query += " RETURNING " + b.mapper.IDColumn
		var id int64
		if err := b.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
			return err
		}
		return b.mapper.Apply(rec, map[string]any{b.mapper.IDColumn: id})
	}

	_, err := b.db.Exec(ctx, query, args...)
	return err
}

func (b *PGBackend[T]) Select(ctx context.Context, q Query) ([]T, error) {
	query, args := b.buildSelect(q, false)

	rows, err := b.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec := b.mapper.New()
		if err := rows.Scan(b.mapper.ScanTargets(rec)...); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *PGBackend[T]) Count(ctx context.Context, q Query) (int64, error) {
	query, args := b.buildSelect(q, true)

	var n int64
	if err := b.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (b *PGBackend[T]) Update(ctx context.Context, q Query, changes map[string]any) (int64, error) {
	if len(q.Joins) > 0 {
		return 0, fmt.Errorf("update %s: joins are not supported on writes", b.mapper.Table)
	}

	var (
		sets []string
		args []any
	)
	for _, col := range b.mapper.Columns {
		v, ok := changes[col]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return 0, nil
	}

	where, args := b.buildWhere(q.Filters, args, false)
	query := fmt.Sprintf("UPDATE %s SET %s%s", b.mapper.Table, strings.Join(sets, ", "), where)

	tag, err := b.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (b *PGBackend[T]) Delete(ctx context.Context, q Query) (int64, error) {
	if len(q.Joins) > 0 {
		return 0, fmt.Errorf("delete %s: joins are not supported on writes", b.mapper.Table)
	}

	where, args := b.buildWhere(q.Filters, nil, false)
	query := fmt.Sprintf("DELETE FROM %s%s", b.mapper.Table, where)

	tag, err := b.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Describe renders the statement the operation executes, with placeholders,
// for observation and findings.
func (b *PGBackend[T]) Describe(kind OpKind, q Query) string {
	switch kind {
	case OpInsert:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (...)",
			b.mapper.Table, strings.Join(b.mapper.Columns, ", "))
	case OpUpdate:
		where, _ := b.buildWhere(q.Filters, nil, false)
		return fmt.Sprintf("UPDATE %s SET ...%s", b.mapper.Table, where)
	case OpDelete:
		where, _ := b.buildWhere(q.Filters, nil, false)
		return fmt.Sprintf("DELETE FROM %s%s", b.mapper.Table, where)
	default:
		query, _ := b.buildSelect(q, false)
		return query
	}
}

// buildSelect renders a parameterized select. Every joined table's filters,
// tenant predicate included, land in the WHERE clause with the table
// qualifier, so a join can never widen the visible rows.
func (b *PGBackend[T]) buildSelect(q Query, count bool) (string, []any) {
	var sb strings.Builder

	if count {
		fmt.Fprintf(&sb, "SELECT COUNT(*) FROM %s", b.mapper.Table)
	} else {
		cols := make([]string, len(b.mapper.Columns))
		for i, c := range b.mapper.Columns {
			cols[i] = b.mapper.Table + "." + c
		}
		fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(cols, ", "), b.mapper.Table)
	}

	for _, j := range q.Joins {
		fmt.Fprintf(&sb, " JOIN %s ON %s.%s = %s.%s",
			j.Table, b.mapper.Table, j.LeftColumn, j.Table, j.RightColumn)
	}

	where, args := b.buildWhere(q.Filters, nil, true)
	sb.WriteString(where)

	if q.OrderBy != "" {
		fmt.Fprintf(&sb, " ORDER BY %s.%s", b.mapper.Table, q.OrderBy)
		if q.Desc {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}
	return sb.String(), args
}

func (b *PGBackend[T]) buildWhere(filters []Filter, args []any, qualify bool) (string, []any) {
	if len(filters) == 0 {
		return "", args
	}

	preds := make([]string, 0, len(filters))
	for _, f := range filters {
		col := f.Column
		if qualify {
			table := f.Table
			if table == "" {
				table = b.mapper.Table
			}
			col = table + "." + col
		}

		if f.Op == OpIn {
			values, _ := f.Value.([]any)
			if len(values) == 0 {
				preds = append(preds, "FALSE")
				continue
			}
			holders := make([]string, len(values))
			for i, v := range values {
				args = append(args, v)
				holders[i] = fmt.Sprintf("$%d", len(args))
			}
			preds = append(preds, fmt.Sprintf("%s IN (%s)", col, strings.Join(holders, ", ")))
			continue
		}

		args = append(args, f.Value)
		preds = append(preds, fmt.Sprintf("%s %s $%d", col, f.Op, len(args)))
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

// IsNotFound reports whether err is either the repository's ErrNotFound or
// the driver's no-rows error.
func IsNotFound(err error) bool {
	return pg.IsNotFoundError(err) || errors.Is(err, ErrNotFound)
}
