package scoped

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend is a storage backend holding rows in process memory. It
// enforces the same query semantics as the Postgres backend, including
// join-table filtering, which makes it the reference implementation for
// isolation tests.
type MemoryBackend[T Record] struct {
	mapper Mapper[T]

	mu       sync.RWMutex
	rows     []map[string]any
	joinRows map[string][]map[string]any
	seq      int64
}

// NewMemoryBackend creates an empty in-memory backend for one entity type.
func NewMemoryBackend[T Record](mapper Mapper[T]) *MemoryBackend[T] {
	return &MemoryBackend[T]{
		mapper:   mapper,
		joinRows: make(map[string][]map[string]any),
	}
}

// SeedJoinRows registers rows for a joined table so queries with Joins can
// be evaluated without a relational engine. Row maps are keyed by column.
func (m *MemoryBackend[T]) SeedJoinRows(table string, rows ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joinRows[table] = append(m.joinRows[table], rows...)
}

func (m *MemoryBackend[T]) Insert(_ context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := m.toRow(rec)
	if m.mapper.IDColumn != "" && isZeroValue(row[m.mapper.IDColumn]) {
		m.seq++
		row[m.mapper.IDColumn] = m.seq
		if err := m.mapper.Apply(rec, map[string]any{m.mapper.IDColumn: m.seq}); err != nil {
			return fmt.Errorf("assign id: %w", err)
		}
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *MemoryBackend[T]) Select(_ context.Context, q Query) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.match(q)
	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			less := lessValue(matched[i][q.OrderBy], matched[j][q.OrderBy])
			if q.Desc {
				return !less && !reflect.DeepEqual(matched[i][q.OrderBy], matched[j][q.OrderBy])
			}
			return less
		})
	}
	matched = window(matched, q.Limit, q.Offset)

	out := make([]T, 0, len(matched))
	for _, row := range matched {
		rec := m.mapper.New()
		if err := m.fromRow(rec, row); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryBackend[T]) Count(_ context.Context, q Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.match(q))), nil
}

func (m *MemoryBackend[T]) Update(_ context.Context, q Query, changes map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var affected int64
	for _, row := range m.match(q) {
		for col, v := range changes {
			row[col] = v
		}
		affected++
	}
	return affected, nil
}

func (m *MemoryBackend[T]) Delete(_ context.Context, q Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.rows[:0]
	var affected int64
	for _, row := range m.rows {
		if m.rowMatches(row, q) {
			affected++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return affected, nil
}

// Describe renders an SQL-like summary of the operation for observation.
func (m *MemoryBackend[T]) Describe(kind OpKind, q Query) string {
	var b strings.Builder
	switch kind {
	case OpInsert:
		fmt.Fprintf(&b, "INSERT INTO %s", m.mapper.Table)
	case OpUpdate:
		fmt.Fprintf(&b, "UPDATE %s", m.mapper.Table)
	case OpDelete:
		fmt.Fprintf(&b, "DELETE FROM %s", m.mapper.Table)
	default:
		fmt.Fprintf(&b, "SELECT FROM %s", m.mapper.Table)
	}
	for _, j := range q.Joins {
		fmt.Fprintf(&b, " JOIN %s ON %s.%s = %s.%s", j.Table, m.mapper.Table, j.LeftColumn, j.Table, j.RightColumn)
	}
	for i, f := range q.Filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		table := f.Table
		if table == "" {
			table = m.mapper.Table
		}
		fmt.Fprintf(&b, "%s.%s %s %v", table, f.Column, f.Op, f.Value)
	}
	return b.String()
}

// match returns the stored row maps satisfying the query, join conditions
// included. Returned maps alias storage; callers hold the lock.
func (m *MemoryBackend[T]) match(q Query) []map[string]any {
	var out []map[string]any
	for _, row := range m.rows {
		if m.rowMatches(row, q) {
			out = append(out, row)
		}
	}
	return out
}

func (m *MemoryBackend[T]) rowMatches(row map[string]any, q Query) bool {
	for _, f := range q.Filters {
		if f.Table != "" && f.Table != m.mapper.Table {
			continue // evaluated against the joined table below
		}
		if !filterMatches(row[f.Column], f) {
			return false
		}
	}
	for _, join := range q.Joins {
		if !m.joinMatches(row, join, q.Filters) {
			return false
		}
	}
	return true
}

// joinMatches reports whether at least one row of the joined table links to
// the base row and satisfies every filter bound to that table.
func (m *MemoryBackend[T]) joinMatches(row map[string]any, join Join, filters []Filter) bool {
	for _, jr := range m.joinRows[join.Table] {
		if !equalValue(jr[join.RightColumn], row[join.LeftColumn]) {
			continue
		}
		ok := true
		for _, f := range filters {
			if f.Table != join.Table {
				continue
			}
			if !filterMatches(jr[f.Column], f) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (m *MemoryBackend[T]) toRow(rec T) map[string]any {
	values := m.mapper.Values(rec)
	row := make(map[string]any, len(m.mapper.Columns))
	for _, col := range m.mapper.Columns {
		row[col] = values[col]
	}
	return row
}

func (m *MemoryBackend[T]) fromRow(rec T, row map[string]any) error {
	targets := m.mapper.ScanTargets(rec)
	for i, col := range m.mapper.Columns {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		dst := reflect.ValueOf(targets[i]).Elem()
		src := reflect.ValueOf(v)
		if !src.Type().AssignableTo(dst.Type()) {
			if src.Type().ConvertibleTo(dst.Type()) {
				src = src.Convert(dst.Type())
			} else {
				return fmt.Errorf("column %s: cannot assign %T", col, v)
			}
		}
		dst.Set(src)
	}
	return nil
}

func filterMatches(v any, f Filter) bool {
	switch f.Op {
	case OpEq:
		return equalValue(v, f.Value)
	case OpNotEq:
		return !equalValue(v, f.Value)
	case OpGt:
		return lessValue(f.Value, v)
	case OpGte:
		return !lessValue(v, f.Value)
	case OpLt:
		return lessValue(v, f.Value)
	case OpLte:
		return !lessValue(f.Value, v)
	case OpIn:
		rv := reflect.ValueOf(f.Value)
		if rv.Kind() != reflect.Slice {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if equalValue(v, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// equalValue compares two values with numeric widening so an int filter
// matches an int64 column.
func equalValue(a, b any) bool {
	if an, aok := asInt64(a); aok {
		bn, bok := asInt64(b)
		return bok && an == bn
	}
	return reflect.DeepEqual(a, b)
}

func lessValue(a, b any) bool {
	if an, aok := asInt64(a); aok {
		if bn, bok := asInt64(b); bok {
			return an < bn
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

func window(rows []map[string]any, limit, offset int) []map[string]any {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
