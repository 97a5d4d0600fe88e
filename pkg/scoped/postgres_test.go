package scoped

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	ID       int64
	TenantID int64
	Name     string
}

func (r *testRow) GetTenantID() int64   { return r.TenantID }
func (r *testRow) SetTenantID(id int64) { r.TenantID = id }

type nopQuerier struct{}

func (nopQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (nopQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (nopQuerier) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }

func testBackend(t *testing.T) *PGBackend[*testRow] {
	t.Helper()
	b, err := NewPGBackend[*testRow](nopQuerier{}, Mapper[*testRow]{
		Table:    "rows",
		IDColumn: "id",
		Columns:  []string{"id", "tenant_id", "name"},
		New:      func() *testRow { return &testRow{} },
		Values: func(r *testRow) map[string]any {
			return map[string]any{"id": r.ID, "tenant_id": r.TenantID, "name": r.Name}
		},
		ScanTargets: func(r *testRow) []any { return []any{&r.ID, &r.TenantID, &r.Name} },
		Apply:       func(*testRow, map[string]any) error { return nil },
	})
	require.NoError(t, err)
	return b
}

func TestBuildSelect(t *testing.T) {
	t.Parallel()

	t.Run("qualifies columns and parameterizes filters", func(t *testing.T) {
		t.Parallel()

		b := testBackend(t)
		query, args := b.buildSelect(Query{
			Filters: []Filter{
				{Column: "tenant_id", Op: OpEq, Value: int64(7)},
				{Column: "name", Op: OpEq, Value: "x"},
			},
			OrderBy: "name",
			Limit:   10,
			Offset:  20,
		}, false)

		assert.Equal(t,
			"SELECT rows.id, rows.tenant_id, rows.name FROM rows"+
				" WHERE rows.tenant_id = $1 AND rows.name = $2"+
				" ORDER BY rows.name LIMIT 10 OFFSET 20",
			query)
		assert.Equal(t, []any{int64(7), "x"}, args)
	})

	t.Run("scopes joined tables with their own predicate", func(t *testing.T) {
		t.Parallel()

		b := testBackend(t)
		query, args := b.buildSelect(Query{
			Joins: []Join{{Table: "campaigns", LeftColumn: "id", RightColumn: "row_id", TenantOwned: true}},
			Filters: []Filter{
				{Column: "tenant_id", Op: OpEq, Value: int64(7)},
				{Table: "campaigns", Column: "tenant_id", Op: OpEq, Value: int64(7)},
			},
		}, false)

		assert.Contains(t, query, "JOIN campaigns ON rows.id = campaigns.row_id")
		assert.Contains(t, query, "rows.tenant_id = $1")
		assert.Contains(t, query, "campaigns.tenant_id = $2")
		assert.Equal(t, []any{int64(7), int64(7)}, args)
	})

	t.Run("count mode", func(t *testing.T) {
		t.Parallel()

		b := testBackend(t)
		query, _ := b.buildSelect(Query{
			Filters: []Filter{{Column: "tenant_id", Op: OpEq, Value: int64(7)}},
		}, true)

		assert.Equal(t, "SELECT COUNT(*) FROM rows WHERE rows.tenant_id = $1", query)
	})

	t.Run("in filter expands placeholders", func(t *testing.T) {
		t.Parallel()

		b := testBackend(t)
		query, args := b.buildSelect(Query{
			Filters: []Filter{In("name", "a", "b", "c")},
		}, false)

		assert.Contains(t, query, "rows.name IN ($1, $2, $3)")
		assert.Equal(t, []any{"a", "b", "c"}, args)
	})

	t.Run("empty in filter matches nothing", func(t *testing.T) {
		t.Parallel()

		b := testBackend(t)
		query, args := b.buildSelect(Query{
			Filters: []Filter{{Column: "name", Op: OpIn, Value: []any{}}},
		}, false)

		assert.Contains(t, query, "FALSE")
		assert.Empty(t, args)
	})
}

func TestBuildWrites(t *testing.T) {
	t.Parallel()

	t.Run("update rejects joins", func(t *testing.T) {
		t.Parallel()

		b := testBackend(t)
		_, err := b.Update(context.Background(), Query{
			Joins: []Join{{Table: "campaigns"}},
		}, map[string]any{"name": "x"})
		require.Error(t, err)
	})

	t.Run("update ignores unknown columns", func(t *testing.T) {
		t.Parallel()

		b := testBackend(t)
		n, err := b.Update(context.Background(), Query{
			Filters: []Filter{{Column: "id", Op: OpEq, Value: int64(1)}},
		}, map[string]any{"nonexistent": "x"})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("delete rejects joins", func(t *testing.T) {
		t.Parallel()

		b := testBackend(t)
		_, err := b.Delete(context.Background(), Query{Joins: []Join{{Table: "campaigns"}}})
		require.Error(t, err)
	})
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	b := testBackend(t)
	q := Query{Filters: []Filter{{Column: "tenant_id", Op: OpEq, Value: int64(3)}}}

	assert.Contains(t, b.Describe(OpSelect, q), "SELECT")
	assert.Contains(t, b.Describe(OpUpdate, q), "UPDATE rows SET ...")
	assert.Contains(t, b.Describe(OpDelete, q), "DELETE FROM rows")
	assert.Contains(t, b.Describe(OpInsert, q), "INSERT INTO rows")
}
