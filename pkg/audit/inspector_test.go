package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

func newInspector(t *testing.T, tables ...string) (*audit.SQLInspector, *collectingSink) {
	t.Helper()
	sink := &collectingSink{}
	insp, err := audit.NewSQLInspector(sink, "", audit.WithInspectorTables(tables...))
	require.NoError(t, err)
	return insp, sink
}

func TestSQLInspector(t *testing.T) {
	t.Parallel()

	t.Run("flags a select on a registered table without the tenant column", func(t *testing.T) {
		t.Parallel()

		insp, sink := newInspector(t, "leads")
		insp.Inspect(tenantCtx(7), "SELECT id, name FROM leads WHERE stage = 'won'")

		findings := sink.all()
		require.Len(t, findings, 1)
		assert.Equal(t, audit.ReasonRawStatement, findings[0].Reason)
		assert.Equal(t, "leads", findings[0].Table)
		assert.Equal(t, int64(7), findings[0].ExpectedTenant)
	})

	t.Run("statement mentioning the tenant column passes", func(t *testing.T) {
		t.Parallel()

		insp, sink := newInspector(t, "leads")
		insp.Inspect(tenantCtx(7), "SELECT id FROM leads WHERE tenant_id = $1")
		assert.Empty(t, sink.all())
	})

	t.Run("inserts are not inspected", func(t *testing.T) {
		t.Parallel()

		insp, sink := newInspector(t, "leads")
		insp.Inspect(tenantCtx(7), "INSERT INTO leads (name) VALUES ($1)")
		assert.Empty(t, sink.all())
	})

	t.Run("unscoped bypass is exempt", func(t *testing.T) {
		t.Parallel()

		insp, sink := newInspector(t, "leads")
		_ = tenant.RunUnscoped(tenantCtx(7), func(ctx context.Context) error {
			insp.Inspect(ctx, "SELECT id FROM leads")
			return nil
		})
		assert.Empty(t, sink.all())
	})

	t.Run("no tenant in context is exempt", func(t *testing.T) {
		t.Parallel()

		insp, sink := newInspector(t, "leads")
		insp.Inspect(context.Background(), "SELECT id FROM leads")
		assert.Empty(t, sink.all())
	})

	t.Run("unregistered tables pass", func(t *testing.T) {
		t.Parallel()

		insp, sink := newInspector(t, "leads")
		insp.Inspect(tenantCtx(7), "SELECT id FROM countries")
		assert.Empty(t, sink.all())
	})

	t.Run("table names match on word boundaries", func(t *testing.T) {
		t.Parallel()

		insp, sink := newInspector(t, "tenants")
		insp.Inspect(tenantCtx(7), "SELECT id FROM tenants_archive")
		assert.Empty(t, sink.all())

		insp.Inspect(tenantCtx(7), "DELETE FROM tenants")
		assert.Len(t, sink.all(), 1)
	})
}
