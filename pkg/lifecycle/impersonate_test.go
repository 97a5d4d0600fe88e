package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/directory"
	"github.com/dmitrymomot/tenantguard/pkg/lifecycle"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

func seedTenant(t *testing.T, store *directory.MemoryStore, name string) *tenant.Tenant {
	t.Helper()
	mgr, err := lifecycle.NewManager(store)
	require.NoError(t, err)
	created, err := mgr.Create(context.Background(), lifecycle.NewTenant{Name: name}, nil)
	require.NoError(t, err)
	return created
}

func TestImpersonate(t *testing.T) {
	t.Parallel()

	secret := []byte("test-signing-secret")

	t.Run("grant redeems into an impersonated context", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := seedTenant(t, store, "Acme")
		imp, err := lifecycle.NewImpersonator(secret, store)
		require.NoError(t, err)

		grant, err := imp.Impersonate(context.Background(), "admin-7", acme.ID, time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, grant)

		ctx, got, err := imp.Redeem(context.Background(), grant)
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)

		bound, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, acme.ID, bound.ID)
		assert.True(t, tenant.IsImpersonated(ctx))
	})

	t.Run("grant is single use", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := seedTenant(t, store, "Acme")
		imp, err := lifecycle.NewImpersonator(secret, store)
		require.NoError(t, err)

		grant, err := imp.Impersonate(context.Background(), "admin-7", acme.ID, time.Minute)
		require.NoError(t, err)

		_, _, err = imp.Redeem(context.Background(), grant)
		require.NoError(t, err)
		_, _, err = imp.Redeem(context.Background(), grant)
		assert.ErrorIs(t, err, lifecycle.ErrGrantUsed)
	})

	t.Run("expired grant rejected", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := seedTenant(t, store, "Acme")
		imp, err := lifecycle.NewImpersonator(secret, store)
		require.NoError(t, err)

		grant, err := imp.Impersonate(context.Background(), "admin-7", acme.ID, time.Millisecond)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		_, _, err = imp.Redeem(context.Background(), grant)
		assert.ErrorIs(t, err, lifecycle.ErrGrantInvalid)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := seedTenant(t, store, "Acme")
		issuer, err := lifecycle.NewImpersonator(secret, store)
		require.NoError(t, err)
		verifier, err := lifecycle.NewImpersonator([]byte("different-secret"), store)
		require.NoError(t, err)

		grant, err := issuer.Impersonate(context.Background(), "admin-7", acme.ID, time.Minute)
		require.NoError(t, err)

		_, _, err = verifier.Redeem(context.Background(), grant)
		assert.ErrorIs(t, err, lifecycle.ErrGrantInvalid)
	})

	t.Run("suspension between issue and redeem invalidates the grant", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := seedTenant(t, store, "Acme")
		imp, err := lifecycle.NewImpersonator(secret, store)
		require.NoError(t, err)
		mgr, err := lifecycle.NewManager(store)
		require.NoError(t, err)

		grant, err := imp.Impersonate(context.Background(), "admin-7", acme.ID, time.Minute)
		require.NoError(t, err)
		require.NoError(t, mgr.Suspend(context.Background(), acme.ID))

		_, _, err = imp.Redeem(context.Background(), grant)
		assert.ErrorIs(t, err, tenant.ErrTenantSuspended)
	})

	t.Run("cannot issue for a suspended tenant", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := seedTenant(t, store, "Acme")
		mgr, err := lifecycle.NewManager(store)
		require.NoError(t, err)
		require.NoError(t, mgr.Suspend(context.Background(), acme.ID))

		imp, err := lifecycle.NewImpersonator(secret, store)
		require.NoError(t, err)
		_, err = imp.Impersonate(context.Background(), "admin-7", acme.ID, time.Minute)
		assert.ErrorIs(t, err, tenant.ErrTenantSuspended)
	})

	t.Run("constructor guards", func(t *testing.T) {
		t.Parallel()

		_, err := lifecycle.NewImpersonator(nil, directory.NewMemoryStore())
		assert.ErrorIs(t, err, lifecycle.ErrSecretMissing)
		_, err = lifecycle.NewImpersonator([]byte("secret"), nil)
		assert.ErrorIs(t, err, lifecycle.ErrStoreNil)
	})

	t.Run("garbage grant rejected", func(t *testing.T) {
		t.Parallel()

		imp, err := lifecycle.NewImpersonator(secret, directory.NewMemoryStore())
		require.NoError(t, err)
		_, _, err = imp.Redeem(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, lifecycle.ErrGrantInvalid)
	})
}

func TestMemoryLedger(t *testing.T) {
	t.Parallel()

	ledger := lifecycle.NewMemoryLedger()
	ctx := context.Background()

	first, err := ledger.MarkUsed(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := ledger.MarkUsed(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	// Expired entries are reclaimed and the id becomes usable again.
	first, err = ledger.MarkUsed(ctx, "jti-2", -time.Second)
	require.NoError(t, err)
	assert.True(t, first)
	first, err = ledger.MarkUsed(ctx, "jti-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
}
