package tenant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

func TestWithTenant(t *testing.T) {
	t.Parallel()

	t.Run("adds tenant to context", func(t *testing.T) {
		t.Parallel()

		testTenant := createTestTenant("acme", tenant.StatusActive)
		ctx := tenant.WithTenant(context.Background(), testTenant)

		retrieved, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, testTenant, retrieved)

		id, ok := tenant.IDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, testTenant.ID, id)

		publicID, ok := tenant.PublicIDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, testTenant.PublicID, publicID)
	})

	t.Run("overwrites existing tenant in context", func(t *testing.T) {
		t.Parallel()

		tenant1 := createTestTenant("acme", tenant.StatusActive)
		tenant2 := createTestTenant("globex", tenant.StatusActive)

		ctx := tenant.WithTenant(context.Background(), tenant1)
		ctx = tenant.WithTenant(ctx, tenant2)

		retrieved, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, tenant2, retrieved)
	})

	t.Run("clears bypass state of parent", func(t *testing.T) {
		t.Parallel()

		testTenant := createTestTenant("acme", tenant.StatusActive)
		err := tenant.RunUnscoped(context.Background(), func(ctx context.Context) error {
			rebound := tenant.WithTenant(ctx, testTenant)
			assert.False(t, tenant.IsUnscoped(rebound))
			assert.False(t, tenant.IsBypass(rebound))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns nil and false for empty context", func(t *testing.T) {
		t.Parallel()

		retrieved, ok := tenant.FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, retrieved)
	})

	t.Run("unscoped block has no tenant", func(t *testing.T) {
		t.Parallel()

		err := tenant.RunUnscoped(context.Background(), func(ctx context.Context) error {
			_, ok := tenant.FromContext(ctx)
			assert.False(t, ok)
			assert.True(t, tenant.IsUnscoped(ctx))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestMustFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns tenant when bound", func(t *testing.T) {
		t.Parallel()

		testTenant := createTestTenant("acme", tenant.StatusActive)
		ctx := tenant.WithTenant(context.Background(), testTenant)
		assert.Equal(t, testTenant, tenant.MustFromContext(ctx))
	})

	t.Run("panics without tenant", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			tenant.MustFromContext(context.Background())
		})
	})
}

func TestRunUnscoped(t *testing.T) {
	t.Parallel()

	t.Run("bypass is confined to the callback", func(t *testing.T) {
		t.Parallel()

		ambient := tenant.WithTenant(context.Background(), createTestTenant("acme", tenant.StatusActive))

		err := tenant.RunUnscoped(ambient, func(ctx context.Context) error {
			assert.True(t, tenant.IsUnscoped(ctx))
			return nil
		})
		require.NoError(t, err)

		// The caller's context is untouched.
		assert.False(t, tenant.IsUnscoped(ambient))
		retrieved, ok := tenant.FromContext(ambient)
		require.True(t, ok)
		assert.Equal(t, "acme", retrieved.Slug)
	})

	t.Run("propagates callback error", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("boom")
		err := tenant.RunUnscoped(context.Background(), func(ctx context.Context) error {
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("ambient state survives callback panic", func(t *testing.T) {
		t.Parallel()

		ambient := tenant.WithTenant(context.Background(), createTestTenant("acme", tenant.StatusActive))

		assert.Panics(t, func() {
			_ = tenant.RunUnscoped(ambient, func(ctx context.Context) error {
				panic("callback exploded")
			})
		})

		assert.False(t, tenant.IsUnscoped(ambient))
		_, ok := tenant.FromContext(ambient)
		assert.True(t, ok)
	})
}

func TestRunAs(t *testing.T) {
	t.Parallel()

	t.Run("substitutes tenant for the callback only", func(t *testing.T) {
		t.Parallel()

		acme := createTestTenant("acme", tenant.StatusActive)
		beta := createTestTenant("beta", tenant.StatusActive)

		ambient := tenant.WithTenant(context.Background(), acme)

		err := tenant.RunAs(ambient, beta, func(ctx context.Context) error {
			current, ok := tenant.FromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, beta.ID, current.ID)
			assert.True(t, tenant.IsImpersonated(ctx))
			assert.True(t, tenant.IsBypass(ctx))
			return nil
		})
		require.NoError(t, err)

		current, ok := tenant.FromContext(ambient)
		require.True(t, ok)
		assert.Equal(t, acme.ID, current.ID)
		assert.False(t, tenant.IsImpersonated(ambient))
	})

	t.Run("ambient restored exactly after panic", func(t *testing.T) {
		t.Parallel()

		acme := createTestTenant("acme", tenant.StatusActive)
		beta := createTestTenant("beta", tenant.StatusActive)
		ambient := tenant.WithTenant(context.Background(), acme)

		assert.Panics(t, func() {
			_ = tenant.RunAs(ambient, beta, func(ctx context.Context) error {
				panic("callback exploded")
			})
		})

		current, ok := tenant.FromContext(ambient)
		require.True(t, ok)
		assert.Equal(t, acme.ID, current.ID)
	})
}

func TestWithImpersonation(t *testing.T) {
	t.Parallel()

	testTenant := createTestTenant("acme", tenant.StatusActive)
	ctx := tenant.WithImpersonation(context.Background(), testTenant)

	retrieved, ok := tenant.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, testTenant, retrieved)
	assert.True(t, tenant.IsImpersonated(ctx))
	assert.False(t, tenant.IsUnscoped(ctx))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := tenant.LoggerExtractor()

	t.Run("extracts tenant id attr", func(t *testing.T) {
		t.Parallel()

		testTenant := createTestTenant("acme", tenant.StatusActive)
		ctx := tenant.WithTenant(context.Background(), testTenant)

		attr, ok := extract(ctx)
		require.True(t, ok)
		assert.Equal(t, "tenant_id", attr.Key)
		assert.Equal(t, testTenant.PublicID.String(), attr.Value.String())
	})

	t.Run("no attr without tenant", func(t *testing.T) {
		t.Parallel()

		_, ok := extract(context.Background())
		assert.False(t, ok)
	})
}
