package carrier_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/carrier"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

type fakeDirectory struct {
	tenants map[uuid.UUID]*tenant.Tenant
}

func (d *fakeDirectory) GetByIdentifier(_ context.Context, identifier string) (*tenant.Tenant, error) {
	id, err := uuid.Parse(identifier)
	if err != nil {
		return nil, tenant.ErrInvalidIdentifier
	}
	t, ok := d.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func newFixture(t *testing.T) (*fakeDirectory, *tenant.Tenant, *tenant.Tenant) {
	t.Helper()
	now := time.Now()
	acme := &tenant.Tenant{ID: 1, PublicID: uuid.New(), Name: "Acme", Slug: "acme", Status: tenant.StatusActive, CreatedAt: now, UpdatedAt: now}
	beta := &tenant.Tenant{ID: 2, PublicID: uuid.New(), Name: "Beta", Slug: "beta", Status: tenant.StatusActive, CreatedAt: now, UpdatedAt: now}
	dir := &fakeDirectory{tenants: map[uuid.UUID]*tenant.Tenant{
		acme.PublicID: acme,
		beta.PublicID: beta,
	}}
	return dir, acme, beta
}

func TestCapture(t *testing.T) {
	t.Parallel()

	t.Run("snapshots the active tenant", func(t *testing.T) {
		t.Parallel()

		_, acme, _ := newFixture(t)
		ctx := tenant.WithTenant(context.Background(), acme)

		tok, err := carrier.Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, acme.ID, tok.TenantID)
		assert.Equal(t, acme.PublicID, tok.PublicID)
		assert.Equal(t, "acme", tok.Slug)
		assert.False(t, tok.Impersonated)
		assert.False(t, tok.CapturedAt.IsZero())
	})

	t.Run("fails without a tenant", func(t *testing.T) {
		t.Parallel()

		_, err := carrier.Capture(context.Background())
		require.ErrorIs(t, err, carrier.ErrNoTenantToCapture)
	})

	t.Run("marks impersonated bindings", func(t *testing.T) {
		t.Parallel()

		_, acme, _ := newFixture(t)
		ctx := tenant.WithImpersonation(context.Background(), acme)

		tok, err := carrier.Capture(ctx)
		require.NoError(t, err)
		assert.True(t, tok.Impersonated)
	})

	t.Run("optional capture is silent without a tenant", func(t *testing.T) {
		t.Parallel()

		tok, ok := carrier.CaptureOptional(context.Background())
		assert.False(t, ok)
		assert.True(t, tok.Zero())
	})

	t.Run("token survives serialization", func(t *testing.T) {
		t.Parallel()

		_, acme, _ := newFixture(t)
		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)

		raw, err := json.Marshal(tok)
		require.NoError(t, err)

		var back carrier.Token
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, tok.TenantID, back.TenantID)
		assert.Equal(t, tok.PublicID, back.PublicID)
	})
}

func TestRestore(t *testing.T) {
	t.Parallel()

	t.Run("rebinds the tenant after revalidation", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		r, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)

		ctx, guard, err := r.Restore(context.Background(), tok)
		require.NoError(t, err)
		defer guard.Release()

		restored, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, acme.ID, restored.ID)
	})

	t.Run("fails for unknown tenant", func(t *testing.T) {
		t.Parallel()

		dir, _, _ := newFixture(t)
		r, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		_, _, err = r.Restore(context.Background(), carrier.Token{TenantID: 99, PublicID: uuid.New()})
		require.ErrorIs(t, err, carrier.ErrRestoreFailed)
		require.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("fails for tenant suspended since capture", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		r, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)

		acme.Status = tenant.StatusSuspended

		_, _, err = r.Restore(context.Background(), tok)
		require.ErrorIs(t, err, carrier.ErrRestoreFailed)
		require.ErrorIs(t, err, carrier.ErrTenantNotRunnable)
	})

	t.Run("rejects the zero token", func(t *testing.T) {
		t.Parallel()

		dir, _, _ := newFixture(t)
		r, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		_, _, err = r.Restore(context.Background(), carrier.Token{})
		require.ErrorIs(t, err, carrier.ErrInvalidToken)
	})

	t.Run("restores impersonation marker", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		r, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithImpersonation(context.Background(), acme))
		require.NoError(t, err)

		ctx, guard, err := r.Restore(context.Background(), tok)
		require.NoError(t, err)
		defer guard.Release()

		assert.True(t, tenant.IsImpersonated(ctx))
	})
}

func TestRestoreHooks(t *testing.T) {
	t.Parallel()

	t.Run("hooks run in order, teardowns unwind in reverse", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		var trace []string

		r, err := carrier.NewRestorer(dir,
			carrier.WithHook(func(_ context.Context, _ *tenant.Tenant) (func(), error) {
				trace = append(trace, "setup-a")
				return func() { trace = append(trace, "teardown-a") }, nil
			}),
			carrier.WithHook(func(_ context.Context, _ *tenant.Tenant) (func(), error) {
				trace = append(trace, "setup-b")
				return func() { trace = append(trace, "teardown-b") }, nil
			}),
		)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)

		_, guard, err := r.Restore(context.Background(), tok)
		require.NoError(t, err)
		guard.Release()
		guard.Release() // idempotent

		assert.Equal(t, []string{"setup-a", "setup-b", "teardown-b", "teardown-a"}, trace)
	})

	t.Run("hook failure unwinds earlier hooks", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		var torn bool

		r, err := carrier.NewRestorer(dir,
			carrier.WithHook(func(_ context.Context, _ *tenant.Tenant) (func(), error) {
				return func() { torn = true }, nil
			}),
			carrier.WithHook(func(_ context.Context, _ *tenant.Tenant) (func(), error) {
				return nil, errors.New("routing unavailable")
			}),
		)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)

		_, _, err = r.Restore(context.Background(), tok)
		require.ErrorIs(t, err, carrier.ErrRestoreFailed)
		assert.True(t, torn)
	})

	t.Run("panicking teardown does not stop the rest", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		var torn bool

		r, err := carrier.NewRestorer(dir,
			carrier.WithHook(func(_ context.Context, _ *tenant.Tenant) (func(), error) {
				return func() { torn = true }, nil
			}),
			carrier.WithHook(func(_ context.Context, _ *tenant.Tenant) (func(), error) {
				return func() { panic("teardown bug") }, nil
			}),
		)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)

		_, guard, err := r.Restore(context.Background(), tok)
		require.NoError(t, err)

		assert.NotPanics(t, guard.Release)
		assert.True(t, torn)
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("releases the guard on panic", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		var released bool

		r, err := carrier.NewRestorer(dir,
			carrier.WithHook(func(_ context.Context, _ *tenant.Tenant) (func(), error) {
				return func() { released = true }, nil
			}),
		)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)

		require.Panics(t, func() {
			_ = r.Run(context.Background(), tok, func(context.Context) error {
				panic("handler bug")
			})
		})
		assert.True(t, released)
	})

	t.Run("back-to-back restores on one worker do not bleed", func(t *testing.T) {
		t.Parallel()

		dir, acme, beta := newFixture(t)
		r, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		acmeTok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)
		betaTok, err := carrier.Capture(tenant.WithTenant(context.Background(), beta))
		require.NoError(t, err)

		// One worker loop, the same base context for every unit of work.
		base := context.Background()
		var seen []int64
		for _, tok := range []carrier.Token{acmeTok, betaTok} {
			err := r.Run(base, tok, func(ctx context.Context) error {
				id, ok := tenant.IDFromContext(ctx)
				if !ok {
					return errors.New("no tenant restored")
				}
				seen = append(seen, id)
				return nil
			})
			require.NoError(t, err)

			// The base context stays clean between units of work.
			_, ok := tenant.FromContext(base)
			assert.False(t, ok)
		}
		assert.Equal(t, []int64{acme.ID, beta.ID}, seen)
	})
}

func TestWrapHandler(t *testing.T) {
	t.Parallel()

	t.Run("restores tenant around the body", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		restorer, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)

		var seen int64
		handler := carrier.WrapHandler(restorer, func(ctx context.Context) error {
			id, ok := tenant.IDFromContext(ctx)
			require.True(t, ok)
			seen = id
			return nil
		})

		require.NoError(t, handler(context.Background(), tok))
		assert.Equal(t, acme.ID, seen)
	})

	t.Run("zero token runs on the neutral context", func(t *testing.T) {
		t.Parallel()

		dir, _, _ := newFixture(t)
		restorer, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		handler := carrier.WrapHandler(restorer, func(ctx context.Context) error {
			_, ok := tenant.FromContext(ctx)
			assert.False(t, ok)
			return nil
		})
		require.NoError(t, handler(context.Background(), carrier.Token{}))
	})

	t.Run("restore failure reaches the caller", func(t *testing.T) {
		t.Parallel()

		dir, acme, _ := newFixture(t)
		restorer, err := carrier.NewRestorer(dir)
		require.NoError(t, err)

		tok, err := carrier.Capture(tenant.WithTenant(context.Background(), acme))
		require.NoError(t, err)
		acme.Status = tenant.StatusSuspended

		handler := carrier.WrapHandler(restorer, func(context.Context) error {
			t.Fatal("handler must not run for a non-runnable tenant")
			return nil
		})
		err = handler(context.Background(), tok)
		assert.ErrorIs(t, err, carrier.ErrTenantNotRunnable)
	})
}
