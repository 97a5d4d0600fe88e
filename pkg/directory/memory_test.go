package directory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/directory"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

func newTenant(name, slug string) *tenant.Tenant {
	return &tenant.Tenant{
		Name:   name,
		Slug:   slug,
		Email:  slug + "@example.com",
		Status: tenant.StatusActive,
	}
}

func TestMemoryStoreCreate(t *testing.T) {
	t.Parallel()

	t.Run("assigns identifiers", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := newTenant("Acme Corp", "acme-corp")
		require.NoError(t, store.Create(context.Background(), acme))

		assert.NotZero(t, acme.ID)
		assert.NotEqual(t, uuid.UUID{}, acme.PublicID)
		assert.False(t, acme.CreatedAt.IsZero())
	})

	t.Run("rejects duplicate slug", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		require.NoError(t, store.Create(context.Background(), newTenant("Acme", "acme")))

		err := store.Create(context.Background(), newTenant("Other Acme", "acme"))
		assert.ErrorIs(t, err, directory.ErrSlugTaken)
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		bad := newTenant("Acme", "acme")
		bad.Status = tenant.Status("deleted")
		assert.ErrorIs(t, store.Create(context.Background(), bad), directory.ErrInvalidStatus)
	})
}

func TestMemoryStoreLookups(t *testing.T) {
	t.Parallel()

	store := directory.NewMemoryStore()
	acme := newTenant("Acme", "acme")
	require.NoError(t, store.Create(context.Background(), acme))
	require.NoError(t, store.AddDomain(context.Background(), acme.ID, "CRM.Acme-Corp.com"))

	t.Run("by id", func(t *testing.T) {
		t.Parallel()

		got, err := store.GetByID(context.Background(), acme.ID)
		require.NoError(t, err)
		assert.Equal(t, "acme", got.Slug)
	})

	t.Run("by public id", func(t *testing.T) {
		t.Parallel()

		got, err := store.GetByPublicID(context.Background(), acme.PublicID)
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("by slug", func(t *testing.T) {
		t.Parallel()

		got, err := store.GetBySlug(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("by domain is case-insensitive", func(t *testing.T) {
		t.Parallel()

		got, err := store.GetByDomain(context.Background(), "crm.acme-corp.com")
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("missing tenant", func(t *testing.T) {
		t.Parallel()

		_, err := store.GetBySlug(context.Background(), "ghost")
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("lookups return copies", func(t *testing.T) {
		t.Parallel()

		got, err := store.GetByID(context.Background(), acme.ID)
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := store.GetByID(context.Background(), acme.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme", again.Name)
	})
}

func TestMemoryStoreUpdate(t *testing.T) {
	t.Parallel()

	t.Run("slug is immutable", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := newTenant("Acme", "acme")
		require.NoError(t, store.Create(context.Background(), acme))

		acme.Slug = "acme-renamed"
		assert.ErrorIs(t, store.Update(context.Background(), acme), directory.ErrSlugImmutable)
	})

	t.Run("status transition visible to next lookup", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		acme := newTenant("Acme", "acme")
		require.NoError(t, store.Create(context.Background(), acme))

		require.NoError(t, store.UpdateStatus(context.Background(), acme.ID, tenant.StatusSuspended))

		got, err := store.GetByID(context.Background(), acme.ID)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusSuspended, got.Status)
	})
}

func TestMemoryStoreSettings(t *testing.T) {
	t.Parallel()

	store := directory.NewMemoryStore()
	acme := newTenant("Acme", "acme")
	require.NoError(t, store.Create(context.Background(), acme))

	require.NoError(t, store.UpsertSetting(context.Background(), acme.ID,
		tenant.Setting{Group: "mail", Key: "from", Value: tenant.Text("no-reply@acme.com")}))
	require.NoError(t, store.UpsertSetting(context.Background(), acme.ID,
		tenant.Setting{Group: "mail", Key: "from", Value: tenant.Text("sales@acme.com")}))

	settings, err := store.ListSettings(context.Background(), acme.ID)
	require.NoError(t, err)
	require.Len(t, settings, 1, "upsert must replace, not append")

	v, err := settings[0].Value.AsText()
	require.NoError(t, err)
	assert.Equal(t, "sales@acme.com", v)
}

func TestMemoryStoreInTx(t *testing.T) {
	t.Parallel()

	t.Run("rolls back all writes on failure", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		provisionErr := errors.New("provisioning failed")

		err := store.InTx(context.Background(), func(tx directory.Store) error {
			if err := tx.Create(context.Background(), newTenant("Acme", "acme")); err != nil {
				return err
			}
			return provisionErr
		})
		require.ErrorIs(t, err, provisionErr)

		_, err = store.GetBySlug(context.Background(), "acme")
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound, "partial provisioning must not survive")
	})

	t.Run("commits on success", func(t *testing.T) {
		t.Parallel()

		store := directory.NewMemoryStore()
		err := store.InTx(context.Background(), func(tx directory.Store) error {
			return tx.Create(context.Background(), newTenant("Acme", "acme"))
		})
		require.NoError(t, err)

		_, err = store.GetBySlug(context.Background(), "acme")
		assert.NoError(t, err)
	})
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	store := directory.NewMemoryStore()
	acme := newTenant("Acme", "acme")
	require.NoError(t, store.Create(context.Background(), acme))
	require.NoError(t, store.AddDomain(context.Background(), acme.ID, "crm.acme-corp.com"))

	provider := directory.NewProvider(store)

	t.Run("resolves slug", func(t *testing.T) {
		t.Parallel()

		got, err := provider.GetByIdentifier(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("resolves public uuid", func(t *testing.T) {
		t.Parallel()

		got, err := provider.GetByIdentifier(context.Background(), acme.PublicID.String())
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("resolves custom domain identifier", func(t *testing.T) {
		t.Parallel()

		got, err := provider.GetByIdentifier(context.Background(), tenant.DomainIdentifier("crm.acme-corp.com"))
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})
}
