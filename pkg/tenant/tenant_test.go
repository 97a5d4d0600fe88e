package tenant_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

var testTenantSeq atomic.Int64

func createTestTenant(slug string, status tenant.Status) *tenant.Tenant {
	return &tenant.Tenant{
		ID:        testTenantSeq.Add(1),
		PublicID:  uuid.New(),
		Name:      slug,
		Slug:      slug,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	assert.True(t, tenant.StatusActive.Valid())
	assert.True(t, tenant.StatusSuspended.Valid())
	assert.True(t, tenant.StatusInactive.Valid())
	assert.False(t, tenant.Status("deleted").Valid())
	assert.False(t, tenant.Status("").Valid())
}

func TestStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from tenant.Status
		to   tenant.Status
		want bool
	}{
		{"active to suspended", tenant.StatusActive, tenant.StatusSuspended, true},
		{"active to inactive", tenant.StatusActive, tenant.StatusInactive, true},
		{"suspended back to active", tenant.StatusSuspended, tenant.StatusActive, true},
		{"suspended to inactive", tenant.StatusSuspended, tenant.StatusInactive, true},
		{"inactive revived administratively", tenant.StatusInactive, tenant.StatusActive, true},
		{"inactive to suspended", tenant.StatusInactive, tenant.StatusSuspended, false},
		{"self transition", tenant.StatusActive, tenant.StatusActive, false},
		{"unknown source", tenant.Status("deleted"), tenant.StatusActive, false},
		{"unknown target", tenant.StatusActive, tenant.Status("deleted"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCheckLiveness(t *testing.T) {
	t.Parallel()

	t.Run("active tenant passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, tenant.CheckLiveness(createTestTenant("acme", tenant.StatusActive)))
	})

	t.Run("suspended tenant is rejected distinctly", func(t *testing.T) {
		t.Parallel()

		err := tenant.CheckLiveness(createTestTenant("acme", tenant.StatusSuspended))
		require.Error(t, err)
		assert.ErrorIs(t, err, tenant.ErrTenantSuspended)
		// Suspended is a refinement of inactive, never of not-found.
		assert.ErrorIs(t, err, tenant.ErrTenantInactive)
		assert.NotErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("inactive tenant is rejected", func(t *testing.T) {
		t.Parallel()

		err := tenant.CheckLiveness(createTestTenant("acme", tenant.StatusInactive))
		assert.ErrorIs(t, err, tenant.ErrTenantInactive)
		assert.NotErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("nil tenant is not found", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, tenant.CheckLiveness(nil), tenant.ErrTenantNotFound)
	})
}

func TestIsActive(t *testing.T) {
	t.Parallel()

	assert.True(t, createTestTenant("acme", tenant.StatusActive).IsActive())
	assert.False(t, createTestTenant("acme", tenant.StatusSuspended).IsActive())
	assert.False(t, (*tenant.Tenant)(nil).IsActive())
}
