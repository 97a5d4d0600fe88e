package tenant_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

type routerProvider struct {
	tenants map[string]*tenant.Tenant
}

func (p *routerProvider) GetByIdentifier(_ context.Context, identifier string) (*tenant.Tenant, error) {
	t, ok := p.tenants[identifier]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

// Exercises the middleware mounted the way a real service does it: on a chi
// router, with public routes outside the tenant group.
func TestMiddlewareOnRouter(t *testing.T) {
	t.Parallel()

	provider := &routerProvider{tenants: map[string]*tenant.Tenant{
		"acme": {ID: 1, Slug: "acme", Status: tenant.StatusActive},
		"beta": {ID: 2, Slug: "beta", Status: tenant.StatusSuspended},
	}}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Group(func(r chi.Router) {
		r.Use(tenant.Middleware(tenant.NewHeaderResolver("X-Tenant"), provider))
		r.Use(tenant.RequireTenant(nil))
		r.Get("/me", func(w http.ResponseWriter, req *http.Request) {
			bound := tenant.MustFromContext(req.Context())
			fmt.Fprint(w, bound.Slug)
		})
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	get := func(t *testing.T, path, tenantHeader string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		if tenantHeader != "" {
			req.Header.Set("X-Tenant", tenantHeader)
		}
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("resolves tenant from header", func(t *testing.T) {
		resp := get(t, "/me", "acme")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		buf := make([]byte, 16)
		n, _ := resp.Body.Read(buf)
		assert.Equal(t, "acme", string(buf[:n]))
	})

	t.Run("suspended tenant rejected", func(t *testing.T) {
		resp := get(t, "/me", "beta")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown tenant rejected", func(t *testing.T) {
		resp := get(t, "/me", "ghost")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("tenant-less request cannot reach guarded routes", func(t *testing.T) {
		resp := get(t, "/me", "")
		defer resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("public routes bypass resolution", func(t *testing.T) {
		resp := get(t, "/healthz", "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
