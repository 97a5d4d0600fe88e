// Command tenantguardd is the tenant control plane: it serves tenant
// resolution for application traffic and a small admin API for provisioning,
// lifecycle transitions, and operator impersonation.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/tenantguard"
	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/config"
	"github.com/dmitrymomot/tenantguard/pkg/directory"
	"github.com/dmitrymomot/tenantguard/pkg/httpserver"
	"github.com/dmitrymomot/tenantguard/pkg/lifecycle"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/pg"
	"github.com/dmitrymomot/tenantguard/pkg/redis"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`
	// BaseDomain must be dotted (subdomain resolution needs a
	// tenant.base.tld host shape). lvh.me resolves to 127.0.0.1.
	BaseDomain  string   `env:"TENANT_BASE_DOMAIN" envDefault:"lvh.me"`
	AdminToken  string   `env:"ADMIN_TOKEN,required"`
	AuditTables []string `env:"AUDIT_TABLES" envSeparator:","`
}

func main() {
	if err := run(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg   appConfig
		pgCfg    pg.Config
		redisCfg redis.Config
		httpCfg  httpserver.Config
		lcCfg    lifecycle.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&lcCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Env, "tenantguardd"),
		logger.WithContextExtractors(tenant.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	// The audit pipeline gets its own untraced pool so finding writes are
	// never themselves inspected.
	auditPool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.ErrorContext(ctx, "connect audit pool", logger.Error(err))
		return err
	}
	defer auditPool.Close()

	if err := pg.Migrate(ctx, auditPool, tenantguard.Migrations, pgCfg, log); err != nil {
		log.ErrorContext(ctx, "apply migrations", logger.Error(err))
		return err
	}

	auditStore, err := audit.NewPGStorage(auditPool)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	metrics := audit.NewMetrics(reg)
	writer, closeWriter, err := audit.NewAsyncWriter(auditStore, audit.AsyncOptions{})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeWriter(shutdownCtx); err != nil {
			log.Error("close audit writer", logger.Error(err))
		}
	}()

	inspector, err := audit.NewSQLInspector(writer, "tenant_id",
		audit.WithInspectorTables(appCfg.AuditTables...),
		audit.WithInspectorMetrics(metrics),
	)
	if err != nil {
		return err
	}

	// Application pool: every raw statement passes through the inspector.
	pool, err := pg.Connect(ctx, pgCfg, pg.WithQueryTracer(inspector))
	if err != nil {
		log.ErrorContext(ctx, "connect pool", logger.Error(err))
		return err
	}
	defer pool.Close()

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.ErrorContext(ctx, "connect redis", logger.Error(err))
		return err
	}
	defer rdb.Close()

	store := directory.NewPGStore(pool)
	provider := directory.NewProvider(store)
	resolverCache := tenant.NewRedisCache(rdb, "tenant")

	manager, err := lifecycle.NewManager(store,
		lifecycle.WithSessionRevoker(lifecycle.NewRedisSessionRevoker(rdb, "session")),
		lifecycle.WithResolverCache(resolverCache),
		lifecycle.WithManagerLogger(log),
	)
	if err != nil {
		return err
	}

	var impersonator *lifecycle.Impersonator
	if lcCfg.ImpersonationSecret != "" {
		impersonator, err = lifecycle.NewImpersonator(
			[]byte(lcCfg.ImpersonationSecret), store,
			lifecycle.WithGrantTTL(lcCfg.GrantTTL),
			lifecycle.WithLedger(lifecycle.NewRedisLedger(rdb, "tenantguard:grant")),
		)
		if err != nil {
			return err
		}
	}

	// Canonical strategy order: network identity (custom domain, then
	// subdomain) before the explicit header, so a conflicting X-Tenant
	// header can never override the host the request arrived on.
	resolve := tenant.NewChainResolver(
		tenant.NewDomainResolver(appCfg.BaseDomain),
		tenant.NewSubdomainResolver(appCfg.BaseDomain),
		tenant.NewHeaderResolver("X-Tenant"),
	)

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/readyz", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(rdb),
	))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/admin", adminRoutes(appCfg.AdminToken, manager, impersonator, lcCfg.DefaultTrialDays))

	r.Group(func(r chi.Router) {
		r.Use(tenant.Middleware(resolve, provider,
			tenant.WithCache(resolverCache),
			tenant.WithLogger(log),
		))
		r.Use(tenant.RequireTenant(nil))
		r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, tenant.MustFromContext(req.Context()))
		})
	})

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

// adminRoutes exposes lifecycle management behind a shared-secret header.
func adminRoutes(token string, manager *lifecycle.Manager, imp *lifecycle.Impersonator, defaultTrialDays int) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if req.Header.Get("X-Admin-Token") != token {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, req)
			})
		})

		r.Post("/tenants", func(w http.ResponseWriter, req *http.Request) {
			var in struct {
				Name      string `json:"name"`
				Email     string `json:"email"`
				Slug      string `json:"slug"`
				TrialDays int    `json:"trial_days"`
			}
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if in.TrialDays == 0 {
				in.TrialDays = defaultTrialDays
			}
			created, err := manager.Create(req.Context(), lifecycle.NewTenant{
				Name:      in.Name,
				Email:     in.Email,
				Slug:      in.Slug,
				TrialDays: in.TrialDays,
			}, nil)
			if err != nil {
				writeLifecycleError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		})

		transition := func(fn func(context.Context, int64) error) http.HandlerFunc {
			return func(w http.ResponseWriter, req *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
				if err != nil {
					http.Error(w, "invalid tenant id", http.StatusBadRequest)
					return
				}
				if err := fn(req.Context(), id); err != nil {
					writeLifecycleError(w, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			}
		}
		r.Post("/tenants/{id}/suspend", transition(manager.Suspend))
		r.Post("/tenants/{id}/activate", transition(manager.Activate))
		r.Post("/tenants/{id}/deactivate", transition(manager.Deactivate))

		r.Post("/tenants/{id}/impersonate", func(w http.ResponseWriter, req *http.Request) {
			if imp == nil {
				http.Error(w, "impersonation disabled", http.StatusNotImplemented)
				return
			}
			id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			if err != nil {
				http.Error(w, "invalid tenant id", http.StatusBadRequest)
				return
			}
			var in struct {
				AdminID string `json:"admin_id"`
			}
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			grant, err := imp.Impersonate(req.Context(), in.AdminID, id, 0)
			if err != nil {
				writeLifecycleError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"grant": grant})
		})
	}
}

func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		http.Error(w, "tenant not found", http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, directory.ErrSlugTaken):
		http.Error(w, "slug already taken", http.StatusConflict)
	case errors.Is(err, tenant.ErrTenantInactive):
		http.Error(w, "tenant is not active", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
