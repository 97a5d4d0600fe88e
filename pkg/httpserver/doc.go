// Package httpserver provides a lightweight wrapper around net/http that adds
// graceful shutdown, configurable server timeouts, health-check handlers, and
// structured logging via slog.
//
// The core type is Server. Run starts the underlying *http.Server in its own
// goroutine and blocks until the context is cancelled or an interrupt/TERM
// signal arrives, then shuts down with a configurable deadline. Start errors
// are wrapped with ErrStart and shutdown errors with ErrShutdown so callers
// can distinguish them with errors.Is.
//
// This is the serving edge for tenant resolution: mount tenant.Middleware on
// the router so every request below it runs under a bound tenant context.
//
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool)))
//	r.Route("/", func(r chi.Router) {
//		r.Use(tenant.Middleware(tenant.NewSubdomainResolver("app.example.com"), provider))
//		r.Get("/dashboard", dashboardHandler)
//	})
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":8080"),
//		httpserver.WithShutdownTimeout(10*time.Second),
//	)
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
