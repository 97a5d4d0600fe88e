// Package logger provides a context-aware wrapper around log/slog with
// functional options for configuration, helper attribute constructors, and
// transparent injection of values stored in context.Context.
//
// New builds a *slog.Logger whose handler runs registered ContextExtractor
// callbacks on every record before delegating to the underlying text or JSON
// handler. Wiring tenant.LoggerExtractor() through WithContextExtractors
// makes every log line emitted under a tenant-bound context carry the tenant
// identity without any per-call effort:
//
//	log := logger.New(
//	    logger.WithProduction("api"),
//	    logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	// Inside a request handler with a resolved tenant:
//	log.InfoContext(ctx, "invoice generated", logger.Duration(elapsed))
//	// => {"msg":"invoice generated","tenant_id":42,"duration":...}
//
// Helper constructors such as Error, TenantID, and Table keep attribute
// naming consistent across packages.
package logger
