// Package redis provides helpers for connecting to a Redis server.
//
// Connect retries the initial connection using the supplied configuration,
// and Healthcheck wraps a ping into a probe function for readiness checks.
// Redis backs the cross-instance pieces of tenant handling: the shared
// resolver cache (tenant.NewRedisCache), the single-use impersonation grant
// ledger, and session revocation on suspension (pkg/lifecycle).
//
// Config fields are populated from environment variables via
// github.com/caarlos0/env:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Sentinel errors such as ErrRedisNotReady wrap the underlying go-redis
// errors with errors.Join for unwrapping.
package redis
