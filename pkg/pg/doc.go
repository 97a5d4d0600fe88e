// Package pg bootstraps the PostgreSQL layer: connection pooling with retry,
// embedded schema migrations, health probes, and error classification
// helpers over pgx/v5.
//
// Config fields are populated from environment variables (see the struct
// tags), Connect opens a *pgxpool.Pool with retry, and Migrate applies goose
// migrations from an embedded filesystem before the service starts serving.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, slog.Default()); err != nil {
//		return err
//	}
//
// The classification helpers (IsNotFoundError, IsDuplicateKeyError,
// IsForeignKeyViolationError) keep pgconn error-code matching out of
// business logic.
package pg
