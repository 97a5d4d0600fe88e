package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantguard/pkg/pg"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Querier is the subset of pgx functionality the store needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, which is how InTx reuses every query
// against a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore is the PostgreSQL-backed tenant directory.
type PGStore struct {
	db Querier
}

// NewPGStore creates a directory store over the given pgx pool or transaction.
func NewPGStore(db Querier) *PGStore {
	return &PGStore{db: db}
}

const tenantColumns = "id, public_id, name, slug, email, phone, status, trial_ends_at, created_at, updated_at"

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.PublicID, &t.Name, &t.Slug, &t.Email, &t.Phone, &t.Status, &t.TrialEndsAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return &t, nil
}

func (s *PGStore) Create(ctx context.Context, t *tenant.Tenant) error {
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.PublicID == (uuid.UUID{}) {
		t.PublicID = uuid.New()
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO tenants (public_id, name, slug, email, phone, status, trial_ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		t.PublicID, t.Name, t.Slug, t.Email, t.Phone, t.Status, t.TrialEndsAt)

	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", ErrSlugTaken, t.Slug)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *PGStore) GetByID(ctx context.Context, id int64) (*tenant.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = $1", id))
}

func (s *PGStore) GetByPublicID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE public_id = $1", id))
}

func (s *PGStore) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE slug = $1", slug))
}

func (s *PGStore) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx, `
		SELECT t.id, t.public_id, t.name, t.slug, t.email, t.phone, t.status, t.trial_ends_at, t.created_at, t.updated_at
		FROM tenants t
		JOIN tenant_domains d ON d.tenant_id = t.id
		WHERE d.domain = $1`, strings.ToLower(domain)))
}

func (s *PGStore) Update(ctx context.Context, t *tenant.Tenant) error {
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}

	// The slug is immutable: it is deliberately absent from the SET list, and
	// a mismatch with the stored value is rejected up front instead of being
	// silently ignored.
	var storedSlug string
	if err := s.db.QueryRow(ctx, "SELECT slug FROM tenants WHERE id = $1", t.ID).Scan(&storedSlug); err != nil {
		if pg.IsNotFoundError(err) {
			return tenant.ErrTenantNotFound
		}
		return fmt.Errorf("load tenant slug: %w", err)
	}
	if storedSlug != t.Slug {
		return ErrSlugImmutable
	}

	row := s.db.QueryRow(ctx, `
		UPDATE tenants
		SET name = $2, email = $3, phone = $4, status = $5, trial_ends_at = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.Name, t.Email, t.Phone, t.Status, t.TrialEndsAt)

	if err := row.Scan(&t.UpdatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return tenant.ErrTenantNotFound
		}
		return fmt.Errorf("update tenant: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id int64, status tenant.Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	tag, err := s.db.Exec(ctx,
		"UPDATE tenants SET status = $2, updated_at = now() WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

func (s *PGStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM tenants WHERE slug = $1)", slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (s *PGStore) AddDomain(ctx context.Context, tenantID int64, domain string) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO tenant_domains (domain, tenant_id) VALUES ($1, $2)",
		strings.ToLower(domain), tenantID)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", ErrDomainTaken, domain)
		}
		if pg.IsForeignKeyViolationError(err) {
			return tenant.ErrTenantNotFound
		}
		return fmt.Errorf("add tenant domain: %w", err)
	}
	return nil
}

func (s *PGStore) ListSettings(ctx context.Context, tenantID int64) ([]tenant.Setting, error) {
	rows, err := s.db.Query(ctx, `
		SELECT setting_group, setting_key, value
		FROM tenant_settings
		WHERE tenant_id = $1
		ORDER BY setting_group, setting_key`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tenant settings: %w", err)
	}
	defer rows.Close()

	var settings []tenant.Setting
	for rows.Next() {
		var s tenant.Setting
		var raw []byte
		if err := rows.Scan(&s.Group, &s.Key, &raw); err != nil {
			return nil, fmt.Errorf("scan tenant setting: %w", err)
		}
		if err := json.Unmarshal(raw, &s.Value); err != nil {
			return nil, fmt.Errorf("decode tenant setting %s/%s: %w", s.Group, s.Key, err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (s *PGStore) UpsertSetting(ctx context.Context, tenantID int64, setting tenant.Setting) error {
	raw, err := json.Marshal(setting.Value)
	if err != nil {
		return fmt.Errorf("encode tenant setting: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO tenant_settings (tenant_id, setting_group, setting_key, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, setting_group, setting_key) DO UPDATE SET value = EXCLUDED.value`,
		tenantID, setting.Group, setting.Key, raw)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return tenant.ErrTenantNotFound
		}
		return fmt.Errorf("upsert tenant setting: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM tenants WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// InTx runs fn against a store bound to a single transaction.
func (s *PGStore) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&PGStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
