package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PGQuerier is the subset of pgx the store uses.
type PGQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStorage persists findings in the tenant_audit_findings table.
// Append-only: no update or delete path exists.
type PGStorage struct {
	db PGQuerier
}

// NewPGStorage creates a Postgres-backed findings store.
func NewPGStorage(db PGQuerier) (*PGStorage, error) {
	if db == nil {
		return nil, ErrStorageNil
	}
	return &PGStorage{db: db}, nil
}

const findingColumns = "id, table_name, statement, expected_tenant, filters, reason, trace, created_at"

func (s *PGStorage) Store(ctx context.Context, finding Finding) error {
	return s.StoreBatch(ctx, []Finding{finding})
}

func (s *PGStorage) StoreBatch(ctx context.Context, findings []Finding) error {
	if len(findings) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("INSERT INTO tenant_audit_findings (" + findingColumns + ") VALUES ")
	for i, f := range findings {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args, f.ID, f.Table, f.Statement, f.ExpectedTenant, f.Filters, f.Reason, f.Trace, f.CreatedAt)
	}

	if _, err := s.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert audit findings: %w", err)
	}
	return nil
}

func (s *PGStorage) List(ctx context.Context, filter ListFilter) ([]Finding, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT " + findingColumns + " FROM tenant_audit_findings")

	var preds []string
	if filter.Table != "" {
		args = append(args, filter.Table)
		preds = append(preds, fmt.Sprintf("table_name = $%d", len(args)))
	}
	if filter.Reason != "" {
		args = append(args, filter.Reason)
		preds = append(preds, fmt.Sprintf("reason = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		preds = append(preds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if len(preds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(preds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit findings: %w", err)
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var (
			f         Finding
			createdAt time.Time
		)
		if err := rows.Scan(&f.ID, &f.Table, &f.Statement, &f.ExpectedTenant, &f.Filters, &f.Reason, &f.Trace, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit finding: %w", err)
		}
		f.CreatedAt = createdAt
		out = append(out, f)
	}
	return out, rows.Err()
}
