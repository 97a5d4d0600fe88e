package audit

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// SQLInspector is an advisory heuristic over raw SQL text, implementing
// pgx.QueryTracer so it sees every statement the connection executes,
// including those that do not go through the scoped repository. It flags
// select/update/delete statements that touch a registered table without
// mentioning the tenant column.
//
// Text inspection cannot understand aliases, subqueries, or views; findings
// carry ReasonRawStatement and are best-effort evidence only. Structured
// verification by the Monitor is authoritative.
type SQLInspector struct {
	mu           sync.RWMutex
	tables       map[string]*regexp.Regexp
	tenantColumn string
	sink         Sink
	metrics      *Metrics
}

// NewSQLInspector creates an inspector emitting findings into the sink.
// tenantColumn defaults to "tenant_id" when empty.
func NewSQLInspector(sink Sink, tenantColumn string, opts ...InspectorOption) (*SQLInspector, error) {
	if sink == nil {
		return nil, ErrStorageNil
	}
	if tenantColumn == "" {
		tenantColumn = "tenant_id"
	}
	insp := &SQLInspector{
		tables:       make(map[string]*regexp.Regexp),
		tenantColumn: tenantColumn,
		sink:         sink,
	}
	for _, opt := range opts {
		opt(insp)
	}
	return insp, nil
}

// InspectorOption configures a SQLInspector.
type InspectorOption func(*SQLInspector)

// WithInspectorMetrics attaches Prometheus counters.
func WithInspectorMetrics(metrics *Metrics) InspectorOption {
	return func(i *SQLInspector) {
		i.metrics = metrics
	}
}

// WithInspectorTables registers tables at construction time.
func WithInspectorTables(tables ...string) InspectorOption {
	return func(i *SQLInspector) {
		i.registerLocked(tables)
	}
}

// RegisterTable adds tables to the inspection set.
func (i *SQLInspector) RegisterTable(tables ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.registerLocked(tables)
}

func (i *SQLInspector) registerLocked(tables []string) {
	for _, t := range tables {
		// Word-bounded match so "tenants" does not match "tenants_archive".
		i.tables[t] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
	}
}

// TraceQueryStart implements pgx.QueryTracer.
func (i *SQLInspector) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	i.Inspect(ctx, data.SQL)
	return ctx
}

// TraceQueryEnd implements pgx.QueryTracer.
func (i *SQLInspector) TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData) {}

// Inspect applies the heuristic to one statement. Exempt: bypass blocks,
// contexts with no tenant, statements that are not select/update/delete,
// and statements already mentioning the tenant column.
func (i *SQLInspector) Inspect(ctx context.Context, sql string) {
	i.metrics.incInspected()

	if tenant.IsUnscoped(ctx) {
		return
	}
	tenantID, ok := tenant.IDFromContext(ctx)
	if !ok {
		return
	}

	trimmed := strings.ToLower(strings.TrimSpace(sql))
	if !strings.HasPrefix(trimmed, "select") &&
		!strings.HasPrefix(trimmed, "update") &&
		!strings.HasPrefix(trimmed, "delete") {
		return
	}
	if strings.Contains(trimmed, strings.ToLower(i.tenantColumn)) {
		return
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	for table, pattern := range i.tables {
		if !pattern.MatchString(sql) {
			continue
		}
		finding := Finding{
			ID:             uuid.New(),
			Table:          table,
			Statement:      sql,
			ExpectedTenant: tenantID,
			Reason:         ReasonRawStatement,
			CreatedAt:      time.Now().UTC(),
		}
		i.metrics.incFinding(ReasonRawStatement)
		i.sink.Submit(finding)
	}
}
