package audit

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantguard/pkg/scoped"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Sink receives findings from the monitor. Submissions must not block;
// AsyncWriter implements this with a drop-on-overflow buffer.
type Sink interface {
	Submit(finding Finding)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(finding Finding)

// Submit calls the function.
func (f SinkFunc) Submit(finding Finding) { f(finding) }

// Monitor verifies executed data-access operations against the active
// tenant and emits findings for operations whose predicates do not match.
// It implements scoped.Observer and is strictly passive: it never blocks,
// never mutates, and its failures never surface to the observed operation.
type Monitor struct {
	mu      sync.RWMutex
	tables  map[string]struct{}
	sink    Sink
	metrics *Metrics
	log     *slog.Logger
	traces  bool
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithTables registers tables subject to verification at construction time.
func WithTables(tables ...string) MonitorOption {
	return func(m *Monitor) {
		for _, t := range tables {
			m.tables[t] = struct{}{}
		}
	}
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(metrics *Metrics) MonitorOption {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// WithMonitorLogger sets the logger for emitted findings.
func WithMonitorLogger(log *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// WithTraces captures a stack trace into each finding. Expensive; meant for
// staging environments where the producing call site matters.
func WithTraces() MonitorOption {
	return func(m *Monitor) {
		m.traces = true
	}
}

// NewMonitor creates a Monitor emitting findings into the sink.
func NewMonitor(sink Sink, opts ...MonitorOption) (*Monitor, error) {
	if sink == nil {
		return nil, ErrStorageNil
	}
	m := &Monitor{
		tables: make(map[string]struct{}),
		sink:   sink,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// RegisterTable adds tables to the verification set at runtime.
func (m *Monitor) RegisterTable(tables ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tables {
		m.tables[t] = struct{}{}
	}
}

// Observe implements scoped.Observer. Unscoped bypass operations are exempt
// (they intentionally cross tenants), as are operations on unregistered
// tables and operations with no active tenant to verify against. Writes
// under an impersonation session are recorded as informational findings so
// an operator acting as a tenant leaves a distinct trail.
func (m *Monitor) Observe(ctx context.Context, op scoped.Operation) {
	m.metrics.incInspected()

	m.mu.RLock()
	_, registered := m.tables[op.Table]
	m.mu.RUnlock()
	if !registered {
		return
	}

	tenantID, ok := tenant.IDFromContext(ctx)

	if op.Bypass {
		if op.Impersonated && op.Kind != scoped.OpSelect && ok {
			m.emit(op, tenantID, ReasonImpersonatedWrite)
		}
		return
	}
	if !ok {
		return
	}

	if reason, found := verifyTable(op, op.Table, tenantID); found {
		m.emit(op, tenantID, reason)
	}
	for _, join := range op.Joins {
		if !join.TenantOwned {
			continue
		}
		if reason, found := verifyTable(op, join.Table, tenantID); found {
			if reason == ReasonMissingPredicate {
				reason = ReasonUnscopedJoin
			}
			m.emit(op, tenantID, reason)
		}
	}
}

// verifyTable checks that the operation carries an equality predicate on
// the tenant column of the given table, bound to the active tenant. The
// base table matches filters with an empty Table as well.
func verifyTable(op scoped.Operation, table string, tenantID int64) (Reason, bool) {
	for _, f := range op.Filters {
		filterTable := f.Table
		if filterTable == "" {
			filterTable = op.Table
		}
		if filterTable != table || f.Column != op.TenantColumn || f.Op != scoped.OpEq {
			continue
		}
		if sameTenant(f.Value, tenantID) {
			return "", false
		}
		return ReasonWrongTenant, true
	}
	return ReasonMissingPredicate, true
}

func sameTenant(v any, id int64) bool {
	switch n := v.(type) {
	case int64:
		return n == id
	case int:
		return int64(n) == id
	case int32:
		return int64(n) == id
	default:
		return false
	}
}

func (m *Monitor) emit(op scoped.Operation, tenantID int64, reason Reason) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("audit sink panicked", slog.Any("panic", r))
		}
	}()

	finding := Finding{
		ID:             uuid.New(),
		Table:          op.Table,
		Statement:      op.Statement,
		ExpectedTenant: tenantID,
		Filters:        renderFilters(op.Filters),
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
	if m.traces {
		finding.Trace = string(debug.Stack())
	}

	m.metrics.incFinding(reason)
	level := slog.LevelWarn
	if reason == ReasonImpersonatedWrite {
		level = slog.LevelInfo
	}
	m.log.Log(context.Background(), level, "tenant isolation finding",
		slog.String("table", finding.Table),
		slog.String("reason", string(reason)),
		slog.Int64("expected_tenant", tenantID))

	m.sink.Submit(finding)
}

func renderFilters(filters []scoped.Filter) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		table := f.Table
		if table != "" {
			table += "."
		}
		out = append(out, fmt.Sprintf("%s%s %s %v", table, f.Column, f.Op, f.Value))
	}
	return out
}
