package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// MemoryStore is an in-memory Store implementation for tests and development.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	tenants  map[int64]*tenant.Tenant
	domains  map[string]int64
	settings map[int64]map[string]tenant.Setting
}

// NewMemoryStore creates an empty in-memory tenant directory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:  make(map[int64]*tenant.Tenant),
		domains:  make(map[string]int64),
		settings: make(map[int64]map[string]tenant.Setting),
	}
}

func settingKey(s tenant.Setting) string {
	return s.Group + "/" + s.Key
}

func (m *MemoryStore) Create(_ context.Context, t *tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	for _, existing := range m.tenants {
		if existing.Slug == t.Slug {
			return ErrSlugTaken
		}
	}

	m.nextID++
	t.ID = m.nextID
	if t.PublicID == (uuid.UUID{}) {
		t.PublicID = uuid.New()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (*tenant.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) GetByPublicID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tenants {
		if t.PublicID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (m *MemoryStore) GetByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.domains[strings.ToLower(domain)]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	t, ok := m.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) Update(_ context.Context, t *tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tenants[t.ID]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	if existing.Slug != t.Slug {
		return ErrSlugImmutable
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}

	t.UpdatedAt = time.Now()
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id int64, status tenant.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !status.Valid() {
		return ErrInvalidStatus
	}
	t, ok := m.tenants[id]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tenants {
		if t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) AddDomain(_ context.Context, tenantID int64, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[tenantID]; !ok {
		return tenant.ErrTenantNotFound
	}
	key := strings.ToLower(domain)
	if owner, ok := m.domains[key]; ok && owner != tenantID {
		return ErrDomainTaken
	}
	m.domains[key] = tenantID
	return nil
}

func (m *MemoryStore) ListSettings(_ context.Context, tenantID int64) ([]tenant.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.tenants[tenantID]; !ok {
		return nil, tenant.ErrTenantNotFound
	}
	out := make([]tenant.Setting, 0, len(m.settings[tenantID]))
	for _, s := range m.settings[tenantID] {
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) UpsertSetting(_ context.Context, tenantID int64, s tenant.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[tenantID]; !ok {
		return tenant.ErrTenantNotFound
	}
	if m.settings[tenantID] == nil {
		m.settings[tenantID] = make(map[string]tenant.Setting)
	}
	m.settings[tenantID][settingKey(s)] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[id]; !ok {
		return tenant.ErrTenantNotFound
	}
	delete(m.tenants, id)
	delete(m.settings, id)
	for domain, owner := range m.domains {
		if owner == id {
			delete(m.domains, domain)
		}
	}
	return nil
}

// InTx simulates transactional semantics by snapshotting state and restoring
// it when fn fails. Adequate for tests; real atomicity comes from PGStore.
func (m *MemoryStore) InTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restoreLocked(snapshot)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	nextID   int64
	tenants  map[int64]*tenant.Tenant
	domains  map[string]int64
	settings map[int64]map[string]tenant.Setting
}

func (m *MemoryStore) snapshotLocked() memorySnapshot {
	snap := memorySnapshot{
		nextID:   m.nextID,
		tenants:  make(map[int64]*tenant.Tenant, len(m.tenants)),
		domains:  make(map[string]int64, len(m.domains)),
		settings: make(map[int64]map[string]tenant.Setting, len(m.settings)),
	}
	for id, t := range m.tenants {
		cp := *t
		snap.tenants[id] = &cp
	}
	for domain, id := range m.domains {
		snap.domains[domain] = id
	}
	for id, settings := range m.settings {
		cp := make(map[string]tenant.Setting, len(settings))
		for key, s := range settings {
			cp[key] = s
		}
		snap.settings[id] = cp
	}
	return snap
}

func (m *MemoryStore) restoreLocked(snap memorySnapshot) {
	m.nextID = snap.nextID
	m.tenants = snap.tenants
	m.domains = snap.domains
	m.settings = snap.settings
}
