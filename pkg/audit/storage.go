package audit

import (
	"context"
	"sync"
	"time"
)

// Storage persists findings. Implementations should optimize StoreBatch for
// bulk inserts; the async writer only uses the batch path.
type Storage interface {
	Store(ctx context.Context, finding Finding) error
	StoreBatch(ctx context.Context, findings []Finding) error
	List(ctx context.Context, filter ListFilter) ([]Finding, error)
}

// ListFilter narrows a findings query. Zero values mean "any".
type ListFilter struct {
	Table  string
	Reason Reason
	Since  time.Time
	Limit  int
}

// MemoryStorage keeps findings in process memory, newest last.
type MemoryStorage struct {
	mu       sync.RWMutex
	findings []Finding
}

// NewMemoryStorage creates an empty in-memory findings store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, finding Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings = append(s.findings, finding)
	return nil
}

func (s *MemoryStorage) StoreBatch(_ context.Context, findings []Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings = append(s.findings, findings...)
	return nil
}

func (s *MemoryStorage) List(_ context.Context, filter ListFilter) ([]Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Finding
	for _, f := range s.findings {
		if filter.Table != "" && f.Table != filter.Table {
			continue
		}
		if filter.Reason != "" && f.Reason != filter.Reason {
			continue
		}
		if !filter.Since.IsZero() && f.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, f)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}
