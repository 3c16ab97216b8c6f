package memory

import (
	"context"
	"sync"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// IngestLogStore is an in-memory implementation of storage.IngestLogStore.
type IngestLogStore struct {
	mu      sync.RWMutex
	entries []*domain.IngestLogEntry // append order
}

// NewIngestLogStore creates a new in-memory ingest log store.
func NewIngestLogStore() *IngestLogStore {
	return &IngestLogStore{}
}

// Compile-time interface check.
var _ storage.IngestLogStore = (*IngestLogStore)(nil)

// Append adds a log entry.
func (s *IngestLogStore) Append(_ context.Context, e *domain.IngestLogEntry) error {
	if e == nil || e.Source == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	s.entries = append(s.entries, &copy)
	return nil
}

// Recent retrieves up to limit entries, newest first.
func (s *IngestLogStore) Recent(_ context.Context, limit int) ([]*domain.IngestLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}

	result := make([]*domain.IngestLogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		copy := *s.entries[i]
		result = append(result, &copy)
	}
	return result, nil
}

// DeleteAll removes every log entry.
func (s *IngestLogStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.entries))
	s.entries = nil
	return n, nil
}
