package memory

import (
	"context"
	"sort"
	"sync"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// MappingStore is an in-memory implementation of storage.MappingStore.
type MappingStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.MagicMapping // keyed by FromMagic
}

// NewMappingStore creates a new in-memory mapping store.
func NewMappingStore() *MappingStore {
	return &MappingStore{
		data: make(map[int64]*domain.MagicMapping),
	}
}

// Compile-time interface check.
var _ storage.MappingStore = (*MappingStore)(nil)

// Get retrieves the mapping for a source magic number.
func (s *MappingStore) Get(_ context.Context, fromMagic int64) (*domain.MagicMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[fromMagic]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *m
	return &copy, nil
}

// Upsert adds or replaces the mapping keyed by FromMagic.
func (s *MappingStore) Upsert(_ context.Context, m *domain.MagicMapping) error {
	if m == nil || m.FromMagic == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *m
	s.data[m.FromMagic] = &copy
	return nil
}

// Delete removes the mapping for fromMagic. Returns ErrNotFound when absent.
func (s *MappingStore) Delete(_ context.Context, fromMagic int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[fromMagic]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, fromMagic)
	return nil
}

// List retrieves all mappings, ordered by FromMagic ASC.
func (s *MappingStore) List(_ context.Context) ([]*domain.MagicMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MagicMapping, 0, len(s.data))
	for _, m := range s.data {
		copy := *m
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FromMagic < result[j].FromMagic
	})
	return result, nil
}
