package memory

import (
	"context"
	"sort"
	"sync"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.StatsSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends a snapshot row.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.StatsSnapshot) error {
	if snap == nil || snap.FilterKey == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *snap
	s.data = append(s.data, &copy)
	return nil
}

// GetByKey retrieves all snapshots for a filter key, ordered by ComputedAt ASC.
func (s *SnapshotStore) GetByKey(_ context.Context, filterKey string) ([]*domain.StatsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StatsSnapshot
	for _, snap := range s.data {
		if snap.FilterKey == filterKey {
			copy := *snap
			result = append(result, &copy)
		}
	}

	sortSnapshots(result)
	return result, nil
}

// GetAll retrieves all snapshots, ordered by ComputedAt ASC.
func (s *SnapshotStore) GetAll(_ context.Context) ([]*domain.StatsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.StatsSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		copy := *snap
		result = append(result, &copy)
	}

	sortSnapshots(result)
	return result, nil
}

func sortSnapshots(snaps []*domain.StatsSnapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].ComputedAt.Equal(snaps[j].ComputedAt) {
			return snaps[i].ComputedAt.Before(snaps[j].ComputedAt)
		}
		return snaps[i].FilterKey < snaps[j].FilterKey
	})
}
