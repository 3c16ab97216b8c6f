package remap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// Service manages magic-number mappings and their application to stored
// trades. Mappings are forward-only: deleting a mapping never reverts
// trades it already rewrote.
type Service struct {
	trades   storage.TradeStore
	mappings storage.MappingStore
	now      func() time.Time
}

// NewService creates a remap service over the given stores.
func NewService(trades storage.TradeStore, mappings storage.MappingStore) *Service {
	return &Service{trades: trades, mappings: mappings, now: time.Now}
}

// UpsertResult reports one mapping application.
type UpsertResult struct {
	FromMagic     int64
	ToMagic       int64
	ExistingCount int64 // trades carrying FromMagic before the rewrite
	UpdatedCount  int64 // trades rewritten (0 when updateExisting is false)
}

// Upsert writes a mapping, last write wins. When updateExisting is set,
// stored trades carrying fromMagic are rewritten to toMagic.
func (s *Service) Upsert(ctx context.Context, fromMagic, toMagic int64, updateExisting bool) (*UpsertResult, error) {
	if fromMagic <= 0 || toMagic <= 0 {
		return nil, fmt.Errorf("%w: magic numbers must be positive", storage.ErrInvalidInput)
	}
	if fromMagic == toMagic {
		return nil, fmt.Errorf("%w: mapping onto itself", storage.ErrInvalidInput)
	}

	existing, err := s.trades.CountByMagicNumber(ctx, fromMagic)
	if err != nil {
		return nil, fmt.Errorf("count trades for magic %d: %w", fromMagic, err)
	}

	mapping := &domain.MagicMapping{
		FromMagic: fromMagic,
		ToMagic:   toMagic,
		CreatedAt: s.now().UTC(),
	}
	if err := s.mappings.Upsert(ctx, mapping); err != nil {
		return nil, fmt.Errorf("upsert mapping %d->%d: %w", fromMagic, toMagic, err)
	}

	result := &UpsertResult{FromMagic: fromMagic, ToMagic: toMagic, ExistingCount: existing}
	if updateExisting {
		updated, err := s.trades.UpdateMagicNumber(ctx, fromMagic, toMagic)
		if err != nil {
			return nil, fmt.Errorf("rewrite trades %d->%d: %w", fromMagic, toMagic, err)
		}
		result.UpdatedCount = updated
	}

	return result, nil
}

// Delete removes the mapping only. Trades already rewritten stay as they are.
func (s *Service) Delete(ctx context.Context, fromMagic int64) error {
	return s.mappings.Delete(ctx, fromMagic)
}

// List returns all mappings ordered by source magic number.
func (s *Service) List(ctx context.Context) ([]*domain.MagicMapping, error) {
	return s.mappings.List(ctx)
}

// Apply resolves one magic number through the mapping table. A single hop
// only: chains are not followed.
func (s *Service) Apply(ctx context.Context, magic int64) (int64, error) {
	m, err := s.mappings.Get(ctx, magic)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return magic, nil
		}
		return 0, fmt.Errorf("resolve mapping for magic %d: %w", magic, err)
	}
	return m.ToMagic, nil
}

// UnifyBatch applies a set of mappings in one pass, always rewriting
// existing trades, and reports per-mapping results. A failing mapping stops
// the batch; earlier rewrites stand.
func (s *Service) UnifyBatch(ctx context.Context, pairs map[int64]int64) ([]*UpsertResult, error) {
	results := make([]*UpsertResult, 0, len(pairs))
	for _, from := range sortedKeys(pairs) {
		r, err := s.Upsert(ctx, from, pairs[from], true)
		if err != nil {
			return results, fmt.Errorf("unify %d->%d: %w", from, pairs[from], err)
		}
		results = append(results, r)
	}
	return results, nil
}

func sortedKeys(pairs map[int64]int64) []int64 {
	keys := make([]int64, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
