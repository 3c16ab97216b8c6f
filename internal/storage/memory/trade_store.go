package memory

import (
	"context"
	"sort"
	"sync"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by fingerprint
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// InsertIfAbsent adds a trade unless its fingerprint is already stored.
func (s *TradeStore) InsertIfAbsent(_ context.Context, t *domain.Trade) (bool, error) {
	if t == nil || t.Fingerprint == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Fingerprint]; exists {
		return false, nil
	}

	copy := *t
	s.data[t.Fingerprint] = &copy
	return true, nil
}

// GetByFingerprint retrieves a trade by fingerprint. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByFingerprint(_ context.Context, fingerprint string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[fingerprint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// Query retrieves trades matching the filter, ordered by close_time ASC.
func (s *TradeStore) Query(_ context.Context, f domain.TradeFilter) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if !matches(t, f) {
			continue
		}
		copy := *t
		result = append(result, &copy)
	}

	sortByCloseTime(result)
	return result, nil
}

// All retrieves every trade, ordered by close_time ASC.
func (s *TradeStore) All(ctx context.Context) ([]*domain.Trade, error) {
	return s.Query(ctx, domain.TradeFilter{})
}

// UpdateMagicNumber rewrites all trades with magic number from to to.
func (s *TradeStore) UpdateMagicNumber(_ context.Context, from, to int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.data {
		if t.MagicNumber == from {
			t.MagicNumber = to
			n++
		}
	}
	return n, nil
}

// UpdateTimeframe sets the timeframe of the trade with the given fingerprint.
func (s *TradeStore) UpdateTimeframe(_ context.Context, fingerprint, timeframe string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[fingerprint]
	if !exists {
		return storage.ErrNotFound
	}
	t.Timeframe = timeframe
	return nil
}

// UnknownTimeframes returns (fingerprint, comment) pairs of trades whose
// timeframe is still Unknown.
func (s *TradeStore) UnknownTimeframes(_ context.Context) ([]storage.UnknownTimeframe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []storage.UnknownTimeframe
	for _, t := range s.data {
		if t.Timeframe == domain.TimeframeUnknown {
			result = append(result, storage.UnknownTimeframe{
				Fingerprint: t.Fingerprint,
				Comment:     t.Comment,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Fingerprint < result[j].Fingerprint
	})
	return result, nil
}

// DeleteByMagicNumber removes all trades of a strategy.
func (s *TradeStore) DeleteByMagicNumber(_ context.Context, magic int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for fp, t := range s.data {
		if t.MagicNumber == magic {
			delete(s.data, fp)
			n++
		}
	}
	return n, nil
}

// DeleteAll removes every trade.
func (s *TradeStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.data))
	s.data = make(map[string]*domain.Trade)
	return n, nil
}

// DistinctSources returns all feed names, sorted ASC.
func (s *TradeStore) DistinctSources(_ context.Context) ([]string, error) {
	return s.distinctStrings(func(t *domain.Trade) (string, bool) {
		return t.Source, t.Source != ""
	}), nil
}

// DistinctSymbols returns all symbols, sorted ASC.
func (s *TradeStore) DistinctSymbols(_ context.Context) ([]string, error) {
	return s.distinctStrings(func(t *domain.Trade) (string, bool) {
		return t.Symbol, t.Symbol != ""
	}), nil
}

// DistinctTimeframes returns all timeframes excluding Unknown, sorted ASC.
func (s *TradeStore) DistinctTimeframes(_ context.Context) ([]string, error) {
	return s.distinctStrings(func(t *domain.Trade) (string, bool) {
		return t.Timeframe, t.Timeframe != "" && t.Timeframe != domain.TimeframeUnknown
	}), nil
}

// DistinctMagicNumbers returns all magic numbers > 0, sorted ASC.
func (s *TradeStore) DistinctMagicNumbers(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, t := range s.data {
		if t.MagicNumber > 0 {
			seen[t.MagicNumber] = struct{}{}
		}
	}

	result := make([]int64, 0, len(seen))
	for m := range seen {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

// CountByMagicNumber returns the number of trades with the given magic number.
func (s *TradeStore) CountByMagicNumber(_ context.Context, magic int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.data {
		if t.MagicNumber == magic {
			n++
		}
	}
	return n, nil
}

func (s *TradeStore) distinctStrings(field func(*domain.Trade) (string, bool)) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range s.data {
		if v, ok := field(t); ok {
			seen[v] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for v := range seen {
		result = append(result, v)
	}
	sort.Strings(result)
	return result
}

// matches applies the storage-level filter fields. Direction is skipped:
// it depends on comment parsing and is resolved by the analytics layer.
func matches(t *domain.Trade, f domain.TradeFilter) bool {
	if f.Source != "" && t.Source != f.Source {
		return false
	}
	if f.Year != 0 && t.CloseTime.Year() != f.Year {
		return false
	}
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.Timeframe != "" && t.Timeframe != f.Timeframe {
		return false
	}
	if f.MagicNumber != 0 && t.MagicNumber != f.MagicNumber {
		return false
	}
	return true
}

// sortByCloseTime orders trades deterministically by close time,
// breaking ties on fingerprint.
func sortByCloseTime(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].CloseTime.Equal(trades[j].CloseTime) {
			return trades[i].CloseTime.Before(trades[j].CloseTime)
		}
		return trades[i].Fingerprint < trades[j].Fingerprint
	})
}
