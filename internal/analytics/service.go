// Package analytics is the read-mostly query facade between the stores
// and the API layer. Every call recomputes from stored trades; there is
// no cache.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"trade-analytics-lab/internal/comment"
	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/equity"
	"trade-analytics-lab/internal/metrics"
	"trade-analytics-lab/internal/storage"
)

// DefaultCapitalBase is the account size all percentage metrics are
// computed against.
const DefaultCapitalBase = 100000

// Service answers dashboard queries over the trade store.
type Service struct {
	trades      storage.TradeStore
	mappings    storage.MappingStore
	logs        storage.IngestLogStore
	capitalBase float64
}

// NewService creates the facade. A non-positive capitalBase falls back to
// DefaultCapitalBase.
func NewService(trades storage.TradeStore, mappings storage.MappingStore, logs storage.IngestLogStore, capitalBase float64) *Service {
	if capitalBase <= 0 {
		capitalBase = DefaultCapitalBase
	}
	return &Service{trades: trades, mappings: mappings, logs: logs, capitalBase: capitalBase}
}

// Query returns the close-time ordered trades matching the filter,
// including the comment-derived direction semantics the stores cannot
// apply themselves.
func (s *Service) Query(ctx context.Context, f domain.TradeFilter) ([]*domain.Trade, error) {
	trades, err := s.trades.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return filterDirection(trades, f.Direction), nil
}

// Stats computes the full metric vector for the filtered set.
// TotalStrategies counts distinct magic numbers store-wide, independent
// of the filter.
func (s *Service) Stats(ctx context.Context, f domain.TradeFilter) (domain.Stats, error) {
	trades, err := s.Query(ctx, f)
	if err != nil {
		return domain.Stats{}, err
	}
	stats := metrics.Compute(trades, s.capitalBase)

	magics, err := s.trades.DistinctMagicNumbers(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	stats.TotalStrategies = len(magics)
	return stats, nil
}

// EquityCurve returns the per-trade equity curve for the filtered set.
func (s *Service) EquityCurve(ctx context.Context, f domain.TradeFilter) ([]domain.EquityPoint, error) {
	trades, err := s.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return equity.BuildCurve(trades), nil
}

// DailyEquity returns the equity curve over daily profit buckets.
func (s *Service) DailyEquity(ctx context.Context, f domain.TradeFilter) ([]domain.DailyEquityPoint, error) {
	trades, err := s.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return equity.DailySeries(trades), nil
}

// MonthlyDrawdown returns per-month minimum drawdown and closing equity.
func (s *Service) MonthlyDrawdown(ctx context.Context, f domain.TradeFilter) ([]domain.MonthlyDrawdownPoint, error) {
	trades, err := s.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return equity.MonthlyDrawdown(trades), nil
}

// MonthlyProfit returns zero-filled per-month profit sums.
func (s *Service) MonthlyProfit(ctx context.Context, f domain.TradeFilter) ([]domain.MonthlyProfitPoint, error) {
	trades, err := s.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return equity.MonthlyProfit(trades, f.Year), nil
}

// StrategyMonthlyGrid returns the per-strategy month-by-month grid.
func (s *Service) StrategyMonthlyGrid(ctx context.Context, f domain.TradeFilter) ([]metrics.StrategyRow, error) {
	trades, err := s.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return metrics.StrategyMonthlyGrid(trades), nil
}

// MaxDrawdownYearPct returns the deepest drawdown of the filtered set as a
// percentage of the capital base.
func (s *Service) MaxDrawdownYearPct(ctx context.Context, f domain.TradeFilter) (float64, error) {
	curve, err := s.EquityCurve(ctx, f)
	if err != nil {
		return 0, err
	}
	minDD := 0.0
	for _, p := range curve {
		if p.Drawdown < minDD {
			minDD = p.Drawdown
		}
	}
	return -minDD / s.capitalBase * 100, nil
}

// Sources lists the configured feed names present in the store.
func (s *Service) Sources(ctx context.Context) ([]string, error) {
	return s.trades.DistinctSources(ctx)
}

// Symbols lists all traded symbols.
func (s *Service) Symbols(ctx context.Context) ([]string, error) {
	return s.trades.DistinctSymbols(ctx)
}

// Timeframes lists all known timeframes, excluding Unknown.
func (s *Service) Timeframes(ctx context.Context) ([]string, error) {
	return s.trades.DistinctTimeframes(ctx)
}

// MagicNumbers lists all strategy identifiers (magic > 0).
func (s *Service) MagicNumbers(ctx context.Context) ([]int64, error) {
	return s.trades.DistinctMagicNumbers(ctx)
}

// Directions lists the filterable direction options.
func (s *Service) Directions() []string {
	return []string{domain.DirectionBuy, domain.DirectionSell, "Buy/Sell"}
}

// Strategies lists distinct strategy names parsed from order comments.
func (s *Service) Strategies(ctx context.Context) ([]string, error) {
	return s.distinctParsed(ctx, func(p comment.Parsed) string { return p.Strategy })
}

// CurrencyPairs lists distinct currency pairs parsed from order comments.
func (s *Service) CurrencyPairs(ctx context.Context) ([]string, error) {
	return s.distinctParsed(ctx, func(p comment.Parsed) string { return p.CurrencyPair })
}

// Ranges lists distinct range tokens parsed from order comments.
func (s *Service) Ranges(ctx context.Context) ([]string, error) {
	return s.distinctParsed(ctx, func(p comment.Parsed) string { return p.Range })
}

// StrategyTrades lists one strategy's trades, optionally narrowed to a
// year and month. Returns storage.ErrNotFound for an unknown magic number.
func (s *Service) StrategyTrades(ctx context.Context, magic int64, year, month int) ([]*domain.Trade, error) {
	count, err := s.trades.CountByMagicNumber(ctx, magic)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("strategy %d: %w", magic, storage.ErrNotFound)
	}

	trades, err := s.trades.Query(ctx, domain.TradeFilter{MagicNumber: magic, Year: year})
	if err != nil {
		return nil, err
	}
	if month == 0 {
		return trades, nil
	}
	out := trades[:0]
	for _, t := range trades {
		if int(t.CloseTime.UTC().Month()) == month {
			out = append(out, t)
		}
	}
	return out, nil
}

// Portfolio is the combined view over a set of strategies.
type Portfolio struct {
	Stats         domain.Stats
	MonthlyProfit []domain.MonthlyProfitPoint
	DailyEquity   []domain.DailyEquityPoint
}

// PortfolioStats computes the combined metric vector, monthly profit and
// daily equity over a set of magic numbers.
func (s *Service) PortfolioStats(ctx context.Context, magics []int64) (*Portfolio, error) {
	var combined []*domain.Trade
	for _, magic := range magics {
		trades, err := s.trades.Query(ctx, domain.TradeFilter{MagicNumber: magic})
		if err != nil {
			return nil, err
		}
		combined = append(combined, trades...)
	}
	sort.Slice(combined, func(i, j int) bool {
		if !combined[i].CloseTime.Equal(combined[j].CloseTime) {
			return combined[i].CloseTime.Before(combined[j].CloseTime)
		}
		return combined[i].Fingerprint < combined[j].Fingerprint
	})

	return &Portfolio{
		Stats:         metrics.Compute(combined, s.capitalBase),
		MonthlyProfit: equity.MonthlyProfit(combined, 0),
		DailyEquity:   equity.DailySeries(combined),
	}, nil
}

// RecentTrades returns up to limit filtered trades, newest first.
func (s *Service) RecentTrades(ctx context.Context, f domain.TradeFilter, limit int) ([]*domain.Trade, error) {
	trades, err := s.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	// reverse the close-time ASC order
	out := make([]*domain.Trade, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		out = append(out, trades[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// LastUpdate returns the most recent ingest log entry, or nil when no
// ingest has run yet.
func (s *Service) LastUpdate(ctx context.Context) (*domain.IngestLogEntry, error) {
	entries, err := s.logs.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// DeleteStrategy removes all trades of one strategy. Returns the count
// removed, or storage.ErrNotFound when the strategy has no trades.
func (s *Service) DeleteStrategy(ctx context.Context, magic int64) (int64, error) {
	deleted, err := s.trades.DeleteByMagicNumber(ctx, magic)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, fmt.Errorf("strategy %d: %w", magic, storage.ErrNotFound)
	}
	return deleted, nil
}

// ResetResult reports what a Reset removed and kept.
type ResetResult struct {
	TradesDeleted     int64
	LogEntriesDeleted int64
	MappingsPreserved int
}

// Reset wipes trades and the ingest log. Mappings survive so the next
// ingest remaps the refilled data the same way.
func (s *Service) Reset(ctx context.Context) (*ResetResult, error) {
	trades, err := s.trades.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete trades: %w", err)
	}
	logs, err := s.logs.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete ingest log: %w", err)
	}
	mappings, err := s.mappings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("count mappings: %w", err)
	}
	return &ResetResult{
		TradesDeleted:     trades,
		LogEntriesDeleted: logs,
		MappingsPreserved: len(mappings),
	}, nil
}

// Snapshot captures the current stats vector for a filter, keyed by the
// filter's canonical form.
func (s *Service) Snapshot(ctx context.Context, f domain.TradeFilter) (*domain.StatsSnapshot, error) {
	stats, err := s.Stats(ctx, f)
	if err != nil {
		return nil, err
	}
	return &domain.StatsSnapshot{
		FilterKey:  f.Key(),
		ComputedAt: time.Now().UTC(),
		Stats:      stats,
	}, nil
}

func (s *Service) distinctParsed(ctx context.Context, field func(comment.Parsed) string) ([]string, error) {
	trades, err := s.trades.All(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, t := range trades {
		v := field(comment.Parse(t.Comment))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// filterDirection applies the comment-derived direction semantics:
// Buy keeps buy trades whose comment code is B or empty, Sell keeps sell
// trades coded S, Buy/Sell keeps trades coded BS regardless of side.
func filterDirection(trades []*domain.Trade, direction string) []*domain.Trade {
	if direction == "" {
		return trades
	}
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		code := comment.ExtractDirection(t.Comment)
		switch direction {
		case domain.DirectionBuy:
			if t.Direction == domain.DirectionBuy && (code == "B" || code == "") {
				out = append(out, t)
			}
		case domain.DirectionSell:
			if t.Direction == domain.DirectionSell && code == "S" {
				out = append(out, t)
			}
		case "Buy/Sell":
			if code == "BS" {
				out = append(out, t)
			}
		}
	}
	return out
}
