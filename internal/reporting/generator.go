package reporting

import (
	"context"
	"sort"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/metrics"
	"trade-analytics-lab/internal/storage"
)

// Generator produces reports from stored trades.
type Generator struct {
	trades      storage.TradeStore
	capitalBase float64
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(trades storage.TradeStore, capitalBase float64) *Generator {
	return &Generator{
		trades:      trades,
		capitalBase: capitalBase,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report over all stored trades.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	all, err := g.trades.All(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := g.generateDataSummary(ctx, all)
	if err != nil {
		return nil, err
	}

	rows := g.generateStrategyRows(all)

	return &Report{
		GeneratedAt:   g.now(),
		StrategyCount: len(rows),
		DataSummary:   *summary,
		StrategyRows:  rows,
		Overall:       toRow(0, all, metrics.Compute(all, g.capitalBase)),
	}, nil
}

func (g *Generator) generateDataSummary(ctx context.Context, all []*domain.Trade) (*DataSummary, error) {
	sources, err := g.trades.DistinctSources(ctx)
	if err != nil {
		return nil, err
	}
	symbols, err := g.trades.DistinctSymbols(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DataSummary{
		TotalTrades: len(all),
		Sources:     sources,
		Symbols:     symbols,
	}
	if len(all) > 0 {
		// trades are close-time ordered
		summary.DateRangeStart = all[0].CloseTime
		summary.DateRangeEnd = all[len(all)-1].CloseTime
	}
	return summary, nil
}

// generateStrategyRows computes one metric row per magic number > 0,
// sorted by magic number.
func (g *Generator) generateStrategyRows(all []*domain.Trade) []StrategyReportRow {
	byMagic := make(map[int64][]*domain.Trade)
	for _, t := range all {
		if t.MagicNumber <= 0 {
			continue
		}
		byMagic[t.MagicNumber] = append(byMagic[t.MagicNumber], t)
	}

	rows := make([]StrategyReportRow, 0, len(byMagic))
	for magic, trades := range byMagic {
		rows = append(rows, toRow(magic, trades, metrics.Compute(trades, g.capitalBase)))
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].MagicNumber < rows[j].MagicNumber
	})
	return rows
}

func toRow(magic int64, trades []*domain.Trade, stats domain.Stats) StrategyReportRow {
	return StrategyReportRow{
		MagicNumber:          magic,
		TotalTrades:          len(trades),
		WinRate:              stats.WinRate,
		NetProfit:            stats.NetProfit,
		ProfitFactor:         stats.ProfitFactor,
		Expectancy:           stats.Expectancy,
		SQN:                  stats.SQN,
		MaxDrawdown:          stats.MaxDrawdown,
		RetDD:                stats.RetDD,
		MaxConsecutiveLosses: stats.MaxConsecutiveLosses,
		CAGR:                 stats.CAGR,
	}
}
