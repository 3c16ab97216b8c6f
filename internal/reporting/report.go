package reporting

import "time"

// Report is the periodic performance report over all stored trades.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	StrategyCount int

	// Data Summary
	DataSummary DataSummary

	// Per-strategy rows (sorted by magic number), plus the combined row
	StrategyRows []StrategyReportRow
	Overall      StrategyReportRow
}

// DataSummary describes the data the report was computed from.
type DataSummary struct {
	TotalTrades    int
	Sources        []string
	Symbols        []string
	DateRangeStart time.Time // earliest close time
	DateRangeEnd   time.Time // latest close time
}

// StrategyReportRow is one strategy's metric row. Magic 0 labels the
// combined row.
type StrategyReportRow struct {
	MagicNumber          int64
	TotalTrades          int
	WinRate              float64
	NetProfit            float64
	ProfitFactor         float64
	Expectancy           float64
	SQN                  float64
	MaxDrawdown          float64
	RetDD                float64
	MaxConsecutiveLosses int
	CAGR                 float64
}
