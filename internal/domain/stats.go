package domain

import "time"

// Stats is the full metric vector computed over a filtered trade set.
// Every ratio defaults to 0 on a zero denominator; an empty trade set
// produces an all-zero vector, never an error.
type Stats struct {
	// Counts
	TotalTrades   int
	WinningTrades int
	LosingTrades  int

	// Profit
	NetProfit   float64
	GrossProfit float64
	GrossLoss   float64 // absolute value

	// Ratios
	WinRate      float64 // percent
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64 // absolute value
	RRRatio      float64
	Expectancy   float64

	// Quality
	SQN      float64
	Sharpe   float64 // daily, un-annualized
	RSquared float64 // equity vs trade index

	// Drawdown
	MaxDrawdown    float64 // <= 0
	MaxDrawdownPct float64 // percent of balance at the drawdown peak
	RetDD          float64 // netProfit / |maxDrawdown|

	// Growth
	CAGR                   float64 // percent
	AvgRecoveryDays        float64
	ConsistencyGreenMonths float64 // percent of months with positive profit
	MaxConsecutiveLosses   int

	// Store-wide, independent of the filter
	TotalStrategies int
}

// StatsSnapshot is an append-only history row persisting a computed
// stats vector for a filter key at a point in time.
type StatsSnapshot struct {
	FilterKey  string // canonical serialized filter, "all" when unfiltered
	ComputedAt time.Time
	Stats      Stats
}
