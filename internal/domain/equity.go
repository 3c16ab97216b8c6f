package domain

import "time"

// EquityPoint is one step of the cumulative equity curve.
// Derived on demand from close-time ordered trades; never persisted.
type EquityPoint struct {
	Time       time.Time
	Profit     float64 // this trade's profit
	Cumulative float64 // running sum of profits
	RunningMax float64 // highest cumulative seen so far
	Drawdown   float64 // cumulative - runningMax, always <= 0
}

// DailyEquityPoint is the equity curve bucketed by close date.
type DailyEquityPoint struct {
	Date       time.Time // midnight UTC
	Profit     float64   // sum of profits closed that day
	Cumulative float64
	RunningMax float64
	Drawdown   float64
}

// MonthlyDrawdownPoint summarizes drawdown per year-month.
type MonthlyDrawdownPoint struct {
	Month       string // "2006-01"
	MinDrawdown float64
	EndEquity   float64 // last cumulative of the month
}

// MonthlyProfitPoint is net profit summed per year-month.
// Months without trades inside the reported span carry zero.
type MonthlyProfitPoint struct {
	Month  string // "2006-01"
	Profit float64
	Trades int
}
