package challenge

import (
	"time"

	"trade-analytics-lab/internal/domain"
)

// Config parameterizes a two-phase challenge evaluation.
// Thresholds and limits are fractions of capital (0.08 = 8%).
type Config struct {
	Capital      float64
	Threshold1   float64 // phase-1 profit target
	Threshold2   float64 // additional phase-2 profit target
	DailyDDLimit float64
	MaxDDLimit   float64
	RiskPerTrade float64 // currency amount risked per trade after scaling
}

// Result aggregates all sequential attempts over one trade stream.
type Result struct {
	Completed     int
	AvgDays       float64
	AvgTrades     float64
	BestDays      int
	SuccessRate   float64 // percent of attempts that completed
	FailedMaxDD   int
	FailedDailyDD int
	TotalMonths   int
	ScalingFactor float64
}

// Statuses tagged onto replayed trades.
const (
	StatusActive      = "active"
	StatusPhase1      = "phase1"
	StatusCompleted   = "completed"
	StatusSuspMaxDD   = "susp_dd_max"
	StatusSuspDailyDD = "susp_dd_daily"
)

// ReplayPoint is one trade of the annotated challenge replay.
type ReplayPoint struct {
	Index        int
	CloseTime    time.Time
	Profit       float64 // raw
	ScaledProfit float64
	Balance      float64
	Phase        int
	Status       string
}

// simulator holds the running state of the challenge state machine.
type simulator struct {
	cfg   Config
	scale float64

	phase    int
	balance  float64
	peak     float64
	dayStart float64
	day      time.Time
	hasDay   bool

	started    bool
	startIdx   int
	startClose time.Time

	// balance after the last applied trade, before any reset
	tradeBalance float64
}

// ScalingFactor computes the per-trade profit multiplier: risk-per-trade
// divided by the average raw loss, with 100 standing in when the stream
// has no losing trades.
func ScalingFactor(trades []*domain.Trade, riskPerTrade float64) float64 {
	var lossSum float64
	var losses int
	for _, t := range trades {
		if t.Profit < 0 {
			lossSum += -t.Profit
			losses++
		}
	}
	avgLoss := 100.0
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	return riskPerTrade / avgLoss
}

func newSimulator(trades []*domain.Trade, cfg Config) *simulator {
	s := &simulator{cfg: cfg, scale: ScalingFactor(trades, cfg.RiskPerTrade)}
	s.reset()
	return s
}

// reset rearms the attempt. The calendar-day marker survives a reset so a
// failure and a fresh attempt on the same day share one day boundary.
func (s *simulator) reset() {
	s.phase = 1
	s.balance = s.cfg.Capital
	s.peak = s.cfg.Capital
	s.dayStart = s.cfg.Capital
	s.started = false
}

// step applies one trade and returns the resulting status tag. Breaches are
// checked before targets, so a trade that both breaches and reaches a goal
// counts as a failure.
func (s *simulator) step(idx int, t *domain.Trade) string {
	if !s.started {
		s.started = true
		s.startIdx = idx
		s.startClose = t.CloseTime
	}

	day := t.CloseTime.UTC().Truncate(24 * time.Hour)
	if !s.hasDay || !day.Equal(s.day) {
		s.day = day
		s.hasDay = true
		s.dayStart = s.balance
	}

	s.balance += t.Profit * s.scale
	s.tradeBalance = s.balance
	if s.balance > s.peak {
		s.peak = s.balance
	}

	ddFromPeak := (s.peak - s.balance) / s.peak
	if ddFromPeak > s.cfg.MaxDDLimit {
		s.reset()
		return StatusSuspMaxDD
	}

	ddDaily := (s.dayStart - s.balance) / s.cfg.Capital
	if ddDaily > s.cfg.DailyDDLimit {
		s.reset()
		return StatusSuspDailyDD
	}

	gain := (s.balance - s.cfg.Capital) / s.cfg.Capital
	if s.phase == 1 && gain >= s.cfg.Threshold1 {
		s.phase = 2
		return StatusPhase1
	}
	if s.phase == 2 && gain >= s.cfg.Threshold1+s.cfg.Threshold2 {
		s.reset()
		return StatusCompleted
	}

	return StatusActive
}

// Simulate runs sequential, non-overlapping challenge attempts over a
// close-time ordered trade stream.
func Simulate(trades []*domain.Trade, cfg Config) Result {
	result := Result{ScalingFactor: ScalingFactor(trades, cfg.RiskPerTrade)}
	if len(trades) == 0 || cfg.Capital <= 0 {
		return result
	}

	sim := newSimulator(trades, cfg)

	var totalDays, totalTrades float64
	bestDays := -1

	for i, t := range trades {
		switch sim.step(i, t) {
		case StatusSuspMaxDD:
			result.FailedMaxDD++
		case StatusSuspDailyDD:
			result.FailedDailyDD++
		case StatusCompleted:
			// reset does not clear the attempt start markers, so they still
			// describe the attempt that just completed
			days := elapsedDays(sim.startClose, t.CloseTime)
			totalDays += float64(days)
			totalTrades += float64(i - sim.startIdx + 1)
			if bestDays < 0 || days < bestDays {
				bestDays = days
			}
			result.Completed++
		}
	}

	if result.Completed > 0 {
		result.AvgDays = totalDays / float64(result.Completed)
		result.AvgTrades = totalTrades / float64(result.Completed)
		result.BestDays = bestDays
	}

	attempts := result.Completed + result.FailedMaxDD + result.FailedDailyDD
	if attempts > 0 {
		result.SuccessRate = float64(result.Completed) / float64(attempts) * 100
	}

	span := trades[len(trades)-1].CloseTime.Sub(trades[0].CloseTime).Hours() / 24
	result.TotalMonths = int(span / 30.44)

	return result
}

// Replay runs the same state machine and returns the annotated per-trade
// stream instead of the aggregate.
func Replay(trades []*domain.Trade, cfg Config) []ReplayPoint {
	if len(trades) == 0 || cfg.Capital <= 0 {
		return nil
	}

	sim := newSimulator(trades, cfg)

	points := make([]ReplayPoint, len(trades))
	for i, t := range trades {
		phase := sim.phase
		status := sim.step(i, t)

		points[i] = ReplayPoint{
			Index:        i,
			CloseTime:    t.CloseTime,
			Profit:       t.Profit,
			ScaledProfit: t.Profit * sim.scale,
			// the balance the trade produced, before any attempt reset
			Balance: sim.tradeBalance,
			Phase:   phase,
			Status:  status,
		}
	}

	return points
}

// elapsedDays counts whole elapsed days between two close timestamps,
// flooring sub-day remainders.
func elapsedDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
