package equity

import (
	"fmt"
	"sort"
	"time"

	"trade-analytics-lab/internal/domain"
)

// BuildCurve derives the cumulative equity curve from a close-time ordered
// trade slice. One output point per input trade; the input order is trusted,
// not re-sorted. Empty input produces an empty curve.
func BuildCurve(trades []*domain.Trade) []domain.EquityPoint {
	if len(trades) == 0 {
		return nil
	}

	points := make([]domain.EquityPoint, len(trades))
	var cumulative, runningMax float64

	for i, t := range trades {
		cumulative += t.Profit
		if cumulative > runningMax {
			runningMax = cumulative
		}
		points[i] = domain.EquityPoint{
			Time:       t.CloseTime,
			Profit:     t.Profit,
			Cumulative: cumulative,
			RunningMax: runningMax,
			Drawdown:   cumulative - runningMax,
		}
	}

	return points
}

// AvgRecoveryDays averages the length of completed drawdown episodes in
// whole elapsed days, flooring sub-day remainders. An episode opens when
// drawdown leaves zero and closes when it returns to exactly zero; an
// episode still open at the end of the data is not counted. Returns 0 when
// no episode completed.
func AvgRecoveryDays(points []domain.EquityPoint) float64 {
	var totalDays float64
	var episodes int

	inDrawdown := false
	var start time.Time

	for _, p := range points {
		if !inDrawdown && p.Drawdown < 0 {
			inDrawdown = true
			start = p.Time
		} else if inDrawdown && p.Drawdown == 0 {
			inDrawdown = false
			totalDays += float64(int(p.Time.Sub(start).Hours() / 24))
			episodes++
		}
	}

	if episodes == 0 {
		return 0
	}
	return totalDays / float64(episodes)
}

// DailySeries buckets profit by close date and rebuilds the curve over the
// daily sums. Dates are midnight UTC, ascending.
func DailySeries(trades []*domain.Trade) []domain.DailyEquityPoint {
	if len(trades) == 0 {
		return nil
	}

	daily := make(map[time.Time]float64)
	for _, t := range trades {
		d := t.CloseTime.UTC().Truncate(24 * time.Hour)
		daily[d] += t.Profit
	}

	dates := make([]time.Time, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	points := make([]domain.DailyEquityPoint, len(dates))
	var cumulative, runningMax float64
	for i, d := range dates {
		cumulative += daily[d]
		if cumulative > runningMax {
			runningMax = cumulative
		}
		points[i] = domain.DailyEquityPoint{
			Date:       d,
			Profit:     daily[d],
			Cumulative: cumulative,
			RunningMax: runningMax,
			Drawdown:   cumulative - runningMax,
		}
	}

	return points
}

// MonthlyDrawdown summarizes the per-trade curve by year-month: the deepest
// drawdown inside the month and the cumulative equity at month end.
func MonthlyDrawdown(trades []*domain.Trade) []domain.MonthlyDrawdownPoint {
	curve := BuildCurve(trades)
	if len(curve) == 0 {
		return nil
	}

	type monthAgg struct {
		minDrawdown float64
		endEquity   float64
	}

	byMonth := make(map[string]*monthAgg)
	var months []string
	for _, p := range curve {
		m := p.Time.UTC().Format("2006-01")
		agg, ok := byMonth[m]
		if !ok {
			agg = &monthAgg{minDrawdown: p.Drawdown}
			byMonth[m] = agg
			months = append(months, m)
		}
		if p.Drawdown < agg.minDrawdown {
			agg.minDrawdown = p.Drawdown
		}
		agg.endEquity = p.Cumulative
	}
	sort.Strings(months)

	points := make([]domain.MonthlyDrawdownPoint, len(months))
	for i, m := range months {
		points[i] = domain.MonthlyDrawdownPoint{
			Month:       m,
			MinDrawdown: byMonth[m].minDrawdown,
			EndEquity:   byMonth[m].endEquity,
		}
	}
	return points
}

// MonthlyProfit sums profit per year-month over [fromYear, toYear] bounds
// derived from the data, zero-filling months with no trades. When year is
// non-zero only that year's twelve months are reported.
func MonthlyProfit(trades []*domain.Trade, year int) []domain.MonthlyProfitPoint {
	if len(trades) == 0 {
		return nil
	}

	profits := make(map[string]float64)
	counts := make(map[string]int)
	minMonth, maxMonth := "", ""
	for _, t := range trades {
		m := t.CloseTime.UTC().Format("2006-01")
		profits[m] += t.Profit
		counts[m]++
		if minMonth == "" || m < minMonth {
			minMonth = m
		}
		if m > maxMonth {
			maxMonth = m
		}
	}

	var span []string
	if year != 0 {
		for m := 1; m <= 12; m++ {
			span = append(span, fmt.Sprintf("%04d-%02d", year, m))
		}
	} else {
		span = monthSpan(minMonth, maxMonth)
	}

	points := make([]domain.MonthlyProfitPoint, len(span))
	for i, m := range span {
		points[i] = domain.MonthlyProfitPoint{
			Month:  m,
			Profit: profits[m],
			Trades: counts[m],
		}
	}
	return points
}

// monthSpan enumerates every "YYYY-MM" between from and to inclusive.
func monthSpan(from, to string) []string {
	start, err := time.Parse("2006-01", from)
	if err != nil {
		return nil
	}
	end, err := time.Parse("2006-01", to)
	if err != nil {
		return nil
	}

	var months []string
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m.Format("2006-01"))
	}
	return months
}
