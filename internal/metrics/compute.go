package metrics

import (
	"math"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/equity"
)

// Compute calculates the full stats vector over a pre-filtered, close-time
// ordered trade set. capitalBase anchors the percent-of-balance metrics.
// Every ratio falls back to 0 on a zero denominator; an empty input yields
// an all-zero vector. TotalStrategies is store-wide and left for the caller.
func Compute(trades []*domain.Trade, capitalBase float64) domain.Stats {
	n := len(trades)
	if n == 0 {
		return domain.Stats{}
	}

	var stats domain.Stats
	stats.TotalTrades = n

	profits := make([]float64, n)
	for i, t := range trades {
		profits[i] = t.Profit
		stats.NetProfit += t.Profit
		if t.Profit > 0 {
			stats.WinningTrades++
			stats.GrossProfit += t.Profit
		} else if t.Profit < 0 {
			stats.LosingTrades++
			stats.GrossLoss += -t.Profit
		}
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(n) * 100
	if stats.GrossLoss > 0 {
		stats.ProfitFactor = stats.GrossProfit / stats.GrossLoss
	}
	if stats.WinningTrades > 0 {
		stats.AvgWin = stats.GrossProfit / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = stats.GrossLoss / float64(stats.LosingTrades)
	}
	if stats.AvgLoss > 0 {
		stats.RRRatio = stats.AvgWin / stats.AvgLoss
	}
	stats.Expectancy = stats.WinRate/100*stats.AvgWin - (100-stats.WinRate)/100*stats.AvgLoss

	stats.SQN = computeSQN(profits, stats.Expectancy, stats.AvgLoss)
	stats.Sharpe = computeDailySharpe(trades)
	stats.RSquared = computeRSquared(profits)

	curve := equity.BuildCurve(trades)
	stats.MaxDrawdown, stats.MaxDrawdownPct = computeMaxDrawdown(curve, capitalBase)
	if stats.MaxDrawdown < 0 {
		stats.RetDD = stats.NetProfit / -stats.MaxDrawdown
	}

	stats.CAGR = computeCAGR(trades, stats.NetProfit, capitalBase)
	stats.AvgRecoveryDays = equity.AvgRecoveryDays(curve)
	stats.ConsistencyGreenMonths = computeGreenMonths(trades)
	stats.MaxConsecutiveLosses = computeMaxConsecutiveLosses(profits)

	return stats
}

// computeSQN calculates the System Quality Number over R-multiples.
// The risk unit is the average loss, or 1 when the set has no losers.
func computeSQN(profits []float64, expectancy, avgLoss float64) float64 {
	n := len(profits)
	if n < 2 {
		return 0
	}

	riskUnit := avgLoss
	if riskUnit == 0 {
		riskUnit = 1
	}

	rMultiples := make([]float64, n)
	for i, p := range profits {
		rMultiples[i] = p / riskUnit
	}

	stddev := sampleStddev(rMultiples)
	if stddev == 0 {
		return 0
	}
	return (expectancy / riskUnit) * math.Sqrt(float64(n)) / stddev
}

// computeDailySharpe calculates an un-annualized Sharpe ratio over daily
// profit buckets. Requires at least two distinct trading days.
func computeDailySharpe(trades []*domain.Trade) float64 {
	daily := make(map[time.Time]float64)
	for _, t := range trades {
		d := t.CloseTime.UTC().Truncate(24 * time.Hour)
		daily[d] += t.Profit
	}
	if len(daily) < 2 {
		return 0
	}

	sums := make([]float64, 0, len(daily))
	for _, p := range daily {
		sums = append(sums, p)
	}

	stddev := sampleStddev(sums)
	if stddev == 0 {
		return 0
	}
	return mean(sums) / stddev
}

// computeRSquared fits cumulative equity against the trade index with OLS
// and returns the coefficient of determination. Needs more than two trades
// and non-degenerate equity variance.
func computeRSquared(profits []float64) float64 {
	n := len(profits)
	if n <= 2 {
		return 0
	}

	ys := make([]float64, n)
	var cumulative float64
	for i, p := range profits {
		cumulative += p
		ys[i] = cumulative
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i + 1)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssTot, ssRes float64
	for i, y := range ys {
		x := float64(i + 1)
		fit := slope*x + intercept
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - fit) * (y - fit)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// computeMaxDrawdown returns the deepest drawdown (<= 0) and its depth as a
// percent of the balance at the drawdown peak, anchored at capitalBase.
func computeMaxDrawdown(curve []domain.EquityPoint, capitalBase float64) (maxDD, maxDDPct float64) {
	for _, p := range curve {
		if p.Drawdown < maxDD {
			maxDD = p.Drawdown
			peakBalance := capitalBase + p.RunningMax
			if peakBalance > 0 {
				maxDDPct = (peakBalance - (capitalBase + p.Cumulative)) / peakBalance * 100
			}
		}
	}
	return maxDD, maxDDPct
}

// computeCAGR derives annualized growth from the first-to-last close span.
// Spans of a year or more compound; shorter spans pro-rate linearly.
func computeCAGR(trades []*domain.Trade, netProfit, capitalBase float64) float64 {
	if len(trades) < 2 || capitalBase <= 0 {
		return 0
	}

	days := float64(int(trades[len(trades)-1].CloseTime.Sub(trades[0].CloseTime).Hours() / 24))
	years := days / 365.25
	if years <= 0 {
		return 0
	}

	final := capitalBase + netProfit
	if years >= 1 {
		if final <= 0 {
			return 0
		}
		return (math.Pow(final/capitalBase, 1/years) - 1) * 100
	}
	return netProfit / capitalBase / years * 100
}

// computeGreenMonths returns the percent of year-months with positive
// net profit.
func computeGreenMonths(trades []*domain.Trade) float64 {
	monthly := make(map[string]float64)
	for _, t := range trades {
		monthly[t.CloseTime.UTC().Format("2006-01")] += t.Profit
	}
	if len(monthly) == 0 {
		return 0
	}

	green := 0
	for _, p := range monthly {
		if p > 0 {
			green++
		}
	}
	return float64(green) / float64(len(monthly)) * 100
}

// computeMaxConsecutiveLosses finds the longest run of losing trades.
func computeMaxConsecutiveLosses(profits []float64) int {
	maxRun, run := 0, 0
	for _, p := range profits {
		if p < 0 {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return maxRun
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStddev computes the sample standard deviation (n-1 denominator).
func sampleStddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		sumSq += (v - m) * (v - m)
	}
	return math.Sqrt(sumSq / float64(n-1))
}
