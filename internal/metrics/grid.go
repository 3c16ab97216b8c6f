package metrics

import (
	"sort"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/equity"
)

// MonthCell is one strategy-month of the performance grid.
type MonthCell struct {
	Profit  float64
	Trades  int
	WinRate float64 // percent
}

// StrategyRow is one strategy's row of the monthly performance grid.
type StrategyRow struct {
	MagicNumber          int64
	RetDD                float64
	MaxConsecutiveLosses int
	Months               map[string]MonthCell // keyed "2006-01"
}

// StrategyMonthlyGrid groups trades by magic number and builds the monthly
// performance grid per strategy. Input must be close-time ordered; the
// per-strategy order is preserved. Rows are sorted by magic number.
func StrategyMonthlyGrid(trades []*domain.Trade) []StrategyRow {
	byMagic := make(map[int64][]*domain.Trade)
	for _, t := range trades {
		byMagic[t.MagicNumber] = append(byMagic[t.MagicNumber], t)
	}

	magics := make([]int64, 0, len(byMagic))
	for m := range byMagic {
		magics = append(magics, m)
	}
	sort.Slice(magics, func(i, j int) bool { return magics[i] < magics[j] })

	rows := make([]StrategyRow, 0, len(magics))
	for _, magic := range magics {
		group := byMagic[magic]

		var netProfit float64
		profits := make([]float64, len(group))
		for i, t := range group {
			profits[i] = t.Profit
			netProfit += t.Profit
		}

		row := StrategyRow{
			MagicNumber:          magic,
			MaxConsecutiveLosses: computeMaxConsecutiveLosses(profits),
			Months:               make(map[string]MonthCell),
		}

		curve := equity.BuildCurve(group)
		var maxDD float64
		for _, p := range curve {
			if p.Drawdown < maxDD {
				maxDD = p.Drawdown
			}
		}
		if maxDD < 0 {
			row.RetDD = netProfit / -maxDD
		}

		type monthAgg struct {
			profit float64
			trades int
			wins   int
		}
		months := make(map[string]*monthAgg)
		for _, t := range group {
			key := t.CloseTime.UTC().Format("2006-01")
			agg, ok := months[key]
			if !ok {
				agg = &monthAgg{}
				months[key] = agg
			}
			agg.profit += t.Profit
			agg.trades++
			if t.Profit > 0 {
				agg.wins++
			}
		}
		for key, agg := range months {
			row.Months[key] = MonthCell{
				Profit:  agg.profit,
				Trades:  agg.trades,
				WinRate: float64(agg.wins) / float64(agg.trades) * 100,
			}
		}

		rows = append(rows, row)
	}

	return rows
}
