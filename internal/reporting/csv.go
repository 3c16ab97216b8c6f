package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the per-strategy rows as a CSV string.
func RenderCSV(rows []StrategyReportRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("magic_number,total_trades,win_rate,net_profit,profit_factor,")
	sb.WriteString("expectancy,sqn,max_drawdown,ret_dd,max_consecutive_losses,cagr\n")

	// Rows
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%.6f\n",
			m.MagicNumber,
			m.TotalTrades,
			m.WinRate,
			m.NetProfit,
			m.ProfitFactor,
			m.Expectancy,
			m.SQN,
			m.MaxDrawdown,
			m.RetDD,
			m.MaxConsecutiveLosses,
			m.CAGR,
		))
	}

	return sb.String()
}
