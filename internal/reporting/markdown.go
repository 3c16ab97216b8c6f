package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Performance Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategies: %d\n\n", r.StrategyCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.DataSummary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Sources | %s |\n", strings.Join(r.DataSummary.Sources, ", ")))
	sb.WriteString(fmt.Sprintf("| Symbols | %s |\n", strings.Join(r.DataSummary.Symbols, ", ")))
	if !r.DataSummary.DateRangeStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| First Close | %s |\n", r.DataSummary.DateRangeStart.Format("2006-01-02")))
		sb.WriteString(fmt.Sprintf("| Last Close | %s |\n", r.DataSummary.DateRangeEnd.Format("2006-01-02")))
	}
	sb.WriteString("\n")

	// Combined account row
	sb.WriteString("## Account\n\n")
	writeRowTable(&sb, []StrategyReportRow{r.Overall}, true)

	// Per-strategy metrics
	sb.WriteString("## Strategy Metrics\n\n")
	if len(r.StrategyRows) > 0 {
		writeRowTable(&sb, r.StrategyRows, false)
	} else {
		sb.WriteString("No strategy metrics available.\n\n")
	}

	return sb.String()
}

func writeRowTable(sb *strings.Builder, rows []StrategyReportRow, combined bool) {
	sb.WriteString("| Magic | Trades | WinRate | Net | PF | Expectancy | SQN | MaxDD | Ret/DD | MaxLoss | CAGR |\n")
	sb.WriteString("|-------|--------|---------|-----|----|------------|-----|-------|--------|---------|------|\n")
	for _, m := range rows {
		label := fmt.Sprintf("%d", m.MagicNumber)
		if combined {
			label = "all"
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.4f | %.4f | %.4f | %.2f | %.4f | %d | %.2f |\n",
			label, m.TotalTrades, m.WinRate, m.NetProfit, m.ProfitFactor,
			m.Expectancy, m.SQN, m.MaxDrawdown, m.RetDD, m.MaxConsecutiveLosses, m.CAGR))
	}
	sb.WriteString("\n")
}
