package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage/memory"
)

func setupTestData(t *testing.T) *memory.TradeStore {
	ctx := context.Background()
	trades := memory.NewTradeStore()

	rows := []struct {
		fp     string
		close  time.Time
		profit float64
		magic  int64
	}{
		{"t1", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), 100, 7001},
		{"t2", time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC), -50, 7001},
		{"t3", time.Date(2024, 1, 12, 12, 0, 0, 0, time.UTC), 200, 7002},
		{"t4", time.Date(2024, 1, 13, 12, 0, 0, 0, time.UTC), 30, 0}, // manual
	}
	for _, r := range rows {
		_, err := trades.InsertIfAbsent(ctx, &domain.Trade{
			Fingerprint: r.fp,
			Source:      "demo",
			OpenTime:    r.close.Add(-time.Hour),
			CloseTime:   r.close,
			Symbol:      "EURUSD",
			Direction:   domain.DirectionBuy,
			Lots:        0.1,
			Profit:      r.profit,
			MagicNumber: r.magic,
			Timeframe:   "1H",
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Insert trade failed: %v", err)
		}
	}
	return trades
}

func TestGenerate(t *testing.T) {
	trades := setupTestData(t)
	fixed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	gen := NewGenerator(trades, 100000).WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if report.StrategyCount != 2 {
		t.Errorf("StrategyCount = %d, want 2 (manual trades excluded)", report.StrategyCount)
	}
	if report.DataSummary.TotalTrades != 4 {
		t.Errorf("TotalTrades = %d, want 4", report.DataSummary.TotalTrades)
	}
	if got := report.DataSummary.DateRangeEnd; got != time.Date(2024, 1, 13, 12, 0, 0, 0, time.UTC) {
		t.Errorf("DateRangeEnd = %v", got)
	}

	// rows sorted by magic number
	if report.StrategyRows[0].MagicNumber != 7001 || report.StrategyRows[1].MagicNumber != 7002 {
		t.Fatalf("unexpected row order: %+v", report.StrategyRows)
	}
	if report.StrategyRows[0].NetProfit != 50 {
		t.Errorf("7001 net = %v, want 50", report.StrategyRows[0].NetProfit)
	}
	if report.StrategyRows[1].WinRate != 100 {
		t.Errorf("7002 win rate = %v, want 100", report.StrategyRows[1].WinRate)
	}
	if report.Overall.NetProfit != 280 {
		t.Errorf("overall net = %v, want 280", report.Overall.NetProfit)
	}
}

func TestRenderMarkdown(t *testing.T) {
	trades := setupTestData(t)
	gen := NewGenerator(trades, 100000)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Performance Report",
		"## Data Summary",
		"## Account",
		"## Strategy Metrics",
		"| 7001 |",
		"| 7002 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	trades := setupTestData(t)
	gen := NewGenerator(trades, 100000)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderCSV(report.StrategyRows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "magic_number,total_trades,win_rate") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "7001,2,") {
		t.Errorf("unexpected first row: %s", lines[1])
	}
}
