package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
	"trade-analytics-lab/internal/storage/memory"
)

func newTestService() (*Service, *memory.TradeStore, *memory.IngestLogStore) {
	trades := memory.NewTradeStore()
	logs := memory.NewIngestLogStore()
	svc := NewService(trades, memory.NewMappingStore(), logs, 1000)
	return svc, trades, logs
}

func seedTrade(t *testing.T, store *memory.TradeStore, fp string, close time.Time, profit float64, magic int64, direction, comment string) {
	t.Helper()
	_, err := store.InsertIfAbsent(context.Background(), &domain.Trade{
		Fingerprint: fp,
		Source:      "demo",
		OpenTime:    close.Add(-time.Hour),
		CloseTime:   close,
		Symbol:      "EURUSD",
		Direction:   direction,
		Lots:        0.1,
		Profit:      profit,
		MagicNumber: magic,
		Comment:     comment,
		Timeframe:   "1H",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", fp, err)
	}
}

func TestStats_IncludesStoreWideStrategyCount(t *testing.T) {
	ctx := context.Background()
	svc, trades, _ := newTestService()

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	seedTrade(t, trades, "a", base, 100, 10, domain.DirectionBuy, "EURUSD_H1_Trend")
	seedTrade(t, trades, "b", base.AddDate(0, 0, 1), -50, 20, domain.DirectionSell, "GBPUSD_H1_Swing")

	stats, err := svc.Stats(ctx, domain.TradeFilter{MagicNumber: 10})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalTrades != 1 {
		t.Errorf("TotalTrades = %d, want 1 (filtered)", stats.TotalTrades)
	}
	if stats.NetProfit != 100 {
		t.Errorf("NetProfit = %v, want 100", stats.NetProfit)
	}
	if stats.TotalStrategies != 2 {
		t.Errorf("TotalStrategies = %d, want 2 (store-wide)", stats.TotalStrategies)
	}
}

func TestQuery_DirectionSemantics(t *testing.T) {
	ctx := context.Background()
	svc, trades, _ := newTestService()

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	seedTrade(t, trades, "buy-plain", base, 10, 1, domain.DirectionBuy, "EURUSD_H1_Trend")
	seedTrade(t, trades, "buy-coded", base.Add(time.Hour), 10, 1, domain.DirectionBuy, "EURUSD_H1_Trend_B_1")
	seedTrade(t, trades, "sell-coded", base.Add(2*time.Hour), 10, 1, domain.DirectionSell, "EURUSD_H1_Trend_S_1")
	seedTrade(t, trades, "sell-plain", base.Add(3*time.Hour), 10, 1, domain.DirectionSell, "EURUSD_H1_Trend")
	seedTrade(t, trades, "both", base.Add(4*time.Hour), 10, 1, domain.DirectionBuy, "EURUSD_H1_Trend_BS_1")

	cases := []struct {
		direction string
		want      []string
	}{
		{"Buy", []string{"buy-plain", "buy-coded"}},
		{"Sell", []string{"sell-coded"}},
		{"Buy/Sell", []string{"both"}},
	}
	for _, tc := range cases {
		got, err := svc.Query(ctx, domain.TradeFilter{Direction: tc.direction})
		if err != nil {
			t.Fatalf("Query %s: %v", tc.direction, err)
		}
		fps := make([]string, len(got))
		for i, tr := range got {
			fps[i] = tr.Fingerprint
		}
		if fmt.Sprint(fps) != fmt.Sprint(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.direction, fps, tc.want)
		}
	}
}

func TestMaxDrawdownYearPct(t *testing.T) {
	ctx := context.Background()
	svc, trades, _ := newTestService()

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	seedTrade(t, trades, "a", base, 100, 1, domain.DirectionBuy, "c")
	seedTrade(t, trades, "b", base.AddDate(0, 0, 1), -50, 1, domain.DirectionBuy, "c")

	// min drawdown -50 over capital base 1000
	pct, err := svc.MaxDrawdownYearPct(ctx, domain.TradeFilter{})
	if err != nil {
		t.Fatalf("MaxDrawdownYearPct: %v", err)
	}
	if pct != 5 {
		t.Errorf("pct = %v, want 5", pct)
	}
}

func TestStrategyTrades(t *testing.T) {
	ctx := context.Background()
	svc, trades, _ := newTestService()

	seedTrade(t, trades, "jan", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), 10, 5, domain.DirectionBuy, "c")
	seedTrade(t, trades, "feb", time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC), 10, 5, domain.DirectionBuy, "c")
	seedTrade(t, trades, "old", time.Date(2023, 2, 10, 12, 0, 0, 0, time.UTC), 10, 5, domain.DirectionBuy, "c")

	got, err := svc.StrategyTrades(ctx, 5, 2024, 2)
	if err != nil {
		t.Fatalf("StrategyTrades: %v", err)
	}
	if len(got) != 1 || got[0].Fingerprint != "feb" {
		t.Fatalf("got %d trades, want [feb]", len(got))
	}

	if _, err := svc.StrategyTrades(ctx, 999, 0, 0); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown magic: err = %v, want ErrNotFound", err)
	}
}

func TestPortfolioStats_MergesAndOrders(t *testing.T) {
	ctx := context.Background()
	svc, trades, _ := newTestService()

	seedTrade(t, trades, "b2", time.Date(2024, 1, 12, 12, 0, 0, 0, time.UTC), -30, 2, domain.DirectionBuy, "c")
	seedTrade(t, trades, "a1", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), 100, 1, domain.DirectionBuy, "c")
	seedTrade(t, trades, "a2", time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC), 50, 1, domain.DirectionBuy, "c")
	seedTrade(t, trades, "other", time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC), 999, 3, domain.DirectionBuy, "c")

	p, err := svc.PortfolioStats(ctx, []int64{1, 2})
	if err != nil {
		t.Fatalf("PortfolioStats: %v", err)
	}
	if p.Stats.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", p.Stats.TotalTrades)
	}
	if p.Stats.NetProfit != 120 {
		t.Errorf("NetProfit = %v, want 120", p.Stats.NetProfit)
	}
	// merged order a1, b2, a2 means the drawdown dips by 30 after a1
	if p.Stats.MaxDrawdown != -30 {
		t.Errorf("MaxDrawdown = %v, want -30", p.Stats.MaxDrawdown)
	}
	if len(p.DailyEquity) != 3 {
		t.Errorf("daily equity has %d points, want 3", len(p.DailyEquity))
	}
}

func TestRecentTrades_NewestFirstLimited(t *testing.T) {
	ctx := context.Background()
	svc, trades, _ := newTestService()

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedTrade(t, trades, fmt.Sprintf("t%d", i), base.AddDate(0, 0, i), 10, 1, domain.DirectionBuy, "c")
	}

	got, err := svc.RecentTrades(ctx, domain.TradeFilter{}, 2)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(got) != 2 || got[0].Fingerprint != "t4" || got[1].Fingerprint != "t3" {
		t.Fatalf("unexpected order: %v, %v", got[0].Fingerprint, got[1].Fingerprint)
	}
}

func TestParsedCommentListings(t *testing.T) {
	ctx := context.Background()
	svc, trades, _ := newTestService()

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	seedTrade(t, trades, "a", base, 10, 1, domain.DirectionBuy, "EURUSD_H1_Trend_1.5%_101")
	seedTrade(t, trades, "b", base.Add(time.Hour), 10, 1, domain.DirectionSell, "GBPUSD_M15_Scalper_2%_102")
	seedTrade(t, trades, "c", base.Add(2*time.Hour), 10, 1, domain.DirectionBuy, "EURUSD_H1_Trend_1.5%_101")

	strategies, err := svc.Strategies(ctx)
	if err != nil {
		t.Fatalf("Strategies: %v", err)
	}
	if fmt.Sprint(strategies) != "[Scalper Trend]" {
		t.Errorf("strategies = %v", strategies)
	}

	pairs, err := svc.CurrencyPairs(ctx)
	if err != nil {
		t.Fatalf("CurrencyPairs: %v", err)
	}
	if fmt.Sprint(pairs) != "[EURUSD GBPUSD]" {
		t.Errorf("pairs = %v", pairs)
	}

	ranges, err := svc.Ranges(ctx)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if fmt.Sprint(ranges) != "[1.5% 2%]" {
		t.Errorf("ranges = %v", ranges)
	}
}

func TestDeleteStrategyAndReset(t *testing.T) {
	ctx := context.Background()
	trades := memory.NewTradeStore()
	mappings := memory.NewMappingStore()
	logs := memory.NewIngestLogStore()
	svc := NewService(trades, mappings, logs, 0)

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	seedTrade(t, trades, "a", base, 10, 1, domain.DirectionBuy, "c")
	seedTrade(t, trades, "b", base.Add(time.Hour), 10, 1, domain.DirectionBuy, "c")
	seedTrade(t, trades, "keep", base.Add(2*time.Hour), 10, 2, domain.DirectionBuy, "c")

	if err := mappings.Upsert(ctx, &domain.MagicMapping{FromMagic: 1, ToMagic: 2, CreatedAt: base}); err != nil {
		t.Fatal(err)
	}
	if err := logs.Append(ctx, &domain.IngestLogEntry{Source: "demo", LastUpdate: base, Status: domain.IngestStatusSuccess}); err != nil {
		t.Fatal(err)
	}

	deleted, err := svc.DeleteStrategy(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteStrategy: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if _, err := svc.DeleteStrategy(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("repeat delete: err = %v, want ErrNotFound", err)
	}

	res, err := svc.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if res.TradesDeleted != 1 || res.LogEntriesDeleted != 1 || res.MappingsPreserved != 1 {
		t.Fatalf("unexpected reset result: %+v", res)
	}
	if _, err := mappings.Get(ctx, 1); err != nil {
		t.Errorf("mapping should survive reset: %v", err)
	}
}

func TestSnapshot_UsesFilterKey(t *testing.T) {
	ctx := context.Background()
	svc, trades, _ := newTestService()

	seedTrade(t, trades, "a", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), 100, 1, domain.DirectionBuy, "c")

	snap, err := svc.Snapshot(ctx, domain.TradeFilter{Year: 2024})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.FilterKey != "year=2024" {
		t.Errorf("key = %q, want year=2024", snap.FilterKey)
	}
	if snap.Stats.NetProfit != 100 {
		t.Errorf("NetProfit = %v, want 100", snap.Stats.NetProfit)
	}
	if snap.ComputedAt.IsZero() {
		t.Error("ComputedAt not set")
	}
}
