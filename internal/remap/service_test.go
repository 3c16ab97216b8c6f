package remap

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
	"trade-analytics-lab/internal/storage/memory"
)

func seedTrades(t *testing.T, store storage.TradeStore, magicCounts map[int64]int) {
	t.Helper()
	ctx := context.Background()
	i := 0
	for magic, count := range magicCounts {
		for c := 0; c < count; c++ {
			trade := &domain.Trade{
				Fingerprint: string(rune('a'+i)) + string(rune('0'+c)),
				CloseTime:   time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
				MagicNumber: magic,
				Profit:      10,
			}
			if _, err := store.InsertIfAbsent(ctx, trade); err != nil {
				t.Fatalf("seed trade: %v", err)
			}
			i++
		}
	}
}

func TestUpsert_RewritesWhenRequested(t *testing.T) {
	trades := memory.NewTradeStore()
	mappings := memory.NewMappingStore()
	svc := NewService(trades, mappings)
	ctx := context.Background()

	seedTrades(t, trades, map[int64]int{100: 2, 200: 1})

	result, err := svc.Upsert(ctx, 100, 200, true)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if result.ExistingCount != 2 {
		t.Errorf("ExistingCount = %d, want 2", result.ExistingCount)
	}
	if result.UpdatedCount != 2 {
		t.Errorf("UpdatedCount = %d, want 2", result.UpdatedCount)
	}

	count, _ := trades.CountByMagicNumber(ctx, 200)
	if count != 3 {
		t.Errorf("trades with magic 200 = %d, want 3", count)
	}
}

func TestUpsert_MappingOnlyWithoutRewrite(t *testing.T) {
	trades := memory.NewTradeStore()
	mappings := memory.NewMappingStore()
	svc := NewService(trades, mappings)
	ctx := context.Background()

	seedTrades(t, trades, map[int64]int{100: 2})

	result, err := svc.Upsert(ctx, 100, 300, false)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if result.UpdatedCount != 0 {
		t.Errorf("UpdatedCount = %d, want 0", result.UpdatedCount)
	}

	count, _ := trades.CountByMagicNumber(ctx, 100)
	if count != 2 {
		t.Errorf("trades with magic 100 = %d, want 2 (untouched)", count)
	}
}

func TestUpsert_RejectsInvalidInput(t *testing.T) {
	svc := NewService(memory.NewTradeStore(), memory.NewMappingStore())
	ctx := context.Background()

	if _, err := svc.Upsert(ctx, 0, 100, false); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("zero source: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Upsert(ctx, 100, 100, false); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("self mapping: expected ErrInvalidInput, got %v", err)
	}
}

func TestDelete_DoesNotRevertTrades(t *testing.T) {
	trades := memory.NewTradeStore()
	mappings := memory.NewMappingStore()
	svc := NewService(trades, mappings)
	ctx := context.Background()

	seedTrades(t, trades, map[int64]int{100: 1})

	if _, err := svc.Upsert(ctx, 100, 200, true); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := svc.Delete(ctx, 100); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	count, _ := trades.CountByMagicNumber(ctx, 200)
	if count != 1 {
		t.Errorf("trades with magic 200 = %d, want 1 (rewrite stands)", count)
	}

	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Errorf("mappings after delete = %d, want 0", len(list))
	}
}

func TestApply_SingleHopOnly(t *testing.T) {
	trades := memory.NewTradeStore()
	mappings := memory.NewMappingStore()
	svc := NewService(trades, mappings)
	ctx := context.Background()

	if _, err := svc.Upsert(ctx, 100, 200, false); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := svc.Upsert(ctx, 200, 300, false); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// 100 maps to 200; the 200->300 mapping is not chained
	got, err := svc.Apply(ctx, 100)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got != 200 {
		t.Errorf("Apply(100) = %d, want 200", got)
	}

	// unmapped numbers pass through
	got, err = svc.Apply(ctx, 999)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got != 999 {
		t.Errorf("Apply(999) = %d, want 999", got)
	}
}

func TestUnifyBatch(t *testing.T) {
	trades := memory.NewTradeStore()
	mappings := memory.NewMappingStore()
	svc := NewService(trades, mappings)
	ctx := context.Background()

	seedTrades(t, trades, map[int64]int{10: 2, 20: 3})

	results, err := svc.UnifyBatch(ctx, map[int64]int64{10: 100, 20: 100})
	if err != nil {
		t.Fatalf("UnifyBatch failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	// deterministic order by source magic
	if results[0].FromMagic != 10 || results[1].FromMagic != 20 {
		t.Errorf("result order = %d, %d", results[0].FromMagic, results[1].FromMagic)
	}
	if results[0].UpdatedCount != 2 || results[1].UpdatedCount != 3 {
		t.Errorf("updated counts = %d, %d, want 2, 3", results[0].UpdatedCount, results[1].UpdatedCount)
	}

	count, _ := trades.CountByMagicNumber(ctx, 100)
	if count != 5 {
		t.Errorf("trades with magic 100 = %d, want 5", count)
	}
}
