package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

func TestMappingStore_UpsertAndGet(t *testing.T) {
	store := NewMappingStore()
	ctx := context.Background()

	m := &domain.MagicMapping{FromMagic: 100, ToMagic: 200, CreatedAt: time.Now()}
	if err := store.Upsert(ctx, m); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ToMagic != 200 {
		t.Errorf("ToMagic = %d, want 200", got.ToMagic)
	}
}

func TestMappingStore_LastWriteWins(t *testing.T) {
	store := NewMappingStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, &domain.MagicMapping{FromMagic: 100, ToMagic: 200})
	_ = store.Upsert(ctx, &domain.MagicMapping{FromMagic: 100, ToMagic: 300})

	got, err := store.Get(ctx, 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ToMagic != 300 {
		t.Errorf("ToMagic = %d, want 300 (last write wins)", got.ToMagic)
	}

	list, _ := store.List(ctx)
	if len(list) != 1 {
		t.Errorf("Expected 1 mapping, got %d", len(list))
	}
}

func TestMappingStore_Delete(t *testing.T) {
	store := NewMappingStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, &domain.MagicMapping{FromMagic: 100, ToMagic: 200})

	if err := store.Delete(ctx, 100); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, 100); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	if err := store.Delete(ctx, 100); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for second delete, got %v", err)
	}
}

func TestMappingStore_ListOrdered(t *testing.T) {
	store := NewMappingStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, &domain.MagicMapping{FromMagic: 300, ToMagic: 1})
	_ = store.Upsert(ctx, &domain.MagicMapping{FromMagic: 100, ToMagic: 1})
	_ = store.Upsert(ctx, &domain.MagicMapping{FromMagic: 200, ToMagic: 1})

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 mappings, got %d", len(list))
	}
	for i, want := range []int64{100, 200, 300} {
		if list[i].FromMagic != want {
			t.Errorf("position %d: FromMagic = %d, want %d", i, list[i].FromMagic, want)
		}
	}
}

func TestIngestLogStore_RecentNewestFirst(t *testing.T) {
	store := NewIngestLogStore()
	ctx := context.Background()

	for i, src := range []string{"a", "b", "c"} {
		e := &domain.IngestLogEntry{
			Source:       src,
			LastUpdate:   time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
			RecordsAdded: i,
			Status:       domain.IngestStatusSuccess,
		}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(recent))
	}
	if recent[0].Source != "c" || recent[1].Source != "b" {
		t.Errorf("Expected newest first, got %s then %s", recent[0].Source, recent[1].Source)
	}

	n, _ := store.DeleteAll(ctx)
	if n != 3 {
		t.Errorf("Expected 3 deleted, got %d", n)
	}
}

func TestSnapshotStore_GetByKey(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	s1 := &domain.StatsSnapshot{FilterKey: "all", ComputedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Stats: domain.Stats{NetProfit: 200}}
	s2 := &domain.StatsSnapshot{FilterKey: "all", ComputedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Stats: domain.Stats{NetProfit: 100}}
	s3 := &domain.StatsSnapshot{FilterKey: "magic=7", ComputedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	for _, s := range []*domain.StatsSnapshot{s1, s2, s3} {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	history, err := store.GetByKey(ctx, "all")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(history))
	}
	// Ordered by ComputedAt ASC
	if history[0].Stats.NetProfit != 100 || history[1].Stats.NetProfit != 200 {
		t.Errorf("Wrong order: %f then %f", history[0].Stats.NetProfit, history[1].Stats.NetProfit)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 3 {
		t.Errorf("Expected 3 snapshots total, got %d", len(all))
	}
}
