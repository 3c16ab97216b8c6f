package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-analytics-lab/internal/domain"
	chstore "trade-analytics-lab/internal/storage/clickhouse"
)

func TestSnapshotStore_Integration(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewSnapshotStore(conn)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	snap := func(key string, at time.Time, net float64) *domain.StatsSnapshot {
		return &domain.StatsSnapshot{
			FilterKey:  key,
			ComputedAt: at,
			Stats: domain.Stats{
				TotalTrades:   5,
				WinningTrades: 3,
				LosingTrades:  2,
				NetProfit:     net,
				WinRate:       60,
				MaxDrawdown:   -100,
			},
		}
	}

	require.NoError(t, store.Insert(ctx, snap("all", base.Add(time.Hour), 250)))
	require.NoError(t, store.Insert(ctx, snap("all", base, 200)))
	require.NoError(t, store.Insert(ctx, snap("source=demo", base, 120)))

	t.Run("GetByKey returns history oldest first", func(t *testing.T) {
		got, err := store.GetByKey(ctx, "all")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 200.0, got[0].Stats.NetProfit)
		assert.Equal(t, 250.0, got[1].Stats.NetProfit)
		assert.Equal(t, 5, got[0].Stats.TotalTrades)
		assert.Equal(t, -100.0, got[0].Stats.MaxDrawdown)
	})

	t.Run("GetByKey unknown key returns empty", func(t *testing.T) {
		got, err := store.GetByKey(ctx, "no-such-key")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("GetAll spans filter keys", func(t *testing.T) {
		got, err := store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "all", got[0].FilterKey)
		assert.Equal(t, "source=demo", got[2].FilterKey)
	})
}
