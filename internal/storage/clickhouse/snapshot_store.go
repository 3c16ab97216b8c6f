package clickhouse

import (
	"context"
	"fmt"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// Rows are append-only history; MergeTree never deduplicates them.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	filter_key, computed_at,
	total_trades, winning_trades, losing_trades,
	net_profit, gross_profit, gross_loss,
	win_rate, profit_factor, avg_win, avg_loss, rr_ratio, expectancy,
	sqn, sharpe, r_squared,
	max_drawdown, max_drawdown_pct, ret_dd,
	cagr, avg_recovery_days, consistency_green_months, max_consecutive_losses,
	total_strategies
`

// Insert appends a snapshot row.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.StatsSnapshot) error {
	query := `
		INSERT INTO stats_snapshots (` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	st := snap.Stats
	err := s.conn.Exec(ctx, query,
		snap.FilterKey, snap.ComputedAt,
		int32(st.TotalTrades), int32(st.WinningTrades), int32(st.LosingTrades),
		st.NetProfit, st.GrossProfit, st.GrossLoss,
		st.WinRate, st.ProfitFactor, st.AvgWin, st.AvgLoss, st.RRRatio, st.Expectancy,
		st.SQN, st.Sharpe, st.RSquared,
		st.MaxDrawdown, st.MaxDrawdownPct, st.RetDD,
		st.CAGR, st.AvgRecoveryDays, st.ConsistencyGreenMonths, int32(st.MaxConsecutiveLosses),
		int32(st.TotalStrategies),
	)
	if err != nil {
		return fmt.Errorf("insert stats snapshot: %w", err)
	}
	return nil
}

// GetByKey retrieves all snapshots for a filter key, oldest first.
func (s *SnapshotStore) GetByKey(ctx context.Context, filterKey string) ([]*domain.StatsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM stats_snapshots
		WHERE filter_key = ?
		ORDER BY computed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, filterKey)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by key: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetAll retrieves every snapshot, grouped by filter key, oldest first.
func (s *SnapshotStore) GetAll(ctx context.Context) ([]*domain.StatsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM stats_snapshots
		ORDER BY filter_key ASC, computed_at ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSnapshots scans multiple rows into a slice.
func scanSnapshots(rows chRows) ([]*domain.StatsSnapshot, error) {
	var snapshots []*domain.StatsSnapshot

	for rows.Next() {
		var snap domain.StatsSnapshot
		var totalTrades, winningTrades, losingTrades, maxConsecutiveLosses, totalStrategies int32

		st := &snap.Stats
		err := rows.Scan(
			&snap.FilterKey, &snap.ComputedAt,
			&totalTrades, &winningTrades, &losingTrades,
			&st.NetProfit, &st.GrossProfit, &st.GrossLoss,
			&st.WinRate, &st.ProfitFactor, &st.AvgWin, &st.AvgLoss, &st.RRRatio, &st.Expectancy,
			&st.SQN, &st.Sharpe, &st.RSquared,
			&st.MaxDrawdown, &st.MaxDrawdownPct, &st.RetDD,
			&st.CAGR, &st.AvgRecoveryDays, &st.ConsistencyGreenMonths, &maxConsecutiveLosses,
			&totalStrategies,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		st.TotalTrades = int(totalTrades)
		st.WinningTrades = int(winningTrades)
		st.LosingTrades = int(losingTrades)
		st.MaxConsecutiveLosses = int(maxConsecutiveLosses)
		st.TotalStrategies = int(totalStrategies)

		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
