package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using SQLite.
type TradeStore struct {
	db *DB
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(db *DB) *TradeStore {
	return &TradeStore{db: db}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	fingerprint, source, open_time, close_time, symbol, direction,
	lots, open_price, close_price, stop_loss, take_profit, profit,
	magic_number, comment, timeframe, created_at
`

// InsertIfAbsent adds a trade unless its fingerprint is already stored.
func (s *TradeStore) InsertIfAbsent(ctx context.Context, t *domain.Trade) (bool, error) {
	if t == nil || t.Fingerprint == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT OR IGNORE INTO trades (` + tradeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, query,
		t.Fingerprint, t.Source, formatTime(t.OpenTime), formatTime(t.CloseTime),
		t.Symbol, t.Direction,
		t.Lots, t.OpenPrice, t.ClosePrice, t.StopLoss, t.TakeProfit, t.Profit,
		t.MagicNumber, t.Comment, t.Timeframe, formatTime(createdAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert trade: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// GetByFingerprint retrieves a trade by fingerprint. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE fingerprint = ?`

	row := s.db.QueryRowContext(ctx, query, fingerprint)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by fingerprint: %w", err)
	}
	return t, nil
}

// Query retrieves trades matching the filter, ordered by close_time ASC.
func (s *TradeStore) Query(ctx context.Context, f domain.TradeFilter) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE 1=1`
	var args []any

	if f.Source != "" {
		query += " AND source = ?"
		args = append(args, f.Source)
	}
	if f.Year != 0 {
		query += " AND close_time >= ? AND close_time < ?"
		args = append(args,
			fmt.Sprintf("%04d-01-01 00:00:00", f.Year),
			fmt.Sprintf("%04d-01-01 00:00:00", f.Year+1),
		)
	}
	if f.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, f.Symbol)
	}
	if f.Timeframe != "" {
		query += " AND timeframe = ?"
		args = append(args, f.Timeframe)
	}
	if f.MagicNumber != 0 {
		query += " AND magic_number = ?"
		args = append(args, f.MagicNumber)
	}

	query += " ORDER BY close_time ASC, fingerprint ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// All retrieves every trade, ordered by close_time ASC.
func (s *TradeStore) All(ctx context.Context) ([]*domain.Trade, error) {
	return s.Query(ctx, domain.TradeFilter{})
}

// UpdateMagicNumber rewrites all trades with magic number from to to.
func (s *TradeStore) UpdateMagicNumber(ctx context.Context, from, to int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trades SET magic_number = ? WHERE magic_number = ?`, to, from)
	if err != nil {
		return 0, fmt.Errorf("update magic number: %w", err)
	}
	return res.RowsAffected()
}

// UpdateTimeframe sets the timeframe of the trade with the given fingerprint.
func (s *TradeStore) UpdateTimeframe(ctx context.Context, fingerprint, timeframe string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trades SET timeframe = ? WHERE fingerprint = ?`, timeframe, fingerprint)
	if err != nil {
		return fmt.Errorf("update timeframe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UnknownTimeframes returns (fingerprint, comment) pairs of trades whose
// timeframe is still Unknown.
func (s *TradeStore) UnknownTimeframes(ctx context.Context) ([]storage.UnknownTimeframe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, comment FROM trades WHERE timeframe = ? ORDER BY fingerprint ASC`,
		domain.TimeframeUnknown)
	if err != nil {
		return nil, fmt.Errorf("query unknown timeframes: %w", err)
	}
	defer rows.Close()

	var result []storage.UnknownTimeframe
	for rows.Next() {
		var u storage.UnknownTimeframe
		if err := rows.Scan(&u.Fingerprint, &u.Comment); err != nil {
			return nil, fmt.Errorf("scan unknown timeframe row: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unknown timeframe rows: %w", err)
	}
	return result, nil
}

// DeleteByMagicNumber removes all trades of a strategy.
func (s *TradeStore) DeleteByMagicNumber(ctx context.Context, magic int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE magic_number = ?`, magic)
	if err != nil {
		return 0, fmt.Errorf("delete by magic number: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAll removes every trade.
func (s *TradeStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades`)
	if err != nil {
		return 0, fmt.Errorf("delete all trades: %w", err)
	}
	return res.RowsAffected()
}

// DistinctSources returns all feed names, sorted ASC.
func (s *TradeStore) DistinctSources(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx,
		`SELECT DISTINCT source FROM trades WHERE source != '' ORDER BY source ASC`)
}

// DistinctSymbols returns all symbols, sorted ASC.
func (s *TradeStore) DistinctSymbols(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx,
		`SELECT DISTINCT symbol FROM trades WHERE symbol != '' ORDER BY symbol ASC`)
}

// DistinctTimeframes returns all timeframes excluding Unknown, sorted ASC.
func (s *TradeStore) DistinctTimeframes(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx,
		`SELECT DISTINCT timeframe FROM trades WHERE timeframe != '' AND timeframe != 'Unknown' ORDER BY timeframe ASC`)
}

// DistinctMagicNumbers returns all magic numbers > 0, sorted ASC.
func (s *TradeStore) DistinctMagicNumbers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT magic_number FROM trades WHERE magic_number > 0 ORDER BY magic_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("query distinct magic numbers: %w", err)
	}
	defer rows.Close()

	var result []int64
	for rows.Next() {
		var m int64
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan magic number: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate magic numbers: %w", err)
	}
	return result, nil
}

// CountByMagicNumber returns the number of trades with the given magic number.
func (s *TradeStore) CountByMagicNumber(ctx context.Context, magic int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE magic_number = ?`, magic).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count by magic number: %w", err)
	}
	return n, nil
}

func (s *TradeStore) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query distinct values: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}
	return result, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row *sql.Row) (*domain.Trade, error) {
	var t domain.Trade
	var openTime, closeTime, createdAt string

	err := row.Scan(
		&t.Fingerprint, &t.Source, &openTime, &closeTime, &t.Symbol, &t.Direction,
		&t.Lots, &t.OpenPrice, &t.ClosePrice, &t.StopLoss, &t.TakeProfit, &t.Profit,
		&t.MagicNumber, &t.Comment, &t.Timeframe, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if t.OpenTime, err = parseTime(openTime); err != nil {
		return nil, err
	}
	if t.CloseTime, err = parseTime(closeTime); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows *sql.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade
		var openTime, closeTime, createdAt string

		err := rows.Scan(
			&t.Fingerprint, &t.Source, &openTime, &closeTime, &t.Symbol, &t.Direction,
			&t.Lots, &t.OpenPrice, &t.ClosePrice, &t.StopLoss, &t.TakeProfit, &t.Profit,
			&t.MagicNumber, &t.Comment, &t.Timeframe, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		if t.OpenTime, err = parseTime(openTime); err != nil {
			return nil, err
		}
		if t.CloseTime, err = parseTime(closeTime); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
