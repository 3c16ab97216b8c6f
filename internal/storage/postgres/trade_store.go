package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	fingerprint, source, open_time, close_time, symbol, direction,
	lots, open_price, close_price, stop_loss, take_profit, profit,
	magic_number, comment, timeframe, created_at
`

// InsertIfAbsent adds a trade unless its fingerprint already exists.
// Returns true when a new row was written.
func (s *TradeStore) InsertIfAbsent(ctx context.Context, t *domain.Trade) (bool, error) {
	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (fingerprint) DO NOTHING
	`

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, query,
		t.Fingerprint, t.Source, t.OpenTime, t.CloseTime, t.Symbol, t.Direction,
		t.Lots, t.OpenPrice, t.ClosePrice, t.StopLoss, t.TakeProfit, t.Profit,
		t.MagicNumber, t.Comment, t.Timeframe, createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert trade: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByFingerprint retrieves a trade by its fingerprint. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE fingerprint = $1`

	row := s.pool.QueryRow(ctx, query, fingerprint)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by fingerprint: %w", err)
	}
	return t, nil
}

// Query retrieves trades matching the filter, ordered by close time.
func (s *TradeStore) Query(ctx context.Context, f domain.TradeFilter) ([]*domain.Trade, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Source != "" {
		conds = append(conds, "source = "+arg(f.Source))
	}
	if f.Year != 0 {
		from := time.Date(f.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		conds = append(conds, "close_time >= "+arg(from))
		conds = append(conds, "close_time < "+arg(from.AddDate(1, 0, 0)))
	}
	if f.Symbol != "" {
		conds = append(conds, "symbol = "+arg(f.Symbol))
	}
	if f.Timeframe != "" {
		conds = append(conds, "timeframe = "+arg(f.Timeframe))
	}
	if f.MagicNumber != 0 {
		conds = append(conds, "magic_number = "+arg(f.MagicNumber))
	}

	query := `SELECT ` + tradeColumns + ` FROM trades`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY close_time ASC, fingerprint ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// All retrieves every trade, ordered by close time.
func (s *TradeStore) All(ctx context.Context) ([]*domain.Trade, error) {
	return s.Query(ctx, domain.TradeFilter{})
}

// UpdateMagicNumber rewrites all trades with magic number `from` to `to`.
// Returns the number of rows touched.
func (s *TradeStore) UpdateMagicNumber(ctx context.Context, from, to int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE trades SET magic_number = $1 WHERE magic_number = $2`, to, from)
	if err != nil {
		return 0, fmt.Errorf("update magic number: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateTimeframe sets the timeframe for a single trade.
func (s *TradeStore) UpdateTimeframe(ctx context.Context, fingerprint, timeframe string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE trades SET timeframe = $1 WHERE fingerprint = $2`, timeframe, fingerprint)
	if err != nil {
		return fmt.Errorf("update timeframe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UnknownTimeframes lists fingerprints and comments of trades whose
// timeframe could not be resolved at ingest time.
func (s *TradeStore) UnknownTimeframes(ctx context.Context) ([]storage.UnknownTimeframe, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fingerprint, comment FROM trades WHERE timeframe = $1 ORDER BY fingerprint ASC`,
		domain.TimeframeUnknown)
	if err != nil {
		return nil, fmt.Errorf("query unknown timeframes: %w", err)
	}
	defer rows.Close()

	var out []storage.UnknownTimeframe
	for rows.Next() {
		var u storage.UnknownTimeframe
		if err := rows.Scan(&u.Fingerprint, &u.Comment); err != nil {
			return nil, fmt.Errorf("scan unknown timeframe row: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unknown timeframe rows: %w", err)
	}
	return out, nil
}

// DeleteByMagicNumber removes all trades with the given magic number.
func (s *TradeStore) DeleteByMagicNumber(ctx context.Context, magic int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE magic_number = $1`, magic)
	if err != nil {
		return 0, fmt.Errorf("delete trades by magic number: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAll removes every trade.
func (s *TradeStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades`)
	if err != nil {
		return 0, fmt.Errorf("delete all trades: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DistinctSources lists every distinct source value.
func (s *TradeStore) DistinctSources(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT source FROM trades ORDER BY source ASC`)
}

// DistinctSymbols lists every distinct symbol.
func (s *TradeStore) DistinctSymbols(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT symbol FROM trades ORDER BY symbol ASC`)
}

// DistinctTimeframes lists every resolved timeframe, excluding Unknown.
func (s *TradeStore) DistinctTimeframes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT timeframe FROM trades WHERE timeframe <> $1 ORDER BY timeframe ASC`,
		domain.TimeframeUnknown)
	if err != nil {
		return nil, fmt.Errorf("query distinct timeframes: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// DistinctMagicNumbers lists every positive magic number.
func (s *TradeStore) DistinctMagicNumbers(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT magic_number FROM trades WHERE magic_number > 0 ORDER BY magic_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("query distinct magic numbers: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var m int64
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan magic number row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate magic number rows: %w", err)
	}
	return out, nil
}

// CountByMagicNumber counts trades carrying the given magic number.
func (s *TradeStore) CountByMagicNumber(ctx context.Context, magic int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trades WHERE magic_number = $1`, magic).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count trades by magic number: %w", err)
	}
	return n, nil
}

func (s *TradeStore) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query distinct values: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan string row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate string rows: %w", err)
	}
	return out, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade

	err := row.Scan(
		&t.Fingerprint, &t.Source, &t.OpenTime, &t.CloseTime, &t.Symbol, &t.Direction,
		&t.Lots, &t.OpenPrice, &t.ClosePrice, &t.StopLoss, &t.TakeProfit, &t.Profit,
		&t.MagicNumber, &t.Comment, &t.Timeframe, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade

		err := rows.Scan(
			&t.Fingerprint, &t.Source, &t.OpenTime, &t.CloseTime, &t.Symbol, &t.Direction,
			&t.Lots, &t.OpenPrice, &t.ClosePrice, &t.StopLoss, &t.TakeProfit, &t.Profit,
			&t.MagicNumber, &t.Comment, &t.Timeframe, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
