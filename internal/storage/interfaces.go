package storage

import (
	"context"

	"trade-analytics-lab/internal/domain"
)

// TradeStore provides access to trades storage.
type TradeStore interface {
	// InsertIfAbsent adds a trade unless its fingerprint is already stored.
	// Returns true when the trade was inserted, false when it was a duplicate.
	InsertIfAbsent(ctx context.Context, t *domain.Trade) (bool, error)

	// GetByFingerprint retrieves a trade by fingerprint. Returns ErrNotFound if not exists.
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Trade, error)

	// Query retrieves trades matching the filter, ordered by close_time ASC.
	// Direction filtering is NOT applied here; it needs comment parsing and
	// is the analytics layer's job.
	Query(ctx context.Context, f domain.TradeFilter) ([]*domain.Trade, error)

	// All retrieves every trade, ordered by close_time ASC.
	All(ctx context.Context) ([]*domain.Trade, error)

	// UpdateMagicNumber rewrites all trades with magic number from to to.
	// Returns the number of trades changed.
	UpdateMagicNumber(ctx context.Context, from, to int64) (int64, error)

	// UpdateTimeframe sets the timeframe of the trade with the given fingerprint.
	UpdateTimeframe(ctx context.Context, fingerprint, timeframe string) error

	// UnknownTimeframes returns (fingerprint, comment) pairs of trades whose
	// timeframe is still Unknown.
	UnknownTimeframes(ctx context.Context) ([]UnknownTimeframe, error)

	// DeleteByMagicNumber removes all trades of a strategy. Returns the count removed.
	DeleteByMagicNumber(ctx context.Context, magic int64) (int64, error)

	// DeleteAll removes every trade. Returns the count removed.
	DeleteAll(ctx context.Context) (int64, error)

	// DistinctSources returns all feed names, sorted ASC.
	DistinctSources(ctx context.Context) ([]string, error)

	// DistinctSymbols returns all symbols, sorted ASC.
	DistinctSymbols(ctx context.Context) ([]string, error)

	// DistinctTimeframes returns all timeframes excluding Unknown, sorted ASC.
	DistinctTimeframes(ctx context.Context) ([]string, error)

	// DistinctMagicNumbers returns all magic numbers > 0, sorted ASC.
	DistinctMagicNumbers(ctx context.Context) ([]int64, error)

	// CountByMagicNumber returns the number of trades with the given magic number.
	CountByMagicNumber(ctx context.Context, magic int64) (int64, error)
}

// UnknownTimeframe pairs a fingerprint with its raw comment for backfill.
type UnknownTimeframe struct {
	Fingerprint string
	Comment     string
}

// MappingStore provides access to magic_mappings storage.
type MappingStore interface {
	// Get retrieves the mapping for a source magic number. Returns ErrNotFound if not exists.
	Get(ctx context.Context, fromMagic int64) (*domain.MagicMapping, error)

	// Upsert adds or replaces the mapping keyed by FromMagic.
	Upsert(ctx context.Context, m *domain.MagicMapping) error

	// Delete removes the mapping for fromMagic. Returns ErrNotFound when absent.
	Delete(ctx context.Context, fromMagic int64) error

	// List retrieves all mappings, ordered by FromMagic ASC.
	List(ctx context.Context) ([]*domain.MagicMapping, error)
}

// IngestLogStore provides access to the feed refresh log.
type IngestLogStore interface {
	// Append adds a log entry.
	Append(ctx context.Context, e *domain.IngestLogEntry) error

	// Recent retrieves up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.IngestLogEntry, error)

	// DeleteAll removes every log entry. Returns the count removed.
	DeleteAll(ctx context.Context) (int64, error)
}

// SnapshotStore provides access to the append-only stats snapshot history.
type SnapshotStore interface {
	// Insert appends a snapshot row.
	Insert(ctx context.Context, s *domain.StatsSnapshot) error

	// GetByKey retrieves all snapshots for a filter key, ordered by ComputedAt ASC.
	GetByKey(ctx context.Context, filterKey string) ([]*domain.StatsSnapshot, error)

	// GetAll retrieves all snapshots, ordered by ComputedAt ASC.
	GetAll(ctx context.Context) ([]*domain.StatsSnapshot, error)
}
