package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-analytics-lab/internal/comment"
	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/idhash"
	"trade-analytics-lab/internal/observability"
	"trade-analytics-lab/internal/storage"
)

// ErrMalformedRow marks rows that cannot be parsed into a trade. Runs
// count these and continue instead of aborting.
var ErrMalformedRow = errors.New("malformed row")

// Summary reports the outcome of one ingest run over a source.
type Summary struct {
	Source    string
	Added     int
	Skipped   int // already-seen fingerprints
	Malformed int // unparseable rows
}

// Ingestor turns feed rows into stored trades: parse, fingerprint,
// dedupe, remap the magic number, extract the timeframe, insert.
type Ingestor struct {
	trades   storage.TradeStore
	mappings storage.MappingStore
	now      func() time.Time
}

// NewIngestor creates an ingestor over the given stores.
func NewIngestor(trades storage.TradeStore, mappings storage.MappingStore) *Ingestor {
	return &Ingestor{trades: trades, mappings: mappings, now: time.Now}
}

// IngestRow processes one raw feed row. Returns (true, nil) when a new
// trade was stored and (false, nil) when the fingerprint was already
// present. Unparseable rows return an error wrapping ErrMalformedRow.
func (ing *Ingestor) IngestRow(ctx context.Context, source string, row []string) (bool, error) {
	trade, err := ParseRow(row)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}

	trade.Source = source
	trade.Fingerprint = idhash.ComputeTradeID(
		trade.OpenTime, trade.CloseTime, trade.Symbol, trade.Direction,
		trade.Lots, trade.OpenPrice, trade.Profit,
	)

	// one-hop mapping; the original magic number is not retained
	if trade.MagicNumber > 0 {
		mapped, err := ing.resolveMagic(ctx, trade.MagicNumber)
		if err != nil {
			return false, err
		}
		if mapped != trade.MagicNumber {
			trade.MagicNumber = mapped
			observability.RecordMappingApplied()
		}
	}

	trade.Timeframe = comment.ExtractTimeframe(trade.Comment)
	if trade.Timeframe == "" {
		trade.Timeframe = domain.TimeframeUnknown
	}
	trade.CreatedAt = ing.now().UTC()

	inserted, err := ing.trades.InsertIfAbsent(ctx, trade)
	if err != nil {
		return false, fmt.Errorf("store trade %s: %w", trade.Fingerprint, err)
	}
	return inserted, nil
}

// Run ingests every row of one source snapshot. Malformed rows are counted
// and skipped; only source and store failures abort the run.
func (ing *Ingestor) Run(ctx context.Context, source Source) (*Summary, error) {
	rows, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source.Name(), err)
	}

	summary := &Summary{Source: source.Name()}
	for _, row := range rows {
		added, err := ing.IngestRow(ctx, source.Name(), row)
		switch {
		case errors.Is(err, ErrMalformedRow):
			summary.Malformed++
			observability.RecordRowMalformed(source.Name())
		case err != nil:
			return summary, err
		case added:
			summary.Added++
			observability.RecordTradeIngested(source.Name())
		default:
			summary.Skipped++
			observability.RecordTradeSkipped(source.Name())
		}
	}

	return summary, nil
}

// resolveMagic applies the active mapping for a magic number, single hop.
func (ing *Ingestor) resolveMagic(ctx context.Context, magic int64) (int64, error) {
	m, err := ing.mappings.Get(ctx, magic)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return magic, nil
		}
		return 0, fmt.Errorf("resolve mapping for magic %d: %w", magic, err)
	}
	return m.ToMagic, nil
}
