package ingestion

import (
	"context"
	"fmt"

	"trade-analytics-lab/internal/comment"
	"trade-analytics-lab/internal/observability"
	"trade-analytics-lab/internal/storage"
)

// BackfillTimeframes re-extracts timeframes for trades still marked
// Unknown. Rows whose comment yields nothing stay Unknown. Returns the
// number of trades updated.
func BackfillTimeframes(ctx context.Context, trades storage.TradeStore) (int, error) {
	unknown, err := trades.UnknownTimeframes(ctx)
	if err != nil {
		return 0, fmt.Errorf("load unknown timeframes: %w", err)
	}

	updated := 0
	for _, u := range unknown {
		tf := comment.ExtractTimeframe(u.Comment)
		if tf == "" {
			continue
		}
		if err := trades.UpdateTimeframe(ctx, u.Fingerprint, tf); err != nil {
			return updated, fmt.Errorf("update timeframe for %s: %w", u.Fingerprint, err)
		}
		updated++
	}

	if updated > 0 {
		observability.RecordTimeframesBackfilled(updated)
	}
	return updated, nil
}
