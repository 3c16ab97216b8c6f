package domain

import "time"

// Trade represents a closed position ingested from an account feed.
// Corresponds to the trades table. Trades are immutable after insert
// except for MagicNumber (remapping) and Timeframe (backfill).
type Trade struct {
	Fingerprint string // deterministic hash, unique
	Source      string // feed name the row came from

	OpenTime  time.Time // UTC
	CloseTime time.Time // UTC; all ordering is by close time
	Symbol    string
	Direction string // "Buy" | "Sell"
	Lots      float64

	OpenPrice  float64
	ClosePrice float64
	StopLoss   float64
	TakeProfit float64
	Profit     float64 // signed, account currency

	MagicNumber int64  // strategy identifier; 0 = manual
	Comment     string // raw order comment
	Timeframe   string // canonical token, TimeframeUnknown if not derivable

	CreatedAt time.Time
}

// Direction constants
const (
	DirectionBuy  = "Buy"
	DirectionSell = "Sell"
)

// TimeframeUnknown marks trades whose comment yields no timeframe.
const TimeframeUnknown = "Unknown"
