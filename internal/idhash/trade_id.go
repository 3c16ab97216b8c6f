package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// timeLayout fixes the textual form of timestamps inside the hash input.
// Changing it would re-key every stored trade.
const timeLayout = "2006-01-02 15:04:05"

// ComputeTradeID computes a deterministic trade fingerprint using SHA256.
// Formula: SHA256(open_time|close_time|symbol|direction|lots|open_price|profit)
// Returns hex-encoded hash (64 characters).
//
// Magic number and comment are deliberately excluded: two strategies
// producing bit-identical executions collide on purpose, matching the
// dedup key of the upstream feeds.
func ComputeTradeID(
	openTime time.Time,
	closeTime time.Time,
	symbol string,
	direction string,
	lots float64,
	openPrice float64,
	profit float64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%g|%g|%g",
		openTime.UTC().Format(timeLayout),
		closeTime.UTC().Format(timeLayout),
		symbol,
		direction,
		lots,
		openPrice,
		profit,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
