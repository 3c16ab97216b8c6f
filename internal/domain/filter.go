package domain

import (
	"fmt"
	"strings"
)

// TradeFilter narrows a trade query. Zero values mean "all".
// Direction is matched against the comment-derived direction code,
// not the raw trade direction alone.
type TradeFilter struct {
	Source      string
	Year        int
	Direction   string // "Buy" | "Sell" | "Buy/Sell"
	Symbol      string
	Timeframe   string
	MagicNumber int64
}

// IsZero reports whether the filter matches everything.
func (f TradeFilter) IsZero() bool {
	return f == TradeFilter{}
}

// Key returns a canonical string form of the filter, used as the
// snapshot history key. The zero filter yields "all".
func (f TradeFilter) Key() string {
	if f.IsZero() {
		return "all"
	}
	parts := []string{}
	if f.Source != "" {
		parts = append(parts, "source="+f.Source)
	}
	if f.Year != 0 {
		parts = append(parts, fmt.Sprintf("year=%d", f.Year))
	}
	if f.Direction != "" {
		parts = append(parts, "direction="+f.Direction)
	}
	if f.Symbol != "" {
		parts = append(parts, "symbol="+f.Symbol)
	}
	if f.Timeframe != "" {
		parts = append(parts, "timeframe="+f.Timeframe)
	}
	if f.MagicNumber != 0 {
		parts = append(parts, fmt.Sprintf("magic=%d", f.MagicNumber))
	}
	return strings.Join(parts, ",")
}
