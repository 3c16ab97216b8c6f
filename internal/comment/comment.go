// Package comment parses order comments written by the account EAs.
// Comments are underscore-delimited: PAIR_TIMEFRAME_STRATEGY..._[RANGE%]_[MAGIC],
// with optional direction codes (_B, _S, _BS) anywhere in the tail.
package comment

import (
	"strings"
)

// tfPattern maps a raw comment token to its canonical timeframe.
type tfPattern struct {
	raw      string
	standard string
}

// Longer patterns first so H1 never matches inside H12.
var timeframePatterns = []tfPattern{
	{"H12", "12H"}, {"12H", "12H"},
	{"H1", "1H"}, {"1H", "1H"},
	{"H2", "2H"}, {"2H", "2H"},
	{"H4", "4H"}, {"4H", "4H"},
	{"H6", "6H"}, {"6H", "6H"},
	{"H8", "8H"}, {"8H", "8H"},
	{"M30", "30m"}, {"30M", "30m"},
	{"M15", "15m"}, {"15M", "15m"},
	{"M5", "5m"}, {"5M", "5m"},
	{"M1", "1m"}, {"1M", "1m"},
	{"D1", "1D"}, {"1D", "1D"},
	{"W1", "W1"},
	{"MN", "MN"},
}

// Timeframes returns all canonical timeframe tokens in table order.
func Timeframes() []string {
	seen := make(map[string]struct{}, len(timeframePatterns))
	var out []string
	for _, p := range timeframePatterns {
		if _, ok := seen[p.standard]; ok {
			continue
		}
		seen[p.standard] = struct{}{}
		out = append(out, p.standard)
	}
	return out
}

// ExtractTimeframe returns the canonical timeframe encoded in the comment,
// or "" when none matches. A pattern only counts as a whole
// underscore-bounded token: "_H1_", leading "H1_", trailing "_H1", or the
// entire comment. Matching is case-insensitive.
func ExtractTimeframe(comment string) string {
	if comment == "" {
		return ""
	}
	upper := strings.ToUpper(comment)

	for _, p := range timeframePatterns {
		if strings.Contains(upper, "_"+p.raw+"_") ||
			strings.HasPrefix(upper, p.raw+"_") ||
			strings.HasSuffix(upper, "_"+p.raw) ||
			upper == p.raw {
			return p.standard
		}
	}
	return ""
}

// ExtractDirection returns the direction code encoded in the comment:
// "BS", "B", "S", or "" when none. BS wins over B wins over S.
func ExtractDirection(comment string) string {
	if comment == "" {
		return ""
	}
	upper := strings.ToUpper(comment)

	switch {
	case strings.Contains(upper, "_BS_") || strings.Contains(tail(upper, 4), "_BS"):
		return "BS"
	case strings.Contains(upper, "_B_") || strings.Contains(tail(upper, 3), "_B"):
		return "B"
	case strings.Contains(upper, "_S_") || strings.Contains(tail(upper, 3), "_S"):
		return "S"
	}
	return ""
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Parsed holds the structured fields of a full comment.
// Unset fields are empty strings.
type Parsed struct {
	CurrencyPair string
	Timeframe    string
	Strategy     string
	Range        string // token containing '%'
	CommentMagic string // digits of the trailing token
	Direction    string
}

// Parse splits a full comment into its fields. The first token is the
// currency pair, the second the timeframe; the remaining tokens form the
// strategy name except for a '%' range token and a trailing numeric magic.
func Parse(c string) Parsed {
	var p Parsed
	if c == "" {
		return p
	}

	parts := strings.Split(c, "_")
	if len(parts) >= 2 {
		p.CurrencyPair = parts[0]
		p.Timeframe = ExtractTimeframe(parts[1])

		if len(parts) >= 3 {
			var strategyParts []string
			rangeFound := false

			for i := 2; i < len(parts); i++ {
				part := parts[i]
				switch {
				case strings.Contains(part, "%") && !rangeFound:
					p.Range = part
					rangeFound = true
				case i == len(parts)-1:
					if digits := keepDigits(part); digits != "" {
						p.CommentMagic = digits
					}
				case !rangeFound:
					strategyParts = append(strategyParts, part)
				}
			}

			if len(strategyParts) > 0 {
				p.Strategy = strings.Join(strategyParts, "_")
			}
		}
	}

	p.Direction = ExtractDirection(c)
	return p
}

// keepDigits strips every non-digit byte from s.
func keepDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
