package ingestion

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-analytics-lab/internal/domain"
)

// Feed column layout after the preamble and header lines.
const (
	colOpenTime = iota
	colCloseTime
	colSymbol
	colDirection
	colLots
	colOpenPrice
	colClosePrice
	colStopLoss
	colTakeProfit
	colProfit
	colMagicNumber
	colComment

	rowFieldCount = colComment + 1
)

// Feed exports are not consistent about their timestamp format.
var timeLayouts = []string{
	"2006.01.02 15:04:05",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02T15:04:05",
}

// ParseRow converts one feed row into a Trade. The fingerprint, source and
// timeframe are filled in by the ingestor. Returns an error for rows with
// missing fields or unparseable values; callers count them as malformed.
func ParseRow(row []string) (*domain.Trade, error) {
	if len(row) < rowFieldCount {
		return nil, fmt.Errorf("row has %d fields, need %d", len(row), rowFieldCount)
	}

	openTime, err := parseFeedTime(row[colOpenTime])
	if err != nil {
		return nil, fmt.Errorf("open time: %w", err)
	}
	closeTime, err := parseFeedTime(row[colCloseTime])
	if err != nil {
		return nil, fmt.Errorf("close time: %w", err)
	}

	direction, err := parseDirection(row[colDirection])
	if err != nil {
		return nil, err
	}

	lots, err := parseFeedFloat(row[colLots])
	if err != nil {
		return nil, fmt.Errorf("lots: %w", err)
	}
	openPrice, err := parseFeedFloat(row[colOpenPrice])
	if err != nil {
		return nil, fmt.Errorf("open price: %w", err)
	}
	closePrice, err := parseFeedFloat(row[colClosePrice])
	if err != nil {
		return nil, fmt.Errorf("close price: %w", err)
	}
	profit, err := parseFeedFloat(row[colProfit])
	if err != nil {
		return nil, fmt.Errorf("profit: %w", err)
	}

	// S/L, T/P and magic number are frequently blank; blank means zero
	stopLoss, _ := parseFeedFloat(row[colStopLoss])
	takeProfit, _ := parseFeedFloat(row[colTakeProfit])
	magic, _ := strconv.ParseInt(strings.TrimSpace(row[colMagicNumber]), 10, 64)

	return &domain.Trade{
		OpenTime:    openTime,
		CloseTime:   closeTime,
		Symbol:      strings.TrimSpace(row[colSymbol]),
		Direction:   direction,
		Lots:        lots,
		OpenPrice:   openPrice,
		ClosePrice:  closePrice,
		StopLoss:    stopLoss,
		TakeProfit:  takeProfit,
		Profit:      profit,
		MagicNumber: magic,
		Comment:     strings.TrimSpace(row[colComment]),
	}, nil
}

func parseFeedTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseFeedFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	// some exports use thousands separators
	s = strings.ReplaceAll(s, " ", "")
	return strconv.ParseFloat(s, 64)
}

func parseDirection(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return domain.DirectionBuy, nil
	case "sell":
		return domain.DirectionSell, nil
	default:
		return "", fmt.Errorf("unrecognized direction %q", s)
	}
}
