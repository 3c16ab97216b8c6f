package equity

import (
	"math"
	"testing"
	"time"

	"trade-analytics-lab/internal/domain"
)

func tradesFromProfits(start time.Time, step time.Duration, profits ...float64) []*domain.Trade {
	trades := make([]*domain.Trade, len(profits))
	for i, p := range profits {
		trades[i] = &domain.Trade{
			Fingerprint: string(rune('a' + i)),
			CloseTime:   start.Add(time.Duration(i) * step),
			Profit:      p,
		}
	}
	return trades
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildCurve(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	trades := tradesFromProfits(start, time.Hour, 100, -50, 200, -100, 50)

	curve := BuildCurve(trades)
	if len(curve) != 5 {
		t.Fatalf("Expected 5 points, got %d", len(curve))
	}

	// cumulative: 100, 50, 250, 150, 200
	// runningMax: 100, 100, 250, 250, 250
	// drawdown:     0, -50,   0, -100, -50
	wantCum := []float64{100, 50, 250, 150, 200}
	wantMax := []float64{100, 100, 250, 250, 250}
	wantDD := []float64{0, -50, 0, -100, -50}

	for i, p := range curve {
		if !almostEqual(p.Cumulative, wantCum[i]) {
			t.Errorf("point %d: Cumulative = %f, want %f", i, p.Cumulative, wantCum[i])
		}
		if !almostEqual(p.RunningMax, wantMax[i]) {
			t.Errorf("point %d: RunningMax = %f, want %f", i, p.RunningMax, wantMax[i])
		}
		if !almostEqual(p.Drawdown, wantDD[i]) {
			t.Errorf("point %d: Drawdown = %f, want %f", i, p.Drawdown, wantDD[i])
		}
		if p.Drawdown > 0 {
			t.Errorf("point %d: Drawdown %f > 0", i, p.Drawdown)
		}
		if p.RunningMax < p.Cumulative {
			t.Errorf("point %d: RunningMax %f < Cumulative %f", i, p.RunningMax, p.Cumulative)
		}
	}
}

func TestBuildCurve_Empty(t *testing.T) {
	if got := BuildCurve(nil); got != nil {
		t.Errorf("Expected nil curve for empty input, got %v", got)
	}
}

func TestAvgRecoveryDays(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// One completed episode: drawdown opens at day 1 (-50), recovers to
	// exactly zero at day 3. Second episode opens at day 4 and never closes.
	trades := tradesFromProfits(start, 24*time.Hour, 100, -50, 20, 30, -10)

	curve := BuildCurve(trades)
	got := AvgRecoveryDays(curve)
	if !almostEqual(got, 2) {
		t.Errorf("AvgRecoveryDays = %f, want 2", got)
	}
}

func TestAvgRecoveryDays_FloorsIntradayEpisodes(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	// Drawdown opens 12h in and recovers 36h later: 1 whole day, not 1.5.
	trades := []*domain.Trade{
		{CloseTime: start, Profit: 100},
		{CloseTime: start.Add(12 * time.Hour), Profit: -50},
		{CloseTime: start.Add(48 * time.Hour), Profit: 50},
	}

	got := AvgRecoveryDays(BuildCurve(trades))
	if !almostEqual(got, 1) {
		t.Errorf("AvgRecoveryDays = %f, want 1", got)
	}
}

func TestAvgRecoveryDays_NoCompletedEpisodes(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := tradesFromProfits(start, 24*time.Hour, 100, -50, 20)

	got := AvgRecoveryDays(BuildCurve(trades))
	if got != 0 {
		t.Errorf("AvgRecoveryDays = %f, want 0", got)
	}
}

func TestDailySeries(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

	trades := []*domain.Trade{
		{CloseTime: day1, Profit: 100},
		{CloseTime: day1.Add(2 * time.Hour), Profit: -30},
		{CloseTime: day2, Profit: 50},
	}

	points := DailySeries(trades)
	if len(points) != 2 {
		t.Fatalf("Expected 2 daily points, got %d", len(points))
	}
	if !almostEqual(points[0].Profit, 70) {
		t.Errorf("day 1 Profit = %f, want 70", points[0].Profit)
	}
	if !almostEqual(points[1].Cumulative, 120) {
		t.Errorf("day 2 Cumulative = %f, want 120", points[1].Cumulative)
	}
	if !points[0].Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day 1 Date = %v, want midnight UTC", points[0].Date)
	}
}

func TestMonthlyDrawdown(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	trades := []*domain.Trade{
		{CloseTime: jan, Profit: 100},
		{CloseTime: jan.Add(24 * time.Hour), Profit: -40},
		{CloseTime: feb, Profit: -60},
		{CloseTime: feb.Add(24 * time.Hour), Profit: 80},
	}

	points := MonthlyDrawdown(trades)
	if len(points) != 2 {
		t.Fatalf("Expected 2 months, got %d", len(points))
	}
	// Jan: cum 100, 60; min dd -40; end 60.
	// Feb: cum 0, 80; dd -100 then -20; min dd -100; end 80.
	if points[0].Month != "2024-01" || !almostEqual(points[0].MinDrawdown, -40) || !almostEqual(points[0].EndEquity, 60) {
		t.Errorf("Jan = %+v", points[0])
	}
	if points[1].Month != "2024-02" || !almostEqual(points[1].MinDrawdown, -100) || !almostEqual(points[1].EndEquity, 80) {
		t.Errorf("Feb = %+v", points[1])
	}
}

func TestMonthlyProfit_ZeroFillsSpan(t *testing.T) {
	trades := []*domain.Trade{
		{CloseTime: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Profit: 100},
		{CloseTime: time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), Profit: -20},
	}

	points := MonthlyProfit(trades, 0)
	if len(points) != 4 {
		t.Fatalf("Expected 4 months in span, got %d", len(points))
	}
	if points[1].Month != "2024-02" || points[1].Profit != 0 || points[1].Trades != 0 {
		t.Errorf("Gap month = %+v, want zero-filled 2024-02", points[1])
	}
	if !almostEqual(points[3].Profit, -20) {
		t.Errorf("2024-04 Profit = %f, want -20", points[3].Profit)
	}
}

func TestMonthlyProfit_FullYearWhenFiltered(t *testing.T) {
	trades := []*domain.Trade{
		{CloseTime: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), Profit: 100},
	}

	points := MonthlyProfit(trades, 2024)
	if len(points) != 12 {
		t.Fatalf("Expected 12 months, got %d", len(points))
	}
	if points[0].Month != "2024-01" || points[11].Month != "2024-12" {
		t.Errorf("Span = %s..%s", points[0].Month, points[11].Month)
	}
	if !almostEqual(points[5].Profit, 100) {
		t.Errorf("June Profit = %f, want 100", points[5].Profit)
	}
}
