package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trade-analytics-lab/internal/challenge"
	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/observability"
	"trade-analytics-lab/internal/storage"
)

// routes wires the JSON API.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Analytics
	mux.HandleFunc("GET /api/stats", s.instrument("stats", s.handleStats))
	mux.HandleFunc("GET /api/equity", s.instrument("equity", s.handleEquity))
	mux.HandleFunc("GET /api/equity/daily", s.instrument("equity_daily", s.handleEquityDaily))
	mux.HandleFunc("GET /api/drawdown/monthly", s.instrument("drawdown_monthly", s.handleMonthlyDrawdown))
	mux.HandleFunc("GET /api/monthly", s.instrument("monthly", s.handleMonthlyProfit))
	mux.HandleFunc("GET /api/strategies/monthly", s.instrument("strategies_monthly", s.handleStrategyGrid))
	mux.HandleFunc("GET /api/max-dd-year", s.instrument("max_dd_year", s.handleMaxDDYear))
	mux.HandleFunc("GET /api/trades/recent", s.instrument("trades_recent", s.handleRecentTrades))

	// Option listings
	mux.HandleFunc("GET /api/sources", s.instrument("sources", s.listHandler(s.analytics.Sources)))
	mux.HandleFunc("GET /api/symbols", s.instrument("symbols", s.listHandler(s.analytics.Symbols)))
	mux.HandleFunc("GET /api/timeframes", s.instrument("timeframes", s.listHandler(s.analytics.Timeframes)))
	mux.HandleFunc("GET /api/magics", s.instrument("magics", s.handleMagics))
	mux.HandleFunc("GET /api/directions", s.instrument("directions", s.handleDirections))
	mux.HandleFunc("GET /api/options/strategies", s.instrument("opt_strategies", s.listHandler(s.analytics.Strategies)))
	mux.HandleFunc("GET /api/options/currency-pairs", s.instrument("opt_pairs", s.listHandler(s.analytics.CurrencyPairs)))
	mux.HandleFunc("GET /api/options/ranges", s.instrument("opt_ranges", s.listHandler(s.analytics.Ranges)))

	// Ingestion
	mux.HandleFunc("POST /api/update", s.handleUpdate)
	mux.HandleFunc("GET /api/last-update", s.instrument("last_update", s.handleLastUpdate))
	mux.HandleFunc("POST /api/reset", s.handleReset)

	// Mappings
	mux.HandleFunc("GET /api/mappings", s.instrument("mappings", s.handleMappingsList))
	mux.HandleFunc("POST /api/mappings", s.handleMappingUpsert)
	mux.HandleFunc("DELETE /api/mappings/{from}", s.handleMappingDelete)
	mux.HandleFunc("POST /api/mappings/unify", s.handleMappingsUnify)

	// Strategy detail
	mux.HandleFunc("GET /api/strategies/{magic}", s.instrument("strategy_trades", s.handleStrategyTrades))
	mux.HandleFunc("DELETE /api/strategies/{magic}", s.handleStrategyDelete)
	mux.HandleFunc("GET /api/portfolio/stats", s.instrument("portfolio", s.handlePortfolio))

	// Challenge
	mux.HandleFunc("POST /api/challenge/simulate", s.handleChallengeSimulate)
	mux.HandleFunc("POST /api/challenge/replay", s.handleChallengeReplay)

	// Snapshots
	mux.HandleFunc("GET /api/snapshots", s.instrument("snapshots", s.handleSnapshots))

	// Health and metrics
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())

	return mux
}

// instrument records query metrics per endpoint.
func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		observability.RecordQuery(endpoint, time.Since(start).Seconds())
	}
}

// parseFilter reads the common filter query parameters.
func parseFilter(r *http.Request) domain.TradeFilter {
	q := r.URL.Query()
	f := domain.TradeFilter{
		Source:    q.Get("source"),
		Direction: q.Get("direction"),
		Symbol:    q.Get("symbol"),
		Timeframe: q.Get("timeframe"),
	}
	if y, err := strconv.Atoi(q.Get("year")); err == nil {
		f.Year = y
	}
	if m, err := strconv.ParseInt(q.Get("magic"), 10, 64); err == nil {
		f.MagicNumber = m
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analytics.Stats(r.Context(), parseFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	curve, err := s.analytics.EquityCurve(r.Context(), parseFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, curve)
}

func (s *Server) handleEquityDaily(w http.ResponseWriter, r *http.Request) {
	series, err := s.analytics.DailyEquity(r.Context(), parseFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleMonthlyDrawdown(w http.ResponseWriter, r *http.Request) {
	series, err := s.analytics.MonthlyDrawdown(r.Context(), parseFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleMonthlyProfit(w http.ResponseWriter, r *http.Request) {
	series, err := s.analytics.MonthlyProfit(r.Context(), parseFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleStrategyGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := s.analytics.StrategyMonthlyGrid(r.Context(), parseFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (s *Server) handleMaxDDYear(w http.ResponseWriter, r *http.Request) {
	pct, err := s.analytics.MaxDrawdownYearPct(r.Context(), parseFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"max_dd_percent": pct})
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	trades, err := s.analytics.RecentTrades(r.Context(), parseFilter(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) listHandler(list func(ctx context.Context) ([]string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, err := list(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if values == nil {
			values = []string{}
		}
		writeJSON(w, http.StatusOK, values)
	}
}

func (s *Server) handleMagics(w http.ResponseWriter, r *http.Request) {
	magics, err := s.analytics.MagicNumbers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if magics == nil {
		magics = []int64{}
	}
	writeJSON(w, http.StatusOK, magics)
}

func (s *Server) handleDirections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.analytics.Directions())
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	summaries := s.refresh(r.Context())
	if summaries == nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "refresh already running"})
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleLastUpdate(w http.ResponseWriter, r *http.Request) {
	entry, err := s.analytics.LastUpdate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusOK, map[string]any{"last_update": nil})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	result, err := s.analytics.Reset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMappingsList(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.remap.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mappings)
}

type mappingRequest struct {
	FromMagic      int64 `json:"from_magic"`
	ToMagic        int64 `json:"to_magic"`
	UpdateExisting bool  `json:"update_existing"`
}

func (s *Server) handleMappingUpsert(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result, err := s.remap.Upsert(r.Context(), req.FromMagic, req.ToMagic, req.UpdateExisting)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMappingDelete(w http.ResponseWriter, r *http.Request) {
	from, err := strconv.ParseInt(r.PathValue("from"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid magic number"})
		return
	}
	if err := s.remap.Delete(r.Context(), from); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": from})
}

type unifyRequest struct {
	Mappings map[string]int64 `json:"mappings"` // from (as string key) -> to
}

func (s *Server) handleMappingsUnify(w http.ResponseWriter, r *http.Request) {
	var req unifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	pairs := make(map[int64]int64, len(req.Mappings))
	for k, to := range req.Mappings {
		from, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid magic number " + k})
			return
		}
		pairs[from] = to
	}
	results, err := s.remap.UnifyBatch(r.Context(), pairs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleStrategyTrades(w http.ResponseWriter, r *http.Request) {
	magic, err := strconv.ParseInt(r.PathValue("magic"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid magic number"})
		return
	}
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))

	trades, err := s.analytics.StrategyTrades(r.Context(), magic, year, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleStrategyDelete(w http.ResponseWriter, r *http.Request) {
	magic, err := strconv.ParseInt(r.PathValue("magic"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid magic number"})
		return
	}
	deleted, err := s.analytics.DeleteStrategy(r.Context(), magic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("magics")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "magics parameter required"})
		return
	}
	var magics []int64
	for _, part := range strings.Split(raw, ",") {
		m, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid magic number " + part})
			return
		}
		magics = append(magics, m)
	}
	portfolio, err := s.analytics.PortfolioStats(r.Context(), magics)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

type challengeRequest struct {
	Capital      float64 `json:"capital"`
	Threshold1   float64 `json:"threshold1"`
	Threshold2   float64 `json:"threshold2"`
	DailyDDLimit float64 `json:"daily_dd_limit"`
	MaxDDLimit   float64 `json:"max_dd_limit"`
	RiskPerTrade float64 `json:"risk_per_trade"`
}

// challengeConfig merges request values over the configured defaults.
func (s *Server) challengeConfig(req challengeRequest) challenge.Config {
	def := s.cfg.Challenge
	cfg := challenge.Config{
		Capital:      def.Capital,
		Threshold1:   def.Threshold1,
		Threshold2:   def.Threshold2,
		DailyDDLimit: def.DailyDDLimit,
		MaxDDLimit:   def.MaxDDLimit,
		RiskPerTrade: def.RiskPerTrade,
	}
	if req.Capital > 0 {
		cfg.Capital = req.Capital
	}
	if req.Threshold1 > 0 {
		cfg.Threshold1 = req.Threshold1
	}
	if req.Threshold2 > 0 {
		cfg.Threshold2 = req.Threshold2
	}
	if req.DailyDDLimit > 0 {
		cfg.DailyDDLimit = req.DailyDDLimit
	}
	if req.MaxDDLimit > 0 {
		cfg.MaxDDLimit = req.MaxDDLimit
	}
	if req.RiskPerTrade > 0 {
		cfg.RiskPerTrade = req.RiskPerTrade
	}
	return cfg
}

func (s *Server) challengeTrades(r *http.Request) ([]*domain.Trade, challenge.Config, error) {
	var req challengeRequest
	if r.Body != nil {
		// an empty body means all defaults; a malformed one is rejected
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return nil, challenge.Config{}, fmt.Errorf("decode challenge request: %w", storage.ErrInvalidInput)
		}
	}
	trades, err := s.analytics.Query(r.Context(), parseFilter(r))
	if err != nil {
		return nil, challenge.Config{}, err
	}
	return trades, s.challengeConfig(req), nil
}

func (s *Server) handleChallengeSimulate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	trades, cfg, err := s.challengeTrades(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result := challenge.Simulate(trades, cfg)
	observability.RecordSimulationRun()
	observability.RecordQuery("challenge_simulate", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChallengeReplay(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	trades, cfg, err := s.challengeTrades(r)
	if err != nil {
		writeError(w, err)
		return
	}
	points := challenge.Replay(trades, cfg)
	observability.RecordSimulationRun()
	observability.RecordQuery("challenge_replay", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.stores.snapshots == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "snapshot history not configured"})
		return
	}
	key := r.URL.Query().Get("key")
	var (
		snaps []*domain.StatsSnapshot
		err   error
	)
	if key == "" {
		snaps, err = s.stores.snapshots.GetAll(r.Context())
	} else {
		snaps, err = s.stores.snapshots.GetByKey(r.Context(), key)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := map[string]any{
		"status":       "ok",
		"uptime":       time.Since(s.started).String(),
		"refresh_runs": s.refreshRuns,
		"last_refresh": s.lastRefresh,
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}
