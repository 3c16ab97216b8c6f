// Package main runs the analytics server: scheduled feed ingestion with
// timeframe backfill, the JSON dashboard API, challenge simulation and
// optional ClickHouse snapshot history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"trade-analytics-lab/internal/analytics"
	"trade-analytics-lab/internal/config"
	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/ingestion"
	"trade-analytics-lab/internal/observability"
	"trade-analytics-lab/internal/remap"
	"trade-analytics-lab/internal/storage"
	chstore "trade-analytics-lab/internal/storage/clickhouse"
	"trade-analytics-lab/internal/storage/memory"
	"trade-analytics-lab/internal/storage/migrations"
	pgstore "trade-analytics-lab/internal/storage/postgres"
	sqlitestore "trade-analytics-lab/internal/storage/sqlite"
)

// Server holds all components of the analytics service.
type Server struct {
	cfg    config.Config
	stores *allStores

	analytics *analytics.Service
	remap     *remap.Service
	runner    *ingestion.Runner
	logger    *log.Logger

	// State
	mu             sync.Mutex
	refreshRunning bool
	lastRefresh    time.Time
	refreshRuns    int
	started        time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	trades    storage.TradeStore
	mappings  storage.MappingStore
	logs      storage.IngestLogStore
	snapshots storage.SnapshotStore // nil when no snapshot history is configured
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	listenAddr := flag.String("listen-addr", "", "HTTP listen address (overrides config)")
	backend := flag.String("storage", "", "Storage backend: memory | sqlite | postgres (overrides config)")
	sqlitePath := flag.String("sqlite-path", "", "SQLite database path (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for snapshot history (overrides config)")
	refreshInterval := flag.Duration("refresh-interval", 0, "Feed refresh interval (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	applyFlagOverrides(&cfg, *listenAddr, *backend, *sqlitePath, *postgresDSN, *clickhouseDSN, *refreshInterval)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := newServer(cfg, stores, logger)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.routes(),
	}

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	// Scheduled feed refresh
	go server.runRefreshScheduler(ctx)

	logger.Printf("Listening on %s (storage: %s)", cfg.ListenAddr, cfg.Storage.Backend)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func newServer(cfg config.Config, stores *allStores, logger *log.Logger) *Server {
	ingestor := ingestion.NewIngestor(stores.trades, stores.mappings)
	runner := ingestion.NewRunner(ingestor, stores.logs, buildSources(cfg.Feeds))

	return &Server{
		cfg:       cfg,
		stores:    stores,
		analytics: analytics.NewService(stores.trades, stores.mappings, stores.logs, cfg.CapitalBase),
		remap:     remap.NewService(stores.trades, stores.mappings),
		runner:    runner,
		logger:    logger,
		started:   time.Now(),
	}
}

func applyFlagOverrides(cfg *config.Config, listenAddr, backend, sqlitePath, postgresDSN, clickhouseDSN string, refreshInterval time.Duration) {
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if sqlitePath != "" {
		cfg.Storage.SQLitePath = sqlitePath
	}
	if postgresDSN != "" {
		cfg.Storage.PostgresDSN = postgresDSN
	}
	if clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = clickhouseDSN
	}
	if refreshInterval > 0 {
		cfg.RefreshInterval = config.Duration(refreshInterval)
	}
}

// buildSources turns the configured feeds into ingestion sources.
func buildSources(feeds []config.Feed) []ingestion.Source {
	sources := make([]ingestion.Source, 0, len(feeds))
	for _, f := range feeds {
		switch {
		case f.URL != "":
			sources = append(sources, ingestion.NewHTTPCSVSource(f.Name, f.URL))
		case f.Path != "":
			sources = append(sources, ingestion.NewFileCSVSource(f.Name, f.Path))
		}
	}
	return sources
}

// createStores creates the configured store set plus the optional
// ClickHouse snapshot history.
func createStores(ctx context.Context, cfg config.Config) (*allStores, func(), error) {
	stores := &allStores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Storage.Backend {
	case "memory":
		stores.trades = memory.NewTradeStore()
		stores.mappings = memory.NewMappingStore()
		stores.logs = memory.NewIngestLogStore()
		stores.snapshots = memory.NewSnapshotStore()

	case "sqlite":
		db, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		if err := migrations.RunSQLiteMigrations(ctx, db.DB); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		stores.trades = sqlitestore.NewTradeStore(db)
		stores.mappings = sqlitestore.NewMappingStore(db)
		stores.logs = sqlitestore.NewIngestLogStore(db)

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		stores.trades = pgstore.NewTradeStore(pool)
		stores.mappings = pgstore.NewMappingStore(pool)
		stores.logs = pgstore.NewIngestLogStore(pool)

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		stores.snapshots = chstore.NewSnapshotStore(conn)
	}

	return stores, cleanup, nil
}

// runRefreshScheduler ingests all feeds on startup and on every interval.
func (s *Server) runRefreshScheduler(ctx context.Context) {
	s.logger.Printf("Starting refresh scheduler (interval: %v)...", s.cfg.RefreshInterval.Std())

	s.refresh(ctx)

	ticker := time.NewTicker(s.cfg.RefreshInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh runs one full ingest cycle: all sources, timeframe backfill,
// then a snapshot write per tracked filter when history is attached.
func (s *Server) refresh(ctx context.Context) []*ingestion.Summary {
	s.mu.Lock()
	if s.refreshRunning {
		s.mu.Unlock()
		s.logger.Println("Refresh already running, skipping...")
		return nil
	}
	s.refreshRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshRunning = false
		s.lastRefresh = time.Now()
		s.refreshRuns++
		s.mu.Unlock()
	}()

	summaries := s.runner.RunAll(ctx)

	updated, err := ingestion.BackfillTimeframes(ctx, s.stores.trades)
	if err != nil {
		s.logger.Printf("Timeframe backfill error: %v", err)
	} else if updated > 0 {
		s.logger.Printf("Backfilled %d timeframes", updated)
	}

	if all, err := s.stores.trades.All(ctx); err == nil {
		observability.SetTradesStored(int64(len(all)))
	}

	s.writeSnapshots(ctx)
	return summaries
}

// writeSnapshots appends the current stats vector for the overall set and
// per source to the snapshot history.
func (s *Server) writeSnapshots(ctx context.Context) {
	if s.stores.snapshots == nil {
		return
	}

	filters := []domain.TradeFilter{{}}
	sources, err := s.analytics.Sources(ctx)
	if err != nil {
		s.logger.Printf("Snapshot source listing error: %v", err)
	} else {
		for _, src := range sources {
			filters = append(filters, domain.TradeFilter{Source: src})
		}
	}

	for _, f := range filters {
		snap, err := s.analytics.Snapshot(ctx, f)
		if err != nil {
			s.logger.Printf("Snapshot compute error for %q: %v", f.Key(), err)
			continue
		}
		if err := s.stores.snapshots.Insert(ctx, snap); err != nil {
			s.logger.Printf("Snapshot insert error for %q: %v", f.Key(), err)
			continue
		}
		observability.RecordSnapshotPersisted()
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
