// Package main runs one ingest cycle over the configured feeds and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"trade-analytics-lab/internal/config"
	"trade-analytics-lab/internal/ingestion"
	"trade-analytics-lab/internal/storage"
	"trade-analytics-lab/internal/storage/memory"
	"trade-analytics-lab/internal/storage/migrations"
	pgstore "trade-analytics-lab/internal/storage/postgres"
	sqlitestore "trade-analytics-lab/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	feedName := flag.String("feed-name", "", "Name for a one-off feed (with -feed-url or -feed-path)")
	feedURL := flag.String("feed-url", "", "One-off feed URL, ingested instead of the configured feeds")
	feedPath := flag.String("feed-path", "", "One-off feed file path, ingested instead of the configured feeds")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	trades, mappings, logs, cleanup, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open stores: %v", err)
	}
	defer cleanup()

	sources := buildSources(cfg.Feeds, *feedName, *feedURL, *feedPath)
	if len(sources) == 0 {
		logger.Fatal("No feeds configured. Add feeds to the config or pass -feed-url/-feed-path")
	}

	ingestor := ingestion.NewIngestor(trades, mappings)
	runner := ingestion.NewRunner(ingestor, logs, sources)

	summaries := runner.RunAll(ctx)
	for _, sum := range summaries {
		logger.Printf("%s: added=%d skipped=%d malformed=%d", sum.Source, sum.Added, sum.Skipped, sum.Malformed)
	}

	updated, err := ingestion.BackfillTimeframes(ctx, trades)
	if err != nil {
		logger.Fatalf("Timeframe backfill failed: %v", err)
	}
	logger.Printf("Backfilled %d timeframes", updated)
}

func buildSources(feeds []config.Feed, name, url, path string) []ingestion.Source {
	if url != "" || path != "" {
		if name == "" {
			name = "adhoc"
		}
		if url != "" {
			return []ingestion.Source{ingestion.NewHTTPCSVSource(name, url)}
		}
		return []ingestion.Source{ingestion.NewFileCSVSource(name, path)}
	}

	var sources []ingestion.Source
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

func openStores(ctx context.Context, cfg config.Config) (storage.TradeStore, storage.MappingStore, storage.IngestLogStore, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.NewTradeStore(), memory.NewMappingStore(), memory.NewIngestLogStore(), func() {}, nil

	case "sqlite":
		db, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := migrations.RunSQLiteMigrations(ctx, db.DB); err != nil {
			db.Close()
			return nil, nil, nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlitestore.NewTradeStore(db), sqlitestore.NewMappingStore(db), sqlitestore.NewIngestLogStore(db),
			func() { db.Close() }, nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pgstore.NewTradeStore(pool), pgstore.NewMappingStore(pool), pgstore.NewIngestLogStore(pool),
			pool.Close, nil
	}
	return nil, nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
