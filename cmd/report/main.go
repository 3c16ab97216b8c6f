// Package main generates the performance report (Markdown + CSV) from the
// configured store and writes it to the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"trade-analytics-lab/internal/config"
	"trade-analytics-lab/internal/reporting"
	"trade-analytics-lab/internal/storage"
	"trade-analytics-lab/internal/storage/migrations"
	pgstore "trade-analytics-lab/internal/storage/postgres"
	sqlitestore "trade-analytics-lab/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	outputDir := flag.String("output-dir", "", "Output directory for reports (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	dir := cfg.OutputDir
	if *outputDir != "" {
		dir = *outputDir
	}

	ctx := context.Background()

	trades, cleanup, err := openTradeStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer cleanup()

	report, err := reporting.NewGenerator(trades, cfg.CapitalBase).Generate(ctx)
	if err != nil {
		logger.Fatalf("Report generation failed: %v", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}

	mdPath := filepath.Join(dir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		logger.Fatalf("Failed to write %s: %v", mdPath, err)
	}
	csvPath := filepath.Join(dir, "strategies.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.StrategyRows)), 0644); err != nil {
		logger.Fatalf("Failed to write %s: %v", csvPath, err)
	}

	logger.Printf("Report written to %s (%d strategies, %d trades)",
		dir, report.StrategyCount, report.DataSummary.TotalTrades)
}

func openTradeStore(ctx context.Context, cfg config.Config) (storage.TradeStore, func(), error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := migrations.RunSQLiteMigrations(ctx, db.DB); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlitestore.NewTradeStore(db), func() { db.Close() }, nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pgstore.NewTradeStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("report needs a persistent storage backend, got %q", cfg.Storage.Backend)
}
