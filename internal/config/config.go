// Package config loads server configuration from an optional YAML file,
// with environment variables overriding file values and defaults filling
// the rest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML duration strings like "30m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Feed names one CSV feed to ingest. Exactly one of URL or Path is set.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// Storage selects the trade store backend and its connection details.
type Storage struct {
	Backend       string `yaml:"backend"` // memory | sqlite | postgres
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional, snapshot history
}

// Challenge holds the default prop-firm challenge parameters served when
// a simulation request leaves them unset.
type Challenge struct {
	Capital      float64 `yaml:"capital"`
	Threshold1   float64 `yaml:"threshold1"`
	Threshold2   float64 `yaml:"threshold2"`
	DailyDDLimit float64 `yaml:"daily_dd_limit"`
	MaxDDLimit   float64 `yaml:"max_dd_limit"`
	RiskPerTrade float64 `yaml:"risk_per_trade"`
}

// Config is the full server configuration.
type Config struct {
	ListenAddr      string    `yaml:"listen_addr"`
	CapitalBase     float64   `yaml:"capital_base"`
	RefreshInterval Duration  `yaml:"refresh_interval"`
	OutputDir       string    `yaml:"output_dir"`
	Storage         Storage   `yaml:"storage"`
	Feeds           []Feed    `yaml:"feeds"`
	Challenge       Challenge `yaml:"challenge"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		CapitalBase:     100000,
		RefreshInterval: Duration(time.Hour),
		OutputDir:       "output",
		Storage: Storage{
			Backend:    "sqlite",
			SQLitePath: "trades.db",
		},
		Challenge: Challenge{
			Capital:      100000,
			Threshold1:   0.08,
			Threshold2:   0.05,
			DailyDDLimit: 0.05,
			MaxDDLimit:   0.10,
			RiskPerTrade: 1000,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), then
// applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite backend needs sqlite_path")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres backend needs postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.CapitalBase <= 0 {
		return fmt.Errorf("capital_base must be positive")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = envOr("LISTEN_ADDR", cfg.ListenAddr)
	cfg.CapitalBase = envFloatOr("CAPITAL_BASE", cfg.CapitalBase)
	cfg.RefreshInterval = Duration(envDurationOr("REFRESH_INTERVAL", cfg.RefreshInterval.Std()))
	cfg.OutputDir = envOr("OUTPUT_DIR", cfg.OutputDir)
	cfg.Storage.Backend = envOr("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.SQLitePath = envOr("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.PostgresDSN = envOr("POSTGRES_DSN", cfg.Storage.PostgresDSN)
	cfg.Storage.ClickhouseDSN = envOr("CLICKHOUSE_DSN", cfg.Storage.ClickhouseDSN)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
