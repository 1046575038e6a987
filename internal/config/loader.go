// Package config loads the screener configuration from YAML with explicit
// defaults per section and fail-fast validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/breakoutlab/superstock/internal/domain/base"
	"github.com/breakoutlab/superstock/internal/domain/levels"
	"github.com/breakoutlab/superstock/internal/domain/scoring"
	"github.com/breakoutlab/superstock/internal/domain/volume"
)

// Duration wraps time.Duration so "30s" style YAML scalars decode cleanly.
type Duration time.Duration

// UnmarshalYAML parses the scalar with time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full screener configuration.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Scoring   scoring.Config  `yaml:"scoring"`
	Provider  ProviderConfig  `yaml:"provider"`
	Cache     CacheConfig     `yaml:"cache"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Scan      ScanConfig      `yaml:"scan"`
}

// AnalysisConfig groups the pattern detection settings.
type AnalysisConfig struct {
	Base    base.Config  `yaml:"base"`
	Weights base.Weights `yaml:"breakout_weights"`
	Levels  LevelsConfig `yaml:"levels"`
	Volume  VolumeConfig `yaml:"volume"`
}

// LevelsConfig mirrors the level clustering parameters in YAML form.
type LevelsConfig struct {
	Threshold     float64 `yaml:"threshold"`
	MinTouches    int     `yaml:"min_touches"`
	Buckets       int     `yaml:"buckets"`
	MinSeparation int     `yaml:"min_separation"`
}

// Domain converts to the levels package config.
func (c LevelsConfig) Domain() levels.Config {
	return levels.Config{
		Threshold:     c.Threshold,
		MinTouches:    c.MinTouches,
		Buckets:       c.Buckets,
		MinSeparation: c.MinSeparation,
	}
}

// VolumeConfig mirrors the regime classifier parameters in YAML form.
type VolumeConfig struct {
	ContractionRatio float64 `yaml:"contraction_ratio"`
	ExpansionRatio   float64 `yaml:"expansion_ratio"`
	MinBars          int     `yaml:"min_bars"`
}

// Domain converts to the volume package config.
func (c VolumeConfig) Domain() volume.Config {
	return volume.Config{
		ContractionRatio: c.ContractionRatio,
		ExpansionRatio:   c.ExpansionRatio,
		MinBars:          c.MinBars,
	}
}

// ProviderConfig bounds the market data provider client.
type ProviderConfig struct {
	BaseURL           string   `yaml:"base_url"`
	APIKey            string   `yaml:"api_key"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	Timeout           Duration `yaml:"timeout"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds the circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold uint32   `yaml:"failure_threshold"`
	OpenTimeout      Duration `yaml:"open_timeout"`
	HalfOpenRequests uint32   `yaml:"half_open_requests"`
}

// CacheConfig holds the Redis cache settings.
type CacheConfig struct {
	Addr     string              `yaml:"addr"`
	Password string              `yaml:"password"`
	DB       int                 `yaml:"db"`
	TTLs     map[string]Duration `yaml:"ttls"`
}

// TTL returns the configured TTL for a payload kind, or the default.
func (c CacheConfig) TTL(kind string) time.Duration {
	if ttl, ok := c.TTLs[kind]; ok {
		return ttl.Std()
	}
	if ttl, ok := c.TTLs["default"]; ok {
		return ttl.Std()
	}
	return 15 * time.Minute
}

// StoreConfig holds the PostgreSQL history store settings.
type StoreConfig struct {
	DSN     string `yaml:"dsn"`
	Enabled bool   `yaml:"enabled"`
}

// ServerConfig holds the results and metrics server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ArtifactsConfig holds the scan artifact writer settings.
type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

// ScanConfig drives a batch run.
type ScanConfig struct {
	Symbols []string `yaml:"symbols"`
	Workers int      `yaml:"workers"`
	// HistoryDays is the lookback window requested from the provider.
	HistoryDays int `yaml:"history_days"`
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			Base:    base.DefaultConfig(),
			Weights: base.DefaultWeights(),
			Levels:  LevelsConfig{Threshold: 0.02, MinTouches: 3, Buckets: 100, MinSeparation: 5},
			Volume:  VolumeConfig{ContractionRatio: 0.5, ExpansionRatio: 2.0, MinBars: 20},
		},
		Scoring: scoring.DefaultConfig(),
		Provider: ProviderConfig{
			BaseURL:           "https://financialmodelingprep.com/api/v3",
			RequestsPerSecond: 5,
			Burst:             10,
			Timeout:           Duration(10 * time.Second),
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				OpenTimeout:      Duration(30 * time.Second),
				HalfOpenRequests: 3,
			},
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTLs: map[string]Duration{
				"default":      Duration(15 * time.Minute),
				"history":      Duration(6 * time.Hour),
				"quote":        Duration(time.Minute),
				"fundamentals": Duration(24 * time.Hour),
			},
		},
		Store:     StoreConfig{Enabled: false},
		Server:    ServerConfig{Addr: ":8080"},
		Artifacts: ArtifactsConfig{Dir: "./artifacts"},
		Scan:      ScanConfig{Workers: 8, HistoryDays: 365},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults; a malformed or invalid file is fatal.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section; configuration errors are fatal at load,
// never at scan time.
func (c Config) Validate() error {
	if err := c.Analysis.Base.Validate(); err != nil {
		return fmt.Errorf("analysis.base: %w", err)
	}
	if err := c.Analysis.Weights.Validate(); err != nil {
		return fmt.Errorf("analysis.breakout_weights: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.RequestsPerSecond <= 0 {
		return fmt.Errorf("provider.requests_per_second must be positive")
	}
	if c.Provider.Burst <= 0 {
		return fmt.Errorf("provider.burst must be positive")
	}
	if c.Store.Enabled && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required when the store is enabled")
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if c.Scan.HistoryDays <= 0 {
		return fmt.Errorf("scan.history_days must be positive")
	}
	return nil
}
