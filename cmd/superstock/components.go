package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/breakoutlab/superstock/internal/application/pipeline"
	"github.com/breakoutlab/superstock/internal/artifacts"
	"github.com/breakoutlab/superstock/internal/config"
	"github.com/breakoutlab/superstock/internal/domain/base"
	"github.com/breakoutlab/superstock/internal/domain/scoring"
	"github.com/breakoutlab/superstock/internal/infrastructure/cache"
	"github.com/breakoutlab/superstock/internal/infrastructure/providers"
	"github.com/breakoutlab/superstock/internal/infrastructure/store"
	apihttp "github.com/breakoutlab/superstock/internal/interfaces/http"
)

// components holds the wired application graph shared by the scan and
// serve commands.
type components struct {
	cfg     config.Config
	cache   cache.Cache
	store   *store.Postgres
	runner  *pipeline.Runner
	metrics *apihttp.MetricsRegistry
	writer  *artifacts.Writer
}

// buildComponents loads configuration and wires cache, provider, storage,
// analyzer, scorer, and runner.
func buildComponents(ctx context.Context) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	c := &components{cfg: cfg, metrics: apihttp.NewMetricsRegistry()}
	c.cache = buildCache(ctx, cfg.Cache)

	var provider providers.MarketDataProvider = providers.NewHTTP(providers.HTTPConfig{
		BaseURL:           cfg.Provider.BaseURL,
		APIKey:            cfg.Provider.APIKey,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
		Timeout:           cfg.Provider.Timeout.Std(),
		FailureThreshold:  cfg.Provider.Breaker.FailureThreshold,
		OpenTimeout:       cfg.Provider.Breaker.OpenTimeout.Std(),
		HalfOpenRequests:  cfg.Provider.Breaker.HalfOpenRequests,
	}, instrumentedCache{Cache: c.cache, metrics: c.metrics}, cfg.Cache.TTL, componentLogger("provider"))

	if cfg.Store.Enabled {
		db, err := store.Open(cfg.Store.DSN)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.store = db
		provider = store.NewRecorder(provider, db, componentLogger("store"))
	}

	analyzer, err := base.NewFormationAnalyzer(
		cfg.Analysis.Base,
		cfg.Analysis.Weights,
		cfg.Analysis.Levels.Domain(),
		cfg.Analysis.Volume.Domain(),
	)
	if err != nil {
		c.Close()
		return nil, err
	}

	scorer, err := scoring.NewScorer(cfg.Scoring)
	if err != nil {
		c.Close()
		return nil, err
	}

	runner, err := pipeline.NewRunner(provider, analyzer, scorer, pipeline.Config{
		Workers:     cfg.Scan.Workers,
		HistoryDays: cfg.Scan.HistoryDays,
	}, c.metrics, componentLogger("pipeline"))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.runner = runner

	writer, err := artifacts.NewWriter(cfg.Artifacts.Dir, componentLogger("artifacts"))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.writer = writer

	return c, nil
}

// buildCache connects to Redis when an address is configured and the server
// answers a ping; anything else degrades to the in-process cache.
func buildCache(ctx context.Context, cfg config.CacheConfig) cache.Cache {
	if cfg.Addr == "" {
		return cache.NewMemory()
	}

	r := cache.NewRedis(cfg.Addr, cfg.Password, cfg.DB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if !r.Health(pingCtx) {
		log.Warn().Str("addr", cfg.Addr).Msg("redis unreachable, using in-memory cache")
		r.Close()
		return cache.NewMemory()
	}
	return r
}

func (c *components) Close() {
	if c.store != nil {
		c.store.Close()
	}
	if c.cache != nil {
		c.cache.Close()
	}
}

func componentLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// instrumentedCache mirrors cache outcomes into the metrics registry. Keys
// are prefixed with their payload kind.
type instrumentedCache struct {
	cache.Cache
	metrics *apihttp.MetricsRegistry
}

func (c instrumentedCache) Get(ctx context.Context, key string, dest any) error {
	err := c.Cache.Get(ctx, key, dest)
	kind, _, _ := strings.Cut(key, ":")
	switch {
	case err == nil:
		c.metrics.RecordCacheHit(kind)
	case errors.Is(err, cache.ErrMiss):
		c.metrics.RecordCacheMiss(kind)
	}
	return err
}
