package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/breakoutlab/superstock/internal/domain/market"
	"github.com/breakoutlab/superstock/internal/domain/scoring"
	"github.com/breakoutlab/superstock/internal/domain/series"
	"github.com/breakoutlab/superstock/internal/infrastructure/providers"
)

// Recorder wraps a provider and mirrors fetched history and quotes into
// PostgreSQL. When the provider fails on history, previously stored bars
// are served instead, so a flaky upstream degrades scans rather than
// emptying them.
type Recorder struct {
	inner providers.MarketDataProvider
	db    *Postgres
	log   zerolog.Logger
}

// NewRecorder wraps the provider with persistence.
func NewRecorder(inner providers.MarketDataProvider, db *Postgres, log zerolog.Logger) *Recorder {
	return &Recorder{inner: inner, db: db, log: log}
}

// History fetches from the provider and persists the bars. On provider
// failure it falls back to stored history; ErrNotFound is never masked.
func (r *Recorder) History(ctx context.Context, symbol string, days int) (series.Series, error) {
	s, err := r.inner.History(ctx, symbol, days)
	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return series.Series{}, err
		}
		stored, loadErr := r.db.LoadHistory(ctx, symbol, days)
		if loadErr != nil || len(stored.Bars) == 0 {
			return series.Series{}, err
		}
		r.log.Warn().Err(err).Str("symbol", symbol).Int("bars", len(stored.Bars)).
			Msg("provider history failed, serving stored bars")
		return stored, nil
	}

	if saveErr := r.db.SaveHistory(ctx, s); saveErr != nil {
		r.log.Warn().Err(saveErr).Str("symbol", symbol).Msg("persist history failed")
	}
	return s, nil
}

// Quote fetches from the provider and records the snapshot.
func (r *Recorder) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	q, err := r.inner.Quote(ctx, symbol)
	if err != nil {
		return market.Quote{}, err
	}
	if saveErr := r.db.SaveQuote(ctx, q, time.Now().UTC()); saveErr != nil {
		r.log.Warn().Err(saveErr).Str("symbol", symbol).Msg("persist quote failed")
	}
	return q, nil
}

// Fundamentals passes through untouched; bundles are cached upstream and
// have no tabular home.
func (r *Recorder) Fundamentals(ctx context.Context, symbol string) (scoring.Bundle, error) {
	return r.inner.Fundamentals(ctx, symbol)
}
