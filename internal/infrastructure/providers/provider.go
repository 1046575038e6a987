// Package providers implements the market data boundary: a rate-limited,
// circuit-broken HTTP client with a cache in front of it.
package providers

import (
	"context"
	"errors"

	"github.com/breakoutlab/superstock/internal/domain/market"
	"github.com/breakoutlab/superstock/internal/domain/scoring"
	"github.com/breakoutlab/superstock/internal/domain/series"
)

// ErrNotFound marks a symbol the provider does not know.
var ErrNotFound = errors.New("symbol not found")

// MarketDataProvider is what the pipeline pulls its inputs through.
type MarketDataProvider interface {
	// History returns up to days of daily OHLCV bars, oldest first.
	History(ctx context.Context, symbol string, days int) (series.Series, error)
	// Quote returns the current snapshot used for the market context.
	Quote(ctx context.Context, symbol string) (market.Quote, error)
	// Fundamentals returns the symbol's scoring bundle.
	Fundamentals(ctx context.Context, symbol string) (scoring.Bundle, error)
}
