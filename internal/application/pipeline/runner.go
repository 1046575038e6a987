// Package pipeline orchestrates a scan batch: build the market context
// snapshot, analyze and score every symbol across a worker pool, and rank
// the results deterministically.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breakoutlab/superstock/internal/domain/base"
	"github.com/breakoutlab/superstock/internal/domain/market"
	"github.com/breakoutlab/superstock/internal/domain/scoring"
	"github.com/breakoutlab/superstock/internal/domain/volume"
	"github.com/breakoutlab/superstock/internal/infrastructure/providers"
)

// Result is one symbol's scan outcome. Provider failures are carried inline
// so a batch report always covers every requested symbol.
type Result struct {
	Symbol  string             `json:"symbol"`
	Rank    int                `json:"rank"`
	Pattern base.Pattern       `json:"pattern"`
	Score   scoring.StockScore `json:"score"`
	Err     string             `json:"error,omitempty"`
}

// Observer receives scan lifecycle events; the metrics registry implements
// it.
type Observer interface {
	ScanStarted()
	ScanFinished()
	RecordSymbol(outcome string, baseDetected, passedGate bool)
}

type nopObserver struct{}

func (nopObserver) ScanStarted()                    {}
func (nopObserver) ScanFinished()                   {}
func (nopObserver) RecordSymbol(string, bool, bool) {}

// Config bounds a runner.
type Config struct {
	Workers     int
	HistoryDays int
}

// Runner executes scan batches. It holds no per-scan state and is safe to
// reuse.
type Runner struct {
	provider providers.MarketDataProvider
	analyzer base.Analyzer
	scorer   *scoring.Scorer
	obs      Observer
	cfg      Config
	log      zerolog.Logger
}

// NewRunner wires a runner. Configuration errors are fatal here; per-symbol
// failures at scan time are not.
func NewRunner(provider providers.MarketDataProvider, analyzer base.Analyzer, scorer *scoring.Scorer, cfg Config, obs Observer, log zerolog.Logger) (*Runner, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 365
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Runner{
		provider: provider,
		analyzer: analyzer,
		scorer:   scorer,
		obs:      obs,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Run scans the symbols and returns results ordered by total score
// descending, symbol ascending. One bad symbol never aborts the batch.
func (r *Runner) Run(ctx context.Context, symbols []string) ([]Result, error) {
	if len(symbols) == 0 {
		return []Result{}, nil
	}

	r.obs.ScanStarted()
	defer r.obs.ScanFinished()

	start := time.Now()
	r.log.Info().Int("symbols", len(symbols)).Msg("scan started")

	snapshot := r.buildContext(ctx, symbols)

	results := make([]Result, len(symbols))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.scanSymbol(ctx, symbols[i], snapshot)
			}
		}()
	}
	for i := range symbols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	rank(results)

	r.log.Info().
		Int("symbols", len(symbols)).
		Dur("elapsed", time.Since(start)).
		Msg("scan finished")
	return results, nil
}

// buildContext fetches every symbol's quote and aggregates the market-wide
// snapshot the scorers rank against. Quote failures shrink the snapshot but
// never fail the scan.
func (r *Runner) buildContext(ctx context.Context, symbols []string) *market.Context {
	quotes := make([]market.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		q, err := r.provider.Quote(ctx, symbol)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", symbol).Msg("quote unavailable for market context")
			continue
		}
		quotes = append(quotes, q)
	}
	return market.Build(quotes, time.Now().UTC())
}

func (r *Runner) scanSymbol(ctx context.Context, symbol string, snapshot *market.Context) Result {
	now := time.Now().UTC()

	history, err := r.provider.History(ctx, symbol, r.cfg.HistoryDays)
	if err != nil {
		r.obs.RecordSymbol("error", false, false)
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("history fetch failed")
		return Result{
			Symbol:  symbol,
			Pattern: base.InvalidPattern(symbol),
			Score:   scoring.EmptyScore(symbol, now),
			Err:     fmt.Sprintf("history: %v", err),
		}
	}
	history.Symbol = symbol

	pattern := r.analyzer.Analyze(history)

	bundle, err := r.provider.Fundamentals(ctx, symbol)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("fundamentals fetch failed, scoring technicals only")
		bundle = scoring.Bundle{}
	}
	// The quote was already fetched for the snapshot, so this is served
	// from cache. Its price positions the symbol inside the batch.
	rsRank := -1.0
	if q, err := r.provider.Quote(ctx, symbol); err == nil {
		rsRank = snapshot.PercentileRank(market.MetricPrice, q.Price)
	}

	bundle["symbol"] = symbol
	enrich(bundle, pattern, rsRank)

	score := r.scorer.Score(bundle, now)

	outcome := "scored"
	if !pattern.IsValid {
		outcome = "invalid"
	}
	r.obs.RecordSymbol(outcome, pattern.IsValid, score.PassedThreshold)

	return Result{Symbol: symbol, Pattern: pattern, Score: score}
}

// enrich folds the detected pattern and the batch percentile rank into the
// scoring bundle. Values the provider already supplied are left alone. A
// negative rsRank means no quote was available.
func enrich(bundle scoring.Bundle, p base.Pattern, rsRank float64) {
	technical, ok := bundle["technical_data"].(map[string]any)
	if !ok {
		technical = map[string]any{}
		bundle["technical_data"] = technical
	}

	basePattern, ok := technical["base_pattern"].(map[string]any)
	if !ok {
		basePattern = map[string]any{}
		technical["base_pattern"] = basePattern
	}
	setIfAbsent(basePattern, "development", p.QualityScore)
	setIfAbsent(basePattern, "volume_pattern", regimeScore(p.VolumePattern))
	setIfAbsent(basePattern, "price_tightness", p.PriceTightness)

	if rsRank >= 0 {
		marketCtx, ok := technical["market_context"].(map[string]any)
		if !ok {
			marketCtx = map[string]any{}
			technical["market_context"] = marketCtx
		}
		setIfAbsent(marketCtx, "relative_strength_rank", rsRank)
	}
}

func setIfAbsent(m map[string]any, key string, value any) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

// regimeScore maps the volume regime onto the 0..1 scale the scoring table
// expects: quiet bases score full marks.
func regimeScore(regime volume.Regime) float64 {
	switch regime {
	case volume.Contraction:
		return 1.0
	case volume.Expansion:
		return 0.0
	default:
		return 0.5
	}
}

// rank orders results by total score descending with symbol as the tie
// break, then assigns 1-based ranks.
func rank(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score.TotalScore != results[j].Score.TotalScore {
			return results[i].Score.TotalScore > results[j].Score.TotalScore
		}
		return results[i].Symbol < results[j].Symbol
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}
