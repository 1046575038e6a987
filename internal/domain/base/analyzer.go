package base

import (
	"github.com/breakoutlab/superstock/internal/domain/candles"
	"github.com/breakoutlab/superstock/internal/domain/levels"
	"github.com/breakoutlab/superstock/internal/domain/series"
	"github.com/breakoutlab/superstock/internal/domain/volume"
)

// FormationAnalyzer is the standard Analyzer implementation: it slides the
// finder over a preprocessed series, measures the winning window, and folds
// the measurements into a breakout potential score.
type FormationAnalyzer struct {
	cfg       Config
	finder    *Finder
	scorer    *BreakoutScorer
	levelsCfg levels.Config
	volumeCfg volume.Config
}

// NewFormationAnalyzer wires the finder and breakout scorer from one config
// set. Configuration errors are fatal here so Analyze never fails per symbol.
func NewFormationAnalyzer(cfg Config, weights Weights, levelsCfg levels.Config, volumeCfg volume.Config) (*FormationAnalyzer, error) {
	cfg = cfg.withDefaults()
	finder, err := NewFinder(cfg, levelsCfg)
	if err != nil {
		return nil, err
	}
	scorer, err := NewBreakoutScorer(weights, cfg.MaxBaseDepth)
	if err != nil {
		return nil, err
	}
	return &FormationAnalyzer{
		cfg:       cfg,
		finder:    finder,
		scorer:    scorer,
		levelsCfg: levelsCfg,
		volumeCfg: volumeCfg,
	}, nil
}

// Analyze locates the best base window in the series and scores it. Invalid
// input or an empty search yields the invalid sentinel, never an error, so a
// batch run degrades per symbol instead of aborting.
func (a *FormationAnalyzer) Analyze(s series.Series) Pattern {
	frame, err := series.Preprocess(s, a.cfg.MinBaseLength)
	if err != nil {
		return InvalidPattern(s.Symbol)
	}

	cand, ok := a.finder.Find(frame)
	if !ok {
		return InvalidPattern(s.Symbol)
	}
	win := frame.Window(cand.Start, cand.End)

	tightness := Tightness(win.Series)
	consolidation := Consolidation(win.Series)
	depth := Depth(win.Series)
	lvls := levels.Find(win.Series, a.levelsCfg)

	// Regime classification looks at the whole history so the base window's
	// quiet tail is compared against the earlier active phase.
	regime := volume.Classify(frame.Volumes(), a.volumeCfg)
	signals := candles.Signals(win.Bars)

	breakout := a.scorer.Score(tightness, regime, consolidation, depth, signals)

	return Pattern{
		Symbol:      s.Symbol,
		IsValid:     true,
		IsIdealBase: a.isIdeal(regime, tightness, breakout, consolidation),

		Start:  win.Bars[0].Date,
		End:    win.Bars[len(win.Bars)-1].Date,
		Length: len(win.Bars),
		Depth:  depth,

		VolumePattern:   regime,
		PriceTightness:  tightness,
		SupportLevel:    lvls.Support,
		ResistanceLevel: lvls.Resistance,

		ConsolidationScore:  consolidation,
		BreakoutPotential:   breakout,
		QualityScore:        cand.Quality,
		CandlestickPatterns: signals,
	}
}

// Validate reports whether a pattern satisfies the structural requirements:
// a valid detection with at least the minimum length and a depth inside the
// configured bound.
func (a *FormationAnalyzer) Validate(p Pattern) bool {
	return p.IsValid && p.Length >= a.cfg.MinBaseLength && p.Depth <= a.cfg.MaxBaseDepth
}

func (a *FormationAnalyzer) isIdeal(regime volume.Regime, tightness, breakout, consolidation float64) bool {
	return regime == volume.Contraction &&
		tightness > a.cfg.IdealTightness &&
		breakout > a.cfg.IdealBreakout &&
		consolidation > a.cfg.IdealConsolidation
}
