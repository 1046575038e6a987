package base

import (
	"math"

	"github.com/breakoutlab/superstock/internal/domain/candles"
	"github.com/breakoutlab/superstock/internal/domain/series"
	"github.com/breakoutlab/superstock/internal/domain/volume"
)

// Caps for the consolidation sub-scores: a window spanning more than 15% of
// its low, or daily returns with more than 2% standard deviation, score zero
// on their respective terms.
const (
	maxConsolidationRange = 0.15
	maxDailyReturnStd     = 0.02
)

// candleBoost is added to the breakout score per detected bullish reversal
// pattern.
const candleBoost = 0.1

// Tightness measures how compressed the window's total range is against
// four times its mean true range, in [0,1] with 1 the tightest. Degenerate
// windows (zero average price or zero true range) read neutral 0.5.
func Tightness(win series.Series) float64 {
	minLow, _ := series.MinMax(win.Lows())
	_, maxHigh := series.MinMax(win.Highs())
	avgPrice := series.Mean(win.Closes())
	meanTR := series.Mean(series.TrueRanges(win.Bars))
	if avgPrice <= 0 || meanTR <= 0 {
		return 0.5
	}
	return 1 - math.Min(((maxHigh-minLow)/avgPrice)/(meanTR*4), 1)
}

// Consolidation scores how tightly price and volume contracted within the
// window: 0.4 price range + 0.3 volume trend + 0.3 return volatility.
// A window with a non-positive low scores zero.
func Consolidation(win series.Series) float64 {
	minLow, _ := series.MinMax(win.Lows())
	_, maxHigh := series.MinMax(win.Highs())
	if minLow <= 0 {
		return 0.0
	}
	priceScore := 1 - math.Min(((maxHigh-minLow)/minLow)/maxConsolidationRange, 1)

	volumeScore := 0.0
	if series.Slope(win.Volumes()) < 0 {
		volumeScore = 1.0
	}

	retStd := series.StdDev(series.Returns(win.Closes()))
	volatilityScore := 1 - math.Min(retStd/maxDailyReturnStd, 1)

	return 0.4*priceScore + 0.3*volumeScore + 0.3*volatilityScore
}

// Depth returns the window's high-low span relative to its minimum low,
// zero when the low is non-positive.
func Depth(win series.Series) float64 {
	minLow, _ := series.MinMax(win.Lows())
	_, maxHigh := series.MinMax(win.Highs())
	if minLow <= 0 {
		return 0.0
	}
	return (maxHigh - minLow) / minLow
}

// BreakoutScorer folds tightness, volume regime, consolidation quality,
// depth and candlestick signals into one potential score in [0,1].
type BreakoutScorer struct {
	weights  Weights
	maxDepth float64
}

// NewBreakoutScorer constructs a scorer; weight errors surface here.
func NewBreakoutScorer(weights Weights, maxDepth float64) (*BreakoutScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultConfig().MaxBaseDepth
	}
	return &BreakoutScorer{weights: weights.withDefaults(), maxDepth: maxDepth}, nil
}

// Score computes the breakout potential:
//
//	(tightness*Wt + volumeWeight[regime] + consolidation*Wc +
//	 (1 - min(depth, maxDepth)/maxDepth)*Wd) / 100
//
// then adds candleBoost per positive bullish signal and clamps to [0,1].
// The score is monotonically non-decreasing in tightness and consolidation.
func (b *BreakoutScorer) Score(tightness float64, regime volume.Regime, consolidation, depth float64, signals map[string]float64) float64 {
	score := (tightness*b.weights.PriceTightness +
		b.weights.VolumeRegime[regime] +
		consolidation*b.weights.Consolidation +
		(1-math.Min(depth, b.maxDepth)/b.maxDepth)*b.weights.Depth) / 100.0

	for _, name := range []string{candles.Hammer, candles.Engulfing, candles.MorningStar} {
		if signals[name] > 0 {
			score += candleBoost
		}
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
