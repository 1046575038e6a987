package base

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breakoutlab/superstock/internal/domain/candles"
	"github.com/breakoutlab/superstock/internal/domain/series"
	"github.com/breakoutlab/superstock/internal/domain/volume"
)

func tightWindow(n int) series.Series {
	bars := make([]series.Bar, n)
	for i := range bars {
		close := 100.5
		if i%2 == 1 {
			close = 99.5
		}
		bars[i] = series.Bar{
			Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   100,
			High:   close + 0.5,
			Low:    close - 0.5,
			Close:  close,
			Volume: 400000 - 1000*float64(i),
		}
	}
	return series.Series{Symbol: "TGT", Bars: bars}
}

func TestTightness_CompressedWindowScoresHigh(t *testing.T) {
	assert.Greater(t, Tightness(tightWindow(30)), 0.9)
}

func TestTightness_DegenerateWindowReadsNeutral(t *testing.T) {
	flat := series.Series{Bars: []series.Bar{
		{Date: time.Now(), Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000},
	}}
	assert.Equal(t, 0.5, Tightness(flat))
}

func TestConsolidation_TightContractingWindow(t *testing.T) {
	score := Consolidation(tightWindow(30))
	// Price range and volume trend terms near max, return volatility mid.
	assert.Greater(t, score, 0.6)
	assert.LessOrEqual(t, score, 1.0)
}

func TestDepth(t *testing.T) {
	win := tightWindow(30)
	// Highs peak at 101, lows bottom at 99.
	assert.InDelta(t, 2.0/99.0, Depth(win), 1e-9)
}

func TestBreakoutScore_MonotonicInTightness(t *testing.T) {
	scorer, err := NewBreakoutScorer(DefaultWeights(), 0.30)
	require.NoError(t, err)

	none := map[string]float64{}
	low := scorer.Score(0.3, volume.Neutral, 0.5, 0.1, none)
	high := scorer.Score(0.9, volume.Neutral, 0.5, 0.1, none)
	assert.Greater(t, high, low)
}

func TestBreakoutScore_MonotonicInConsolidation(t *testing.T) {
	scorer, err := NewBreakoutScorer(DefaultWeights(), 0.30)
	require.NoError(t, err)

	none := map[string]float64{}
	low := scorer.Score(0.5, volume.Neutral, 0.2, 0.1, none)
	high := scorer.Score(0.5, volume.Neutral, 0.8, 0.1, none)
	assert.Greater(t, high, low)
}

func TestBreakoutScore_ContractionBeatsExpansion(t *testing.T) {
	scorer, err := NewBreakoutScorer(DefaultWeights(), 0.30)
	require.NoError(t, err)

	none := map[string]float64{}
	contraction := scorer.Score(0.5, volume.Contraction, 0.5, 0.1, none)
	expansion := scorer.Score(0.5, volume.Expansion, 0.5, 0.1, none)
	neutral := scorer.Score(0.5, volume.Neutral, 0.5, 0.1, none)
	assert.Greater(t, contraction, expansion)
	assert.Greater(t, expansion, neutral)
}

func TestBreakoutScore_CandleSignalsBoost(t *testing.T) {
	scorer, err := NewBreakoutScorer(DefaultWeights(), 0.30)
	require.NoError(t, err)

	base := scorer.Score(0.5, volume.Neutral, 0.5, 0.1, map[string]float64{})
	boosted := scorer.Score(0.5, volume.Neutral, 0.5, 0.1, map[string]float64{
		candles.Hammer: 1,
	})
	assert.InDelta(t, base+0.1, boosted, 1e-9)
}

func TestBreakoutScore_ClampedToUnitRange(t *testing.T) {
	scorer, err := NewBreakoutScorer(DefaultWeights(), 0.30)
	require.NoError(t, err)

	all := map[string]float64{
		candles.Hammer:      1,
		candles.Engulfing:   1,
		candles.MorningStar: 1,
	}
	assert.Equal(t, 1.0, scorer.Score(1.0, volume.Contraction, 1.0, 0.0, all))
	assert.GreaterOrEqual(t, scorer.Score(0, volume.Neutral, 0, 1.0, nil), 0.0)
}

func TestNewBreakoutScorer_RejectsBadWeights(t *testing.T) {
	w := DefaultWeights()
	w.PriceTightness = 500
	_, err := NewBreakoutScorer(w, 0.30)
	assert.Error(t, err)
}
