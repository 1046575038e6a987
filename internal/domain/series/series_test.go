package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBars(closes []float64) []Bar {
	bars := make([]Bar, len(closes))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100000,
		}
	}
	return bars
}

func flatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestValidate_TooFewBars(t *testing.T) {
	s := Series{Symbol: "ABCD", Bars: makeBars(flatCloses(10, 100))}
	err := s.Validate(30)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidate_NonFiniteValue(t *testing.T) {
	bars := makeBars(flatCloses(35, 100))
	bars[7].Volume = math.NaN()
	err := Series{Symbol: "ABCD", Bars: bars}.Validate(30)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidate_DatesMustIncrease(t *testing.T) {
	bars := makeBars(flatCloses(35, 100))
	bars[5].Date = bars[4].Date
	err := Series{Symbol: "ABCD", Bars: bars}.Validate(30)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPreprocess_AddsIndicatorColumns(t *testing.T) {
	s := Series{Symbol: "ABCD", Bars: makeBars(flatCloses(60, 100))}
	frame, err := Preprocess(s, 30)
	require.NoError(t, err)

	require.Len(t, frame.SMA20, 60)
	require.Len(t, frame.SMA50, 60)
	require.Len(t, frame.ATR14, 60)
	require.Len(t, frame.VolSMA20, 60)

	// Warm-up entries are NaN, filled entries reflect the flat series.
	assert.True(t, math.IsNaN(frame.SMA20[18]))
	assert.InDelta(t, 100.0, frame.SMA20[19], 1e-9)
	assert.True(t, math.IsNaN(frame.SMA50[48]))
	assert.InDelta(t, 100.0, frame.SMA50[49], 1e-9)
	// Flat bars with high=close+1, low=close-1 have a constant TR of 2.
	assert.InDelta(t, 2.0, frame.ATR14[20], 1e-9)
	assert.InDelta(t, 100000.0, frame.VolSMA20[25], 1e-9)
}

func TestPreprocess_DoesNotMutateInput(t *testing.T) {
	bars := makeBars(flatCloses(40, 50))
	s := Series{Symbol: "ABCD", Bars: bars}
	before := bars[10]

	_, err := Preprocess(s, 30)
	require.NoError(t, err)
	assert.Equal(t, before, bars[10])
}

func TestTrueRanges_UsesPreviousClose(t *testing.T) {
	bars := []Bar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), High: 105, Low: 95, Close: 100},
		// Gap up: high-low is 4 but high-prevClose is 12.
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), High: 112, Low: 108, Close: 110},
	}
	tr := TrueRanges(bars)
	assert.InDelta(t, 10.0, tr[0], 1e-9)
	assert.InDelta(t, 12.0, tr[1], 1e-9)
}

func TestSlope_Directions(t *testing.T) {
	assert.InDelta(t, 1.0, Slope([]float64{1, 2, 3, 4, 5}), 1e-9)
	assert.InDelta(t, -2.0, Slope([]float64{10, 8, 6, 4}), 1e-9)
	assert.InDelta(t, 0.0, Slope([]float64{7, 7, 7}), 1e-9)
}

func TestReturns_ZeroPreviousIsNeutral(t *testing.T) {
	rets := Returns([]float64{0, 10, 11})
	require.Len(t, rets, 2)
	assert.Equal(t, 0.0, rets[0])
	assert.InDelta(t, 0.1, rets[1], 1e-9)
}

func TestStdDev_Known(t *testing.T) {
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, StdDev([]float64{5}))
}
