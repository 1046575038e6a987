// Package series provides OHLCV series validation and indicator
// preprocessing used by all downstream pattern analysis.
package series

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput marks routine input validation failures: short series,
// non-numeric fields, unordered dates. Callers translate it into sentinel
// "invalid" results instead of aborting a batch.
var ErrInvalidInput = errors.New("invalid input series")

// Bar is a single OHLCV record.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered (ascending by date) OHLCV history for one symbol.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// MinBars is the default minimum series length accepted by Validate.
const MinBars = 30

// Validate checks the series invariants: at least minBars rows, all price
// and volume fields finite, dates strictly increasing.
func (s Series) Validate(minBars int) error {
	if minBars <= 0 {
		minBars = MinBars
	}
	if len(s.Bars) < minBars {
		return fmt.Errorf("%w: %d bars, need %d", ErrInvalidInput, len(s.Bars), minBars)
	}
	for i, b := range s.Bars {
		for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value at bar %d", ErrInvalidInput, i)
			}
		}
		if i > 0 && !s.Bars[i-1].Date.Before(b.Date) {
			return fmt.Errorf("%w: dates not strictly increasing at bar %d", ErrInvalidInput, i)
		}
	}
	return nil
}

// Highs returns the high column.
func (s Series) Highs() []float64 { return column(s.Bars, func(b Bar) float64 { return b.High }) }

// Lows returns the low column.
func (s Series) Lows() []float64 { return column(s.Bars, func(b Bar) float64 { return b.Low }) }

// Closes returns the close column.
func (s Series) Closes() []float64 { return column(s.Bars, func(b Bar) float64 { return b.Close }) }

// Volumes returns the volume column.
func (s Series) Volumes() []float64 { return column(s.Bars, func(b Bar) float64 { return b.Volume }) }

// Slice returns the sub-series [start, end). Bounds are assumed valid.
func (s Series) Slice(start, end int) Series {
	return Series{Symbol: s.Symbol, Bars: s.Bars[start:end]}
}

func column(bars []Bar, f func(Bar) float64) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = f(b)
	}
	return out
}
