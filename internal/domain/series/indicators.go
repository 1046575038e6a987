package series

import (
	"math"
)

// Frame is a validated series augmented with the indicator columns the
// pattern analyzers consume. Indicator slices are aligned with Bars; entries
// before the warm-up window are NaN, mirroring a rolling-window transform.
type Frame struct {
	Series

	ATR14    []float64 // 14-period simple mean of true range
	SMA20    []float64 // 20-period simple moving average of close
	SMA50    []float64 // 50-period simple moving average of close
	VolSMA20 []float64 // 20-period simple moving average of volume
}

// Preprocess validates the series and derives ATR, price moving averages and
// the volume moving average. It is a pure transform: the input is not
// modified and the returned frame references the original bars.
func Preprocess(s Series, minBars int) (*Frame, error) {
	if err := s.Validate(minBars); err != nil {
		return nil, err
	}

	closes := s.Closes()
	return &Frame{
		Series:   s,
		ATR14:    RollingMean(TrueRanges(s.Bars), 14),
		SMA20:    RollingMean(closes, 20),
		SMA50:    RollingMean(closes, 50),
		VolSMA20: RollingMean(s.Volumes(), 20),
	}, nil
}

// Window returns the frame restricted to bars [start, end). Indicator values
// keep their full-series warm-up, the way the finder evaluates windows.
func (f *Frame) Window(start, end int) *Frame {
	return &Frame{
		Series:   f.Series.Slice(start, end),
		ATR14:    f.ATR14[start:end],
		SMA20:    f.SMA20[start:end],
		SMA50:    f.SMA50[start:end],
		VolSMA20: f.VolSMA20[start:end],
	}
}

// TrueRanges computes the per-bar true range:
// max(high-low, |high-prevClose|, |low-prevClose|). The first bar has no
// previous close and falls back to high-low.
func TrueRanges(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// RollingMean computes a simple moving average; positions before the window
// is filled are NaN.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation, or 0 when fewer than two
// values are present.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// Slope returns the least-squares regression slope of values against their
// index, or 0 when fewer than two values are present.
func Slope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	// x = 0..n-1, so sum(x) and sum(x*x) have closed forms.
	sumX := n * (n - 1) / 2
	sumXX := n * (n - 1) * (2*n - 1) / 6
	var sumY, sumXY float64
	for i, v := range values {
		sumY += v
		sumXY += float64(i) * v
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Returns computes simple percentage returns between consecutive values.
// A zero previous value yields a zero return rather than Inf.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = values[i]/values[i-1] - 1
	}
	return out
}

// MinMax returns the minimum and maximum of values; zeros for empty input.
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
