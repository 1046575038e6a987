package base

import (
	"math"

	"github.com/breakoutlab/superstock/internal/domain/levels"
	"github.com/breakoutlab/superstock/internal/domain/series"
)

// Finder slides a fixed-length window across a preprocessed series, gates
// each window on the base criteria, scores survivors, and selects the best
// candidate with ties broken toward the most recent window.
type Finder struct {
	cfg       Config
	levelsCfg levels.Config
}

// NewFinder constructs a finder. Config errors surface here, not per call.
func NewFinder(cfg Config, levelsCfg levels.Config) (*Finder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Finder{cfg: cfg.withDefaults(), levelsCfg: levelsCfg}, nil
}

// Candidate is a window that passed the criteria gate.
type Candidate struct {
	Start   int
	End     int // exclusive
	Quality float64
	Touches int
}

// Find returns the highest-quality, most recent qualifying window, or
// ok=false when no window passes the gate and the quality floor.
func (f *Finder) Find(frame *series.Frame) (Candidate, bool) {
	length := f.cfg.MinBaseLength
	n := len(frame.Bars)
	if n < length {
		return Candidate{}, false
	}

	best := Candidate{Quality: math.Inf(-1)}
	found := false
	for start := 0; start <= n-length; start++ {
		win := frame.Window(start, start+length)
		touches, ok := f.meetsCriteria(win)
		if !ok {
			continue
		}
		quality := f.quality(win, touches)
		if quality < f.cfg.MinQuality {
			continue
		}
		// >= keeps the later window on equal quality.
		if quality >= best.Quality {
			best = Candidate{Start: start, End: start + length, Quality: quality, Touches: touches}
			found = true
		}
	}
	return best, found
}

// meetsCriteria applies the hard gate: bounded depth, non-expanding volume,
// enough support/resistance touches, and a last close hugging its 20-day
// average. Returns the touch count so quality scoring reuses it.
func (f *Finder) meetsCriteria(win *series.Frame) (int, bool) {
	rng, ok := priceRange(win)
	if !ok || rng > f.cfg.MaxBaseDepth {
		return 0, false
	}

	vols := win.Volumes()
	avg := series.Mean(vols)
	recent := series.Mean(vols[len(vols)-5:])
	if avg <= 0 || recent > avg*f.cfg.MaxVolumeRatio {
		return 0, false
	}

	touches := levels.CountTouches(win.Series, f.levelsCfg)
	if touches < f.cfg.MinTouches {
		return touches, false
	}

	if dev, ok := smaDeviation(lastClose(win), lastValid(win.SMA20)); !ok || dev > f.cfg.MaxSMADeviation {
		return touches, false
	}
	return touches, true
}

// quality scores a gated window: 0.3 tightness, 0.3 volume trend,
// 0.2 touch density, 0.2 moving-average alignment.
func (f *Finder) quality(win *series.Frame, touches int) float64 {
	rng, _ := priceRange(win)
	tightness := 1 - math.Min(rng/f.cfg.MaxBaseDepth, 1)

	volumeTrend := 0.0
	if series.Slope(win.Volumes()) < 0 {
		volumeTrend = 1.0
	}

	touchScore := math.Min(float64(touches)/float64(f.cfg.MinTouches), 1)

	return 0.3*tightness + 0.3*volumeTrend + 0.2*touchScore + 0.2*f.maAlignment(win)
}

// maAlignment rewards a last close near its SMA20 and an SMA20 near its
// SMA50, each deviation capped at MaxSMADeviation. A moving average still in
// warm-up contributes zero for its term.
func (f *Finder) maAlignment(win *series.Frame) float64 {
	maxDev := f.cfg.MaxSMADeviation
	score := 0.0
	if dev, ok := smaDeviation(lastClose(win), lastValid(win.SMA20)); ok {
		score += 0.6 * (1 - math.Min(dev/maxDev, 1))
	}
	sma20, sma50 := lastValid(win.SMA20), lastValid(win.SMA50)
	if dev, ok := smaDeviation(sma20, sma50); ok {
		score += 0.4 * (1 - math.Min(dev/maxDev, 1))
	}
	return score
}

// priceRange returns (maxHigh-minLow)/minLow; ok=false on a non-positive
// low, which cannot be scored meaningfully.
func priceRange(win *series.Frame) (float64, bool) {
	minLow, _ := series.MinMax(win.Lows())
	_, maxHigh := series.MinMax(win.Highs())
	if minLow <= 0 {
		return 0, false
	}
	return (maxHigh - minLow) / minLow, true
}

func smaDeviation(value, sma float64) (float64, bool) {
	if math.IsNaN(value) || math.IsNaN(sma) || sma == 0 {
		return 0, false
	}
	return math.Abs(value-sma) / math.Abs(sma), true
}

func lastClose(win *series.Frame) float64 {
	if len(win.Bars) == 0 {
		return math.NaN()
	}
	return win.Bars[len(win.Bars)-1].Close
}

func lastValid(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
