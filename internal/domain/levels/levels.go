// Package levels identifies support and resistance price levels inside a
// price window by clustering high/low observations around density peaks.
package levels

import (
	"math"

	"github.com/breakoutlab/superstock/internal/domain/series"
)

// Kind classifies a price level.
type Kind string

const (
	Support    Kind = "support"
	Resistance Kind = "resistance"
)

// Config controls clustering behavior.
type Config struct {
	// Threshold is the relative distance within which an observation counts
	// as a touch of a level (default 0.02).
	Threshold float64
	// MinTouches is the minimum cluster size for a qualifying level (default 3).
	MinTouches int
	// Buckets is the histogram resolution for density estimation (default 100).
	Buckets int
	// MinSeparation is the minimum bucket distance between density peaks
	// (default 5), suppressing adjacent duplicates.
	MinSeparation int
}

// DefaultConfig returns the standard clustering parameters.
func DefaultConfig() Config {
	return Config{Threshold: 0.02, MinTouches: 3, Buckets: 100, MinSeparation: 5}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.MinTouches <= 0 {
		c.MinTouches = d.MinTouches
	}
	if c.Buckets <= 0 {
		c.Buckets = d.Buckets
	}
	if c.MinSeparation <= 0 {
		c.MinSeparation = d.MinSeparation
	}
	return c
}

// Level is a clustered support or resistance price.
type Level struct {
	Price   float64 `json:"price"`
	Touches int     `json:"touches"`
	Kind    Kind    `json:"kind"`
}

// Result holds the qualifying levels of a window plus the derived
// support/resistance boundary prices.
type Result struct {
	Levels     []Level `json:"levels"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	// Fallback is true when clustering produced no qualifying level on one
	// side and the raw window extreme was substituted.
	Fallback bool `json:"fallback"`
}

// Find clusters the window's highs and lows into discrete price levels.
//
// Density is estimated with a smoothed histogram over the combined high/low
// observations (a deliberate stand-in for kernel density estimation); local
// density maxima with sufficient separation become level candidates, and a
// candidate qualifies when at least MinTouches observations lie within
// Threshold of its price. A level is resistance when more closes sit below
// it than above, support otherwise.
func Find(win series.Series, cfg Config) Result {
	cfg = cfg.withDefaults()

	highs := win.Highs()
	lows := win.Lows()
	closes := win.Closes()
	obs := append(append([]float64{}, highs...), lows...)

	lowPx, highPx := series.MinMax(obs)
	res := Result{}

	if len(obs) == 0 {
		return res
	}
	if highPx == lowPx {
		// Degenerate flat window: the single price is both boundaries.
		res.Levels = []Level{{Price: lowPx, Touches: len(obs), Kind: Support}}
		res.Support, res.Resistance = lowPx, highPx
		return res
	}

	density := histogram(obs, lowPx, highPx, cfg.Buckets)
	smoothed := smooth(density)
	peaks := localMaxima(smoothed, cfg.MinSeparation)

	bucketWidth := (highPx - lowPx) / float64(cfg.Buckets)
	for _, p := range peaks {
		price := lowPx + (float64(p)+0.5)*bucketWidth
		members := within(obs, price, cfg.Threshold)
		if len(members) < cfg.MinTouches {
			continue
		}
		level := Level{
			Price:   series.Mean(members),
			Touches: len(members),
			Kind:    classify(closes, price),
		}
		res.Levels = append(res.Levels, level)
	}

	res.Support, res.Resistance, res.Fallback = boundaries(res.Levels, lows, highs)
	return res
}

// CountTouches returns the total number of high/low observations that touch
// any qualifying density peak; the base finder gates on this count.
func CountTouches(win series.Series, cfg Config) int {
	total := 0
	for _, l := range Find(win, cfg).Levels {
		total += l.Touches
	}
	return total
}

func histogram(obs []float64, lo, hi float64, buckets int) []float64 {
	counts := make([]float64, buckets)
	span := hi - lo
	for _, v := range obs {
		idx := int(float64(buckets) * (v - lo) / span)
		if idx >= buckets {
			idx = buckets - 1
		}
		counts[idx]++
	}
	return counts
}

// smooth applies a centered three-bucket moving average, a cheap smoothing
// kernel that keeps neighboring single-bucket spikes from reading as
// separate peaks.
func smooth(counts []float64) []float64 {
	out := make([]float64, len(counts))
	for i := range counts {
		sum, n := counts[i], 1.0
		if i > 0 {
			sum += counts[i-1]
			n++
		}
		if i < len(counts)-1 {
			sum += counts[i+1]
			n++
		}
		out[i] = sum / n
	}
	return out
}

// localMaxima scans for local density peaks at least minSep buckets apart;
// when two peaks collide, the denser one wins. Edge buckets count as peaks
// so clusters at the window extremes are not lost.
func localMaxima(density []float64, minSep int) []int {
	at := func(i int) float64 {
		if i < 0 || i >= len(density) {
			return -1
		}
		return density[i]
	}
	var peaks []int
	for i := 0; i < len(density); i++ {
		if density[i] <= 0 || density[i] < at(i-1) || density[i] < at(i+1) {
			continue
		}
		// Plateau handling: only the left edge of a flat top counts.
		if i > 0 && density[i] == density[i-1] {
			continue
		}
		if len(peaks) > 0 && i-peaks[len(peaks)-1] < minSep {
			if density[i] > density[peaks[len(peaks)-1]] {
				peaks[len(peaks)-1] = i
			}
			continue
		}
		peaks = append(peaks, i)
	}
	return peaks
}

func within(obs []float64, price, threshold float64) []float64 {
	var members []float64
	for _, v := range obs {
		if price != 0 && math.Abs(v-price)/price <= threshold {
			members = append(members, v)
		}
	}
	return members
}

func classify(closes []float64, price float64) Kind {
	below, above := 0, 0
	for _, c := range closes {
		if c < price {
			below++
		} else if c > price {
			above++
		}
	}
	if below > above {
		return Resistance
	}
	return Support
}

// boundaries derives the support/resistance prices: minimum support-cluster
// mean and maximum resistance-cluster mean, with raw window extremes filling
// in for any side that produced no qualifying level.
func boundaries(lvls []Level, lows, highs []float64) (support, resistance float64, fallback bool) {
	support, resistance = math.NaN(), math.NaN()
	for _, l := range lvls {
		switch l.Kind {
		case Support:
			if math.IsNaN(support) || l.Price < support {
				support = l.Price
			}
		case Resistance:
			if math.IsNaN(resistance) || l.Price > resistance {
				resistance = l.Price
			}
		}
	}
	if math.IsNaN(support) {
		support, _ = series.MinMax(lows)
		fallback = true
	}
	if math.IsNaN(resistance) {
		_, resistance = series.MinMax(highs)
		fallback = true
	}
	return support, resistance, fallback
}
