// Package market builds the read-only market context a scoring batch ranks
// against: per-sector averages and per-metric distribution statistics over a
// snapshot of quotes.
package market

import (
	"math"
	"sort"
	"time"
)

// Metric names a quote field with a tracked distribution.
type Metric string

const (
	MetricVolume    Metric = "volume"
	MetricMarketCap Metric = "marketCap"
	MetricPERatio   Metric = "peRatio"
	MetricPrice     Metric = "price"
)

// Metrics lists every tracked metric.
var Metrics = []Metric{MetricVolume, MetricMarketCap, MetricPERatio, MetricPrice}

// Quote is one symbol's snapshot used to build the context.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Sector    string  `json:"sector"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	MarketCap float64 `json:"marketCap"`
	PERatio   float64 `json:"peRatio"`
}

// SectorStats aggregates the quotes of one sector. The P/E average covers
// positive ratios only, so loss-making names do not drag it negative.
type SectorStats struct {
	Count        int     `json:"count"`
	AvgVolume    float64 `json:"avg_volume"`
	AvgMarketCap float64 `json:"avg_market_cap"`
	AvgPERatio   float64 `json:"avg_pe_ratio"`
}

// MetricStats describes one metric's distribution across the snapshot.
// Only positive observations participate.
type MetricStats struct {
	Count       int             `json:"count"`
	Mean        float64         `json:"mean"`
	Median      float64         `json:"median"`
	Std         float64         `json:"std"`
	Percentiles map[int]float64 `json:"percentiles"`

	sorted []float64
}

// Context is an immutable snapshot of market-wide statistics. Build it once
// per batch and share it across scoring workers.
type Context struct {
	BuiltAt time.Time              `json:"built_at"`
	Symbols int                    `json:"symbols"`
	Sectors map[string]SectorStats `json:"sectors"`

	metrics map[Metric]MetricStats
}

// Build aggregates the quote snapshot into a context. Quotes with an empty
// sector are grouped under "Unknown".
func Build(quotes []Quote, now time.Time) *Context {
	ctx := &Context{
		BuiltAt: now,
		Symbols: len(quotes),
		Sectors: map[string]SectorStats{},
		metrics: map[Metric]MetricStats{},
	}

	type sectorAcc struct {
		count        int
		volume, mcap float64
		peSum        float64
		pePositives  int
	}
	sectors := map[string]*sectorAcc{}
	values := map[Metric][]float64{}

	for _, q := range quotes {
		sector := q.Sector
		if sector == "" {
			sector = "Unknown"
		}
		acc, ok := sectors[sector]
		if !ok {
			acc = &sectorAcc{}
			sectors[sector] = acc
		}
		acc.count++
		acc.volume += q.Volume
		acc.mcap += q.MarketCap
		if q.PERatio > 0 {
			acc.peSum += q.PERatio
			acc.pePositives++
		}

		for m, v := range map[Metric]float64{
			MetricVolume:    q.Volume,
			MetricMarketCap: q.MarketCap,
			MetricPERatio:   q.PERatio,
			MetricPrice:     q.Price,
		} {
			if v > 0 && !math.IsInf(v, 0) {
				values[m] = append(values[m], v)
			}
		}
	}

	for name, acc := range sectors {
		s := SectorStats{
			Count:        acc.count,
			AvgVolume:    acc.volume / float64(acc.count),
			AvgMarketCap: acc.mcap / float64(acc.count),
		}
		if acc.pePositives > 0 {
			s.AvgPERatio = acc.peSum / float64(acc.pePositives)
		}
		ctx.Sectors[name] = s
	}

	for _, m := range Metrics {
		ctx.metrics[m] = summarize(values[m])
	}
	return ctx
}

// Stats returns the distribution statistics for a metric; ok is false when
// the snapshot held no positive observation of it.
func (c *Context) Stats(m Metric) (MetricStats, bool) {
	s, ok := c.metrics[m]
	return s, ok && s.Count > 0
}

// Sector returns one sector's aggregates.
func (c *Context) Sector(name string) (SectorStats, bool) {
	s, ok := c.Sectors[name]
	return s, ok
}

// PercentileRank places a value within a metric's snapshot distribution,
// returning a rank in [0,100]. Ties take the midpoint of their run, so a
// batch of identical values ranks each of them at 50. An empty distribution
// ranks everything at a neutral 50.
func (c *Context) PercentileRank(m Metric, value float64) float64 {
	s, ok := c.Stats(m)
	if !ok {
		return 50
	}
	below := sort.SearchFloat64s(s.sorted, value)
	belowOrEqual := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i] > value })
	return (float64(below) + float64(belowOrEqual)) / 2 / float64(len(s.sorted)) * 100
}

func summarize(values []float64) MetricStats {
	s := MetricStats{Count: len(values), Percentiles: map[int]float64{}}
	if len(values) == 0 {
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s.sorted = sorted

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	s.Mean = sum / float64(len(sorted))

	var ss float64
	for _, v := range sorted {
		d := v - s.Mean
		ss += d * d
	}
	if len(sorted) > 1 {
		s.Std = math.Sqrt(ss / float64(len(sorted)-1))
	}

	s.Median = interpolate(sorted, 50)
	for _, p := range []int{25, 50, 75, 90} {
		s.Percentiles[p] = interpolate(sorted, float64(p))
	}
	return s
}

// interpolate computes a linear-interpolation percentile over sorted values.
func interpolate(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
