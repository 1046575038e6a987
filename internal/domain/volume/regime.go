// Package volume classifies the volume regime of a price window.
package volume

import (
	"github.com/breakoutlab/superstock/internal/domain/series"
)

// Regime labels the volume trend over a window.
type Regime string

const (
	Contraction Regime = "contraction"
	Expansion   Regime = "expansion"
	Neutral     Regime = "neutral"
)

// Config holds the classification thresholds.
type Config struct {
	// ContractionRatio is the maximum recent/early ratio (mean and std) for
	// a contraction read (default 0.5).
	ContractionRatio float64
	// ExpansionRatio is the minimum recent/early mean ratio for an expansion
	// read (default 2.0).
	ExpansionRatio float64
	// MinBars is the minimum window size; smaller windows classify as
	// neutral (default 20).
	MinBars int
}

// DefaultConfig returns the standard regime thresholds.
func DefaultConfig() Config {
	return Config{ContractionRatio: 0.5, ExpansionRatio: 2.0, MinBars: 20}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ContractionRatio <= 0 {
		c.ContractionRatio = d.ContractionRatio
	}
	if c.ExpansionRatio <= 0 {
		c.ExpansionRatio = d.ExpansionRatio
	}
	if c.MinBars <= 0 {
		c.MinBars = d.MinBars
	}
	return c
}

// Classify splits the volumes in half and compares the recent half against
// the early half. Contraction demands both a collapsed mean and a collapsed
// standard deviation; expansion only an inflated mean. Anything else, or a
// window below MinBars, reads neutral.
func Classify(volumes []float64, cfg Config) Regime {
	cfg = cfg.withDefaults()
	if len(volumes) < cfg.MinBars {
		return Neutral
	}

	split := len(volumes) / 2
	early, recent := volumes[:split], volumes[split:]

	earlyMean := series.Mean(early)
	recentMean := series.Mean(recent)
	earlyStd := series.StdDev(early)
	recentStd := series.StdDev(recent)

	// A zero early mean makes the ratios meaningless; stay neutral.
	if earlyMean == 0 {
		return Neutral
	}

	if recentMean <= earlyMean*cfg.ContractionRatio && recentStd <= earlyStd*cfg.ContractionRatio {
		return Contraction
	}
	if recentMean >= earlyMean*cfg.ExpansionRatio {
		return Expansion
	}
	return Neutral
}
