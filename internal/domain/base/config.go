package base

import (
	"fmt"

	"github.com/breakoutlab/superstock/internal/domain/volume"
)

// Config holds the base detection thresholds. Zero values load defaults;
// Validate rejects malformed settings at construction time.
type Config struct {
	// MinBaseLength is the sliding window length in bars; values below 30
	// are raised to 30 (default 30).
	MinBaseLength int `yaml:"min_base_length"`
	// MaxBaseDepth is the maximum window price range relative to the window
	// low (default 0.30).
	MaxBaseDepth float64 `yaml:"max_base_depth"`
	// MinTouches is the minimum support/resistance touch count (default 3).
	MinTouches int `yaml:"min_touches"`
	// MinQuality is the minimum quality score for a window to qualify
	// (default 0.70).
	MinQuality float64 `yaml:"min_quality"`
	// MaxVolumeRatio caps the trailing five-day average volume relative to
	// the window average (default 1.5); above it the window is expanding.
	MaxVolumeRatio float64 `yaml:"max_volume_ratio"`
	// MaxSMADeviation is the maximum relative distance between the last
	// close and its 20-day moving average (default 0.05).
	MaxSMADeviation float64 `yaml:"max_sma_deviation"`

	// IdealTightness, IdealBreakout and IdealConsolidation gate the
	// is_ideal_base flag (defaults 0.7 / 0.7 / 0.6).
	IdealTightness     float64 `yaml:"ideal_tightness"`
	IdealBreakout      float64 `yaml:"ideal_breakout"`
	IdealConsolidation float64 `yaml:"ideal_consolidation"`
}

// DefaultConfig returns the standard base detection parameters.
func DefaultConfig() Config {
	return Config{
		MinBaseLength:      30,
		MaxBaseDepth:       0.30,
		MinTouches:         3,
		MinQuality:         0.70,
		MaxVolumeRatio:     1.5,
		MaxSMADeviation:    0.05,
		IdealTightness:     0.7,
		IdealBreakout:      0.7,
		IdealConsolidation: 0.6,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinBaseLength <= 0 {
		c.MinBaseLength = d.MinBaseLength
	}
	if c.MinBaseLength < 30 {
		c.MinBaseLength = 30
	}
	if c.MaxBaseDepth <= 0 {
		c.MaxBaseDepth = d.MaxBaseDepth
	}
	if c.MinTouches <= 0 {
		c.MinTouches = d.MinTouches
	}
	if c.MinQuality <= 0 {
		c.MinQuality = d.MinQuality
	}
	if c.MaxVolumeRatio <= 0 {
		c.MaxVolumeRatio = d.MaxVolumeRatio
	}
	if c.MaxSMADeviation <= 0 {
		c.MaxSMADeviation = d.MaxSMADeviation
	}
	if c.IdealTightness <= 0 {
		c.IdealTightness = d.IdealTightness
	}
	if c.IdealBreakout <= 0 {
		c.IdealBreakout = d.IdealBreakout
	}
	if c.IdealConsolidation <= 0 {
		c.IdealConsolidation = d.IdealConsolidation
	}
	return c
}

// Validate rejects settings that cannot drive a sane search. Configuration
// errors are fatal at construction, never per symbol.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.MaxBaseDepth >= 1 {
		return fmt.Errorf("max_base_depth %.2f must be below 1", c.MaxBaseDepth)
	}
	if c.MinQuality > 1 {
		return fmt.Errorf("min_quality %.2f must be at most 1", c.MinQuality)
	}
	if c.MaxSMADeviation >= 1 {
		return fmt.Errorf("max_sma_deviation %.2f must be below 1", c.MaxSMADeviation)
	}
	return nil
}

// Weights drives the breakout potential composite. The fixed-term weights
// plus the largest volume regime weight sum to 100.
type Weights struct {
	PriceTightness float64                   `yaml:"price_tightness"`
	Consolidation  float64                   `yaml:"consolidation"`
	Depth          float64                   `yaml:"depth"`
	VolumeRegime   map[volume.Regime]float64 `yaml:"volume_regime"`
}

// DefaultWeights returns the standard breakout weighting.
func DefaultWeights() Weights {
	return Weights{
		PriceTightness: 30,
		Consolidation:  25,
		Depth:          20,
		VolumeRegime: map[volume.Regime]float64{
			volume.Contraction: 25,
			volume.Expansion:   15,
			volume.Neutral:     5,
		},
	}
}

func (w Weights) withDefaults() Weights {
	d := DefaultWeights()
	if w.PriceTightness <= 0 {
		w.PriceTightness = d.PriceTightness
	}
	if w.Consolidation <= 0 {
		w.Consolidation = d.Consolidation
	}
	if w.Depth <= 0 {
		w.Depth = d.Depth
	}
	if len(w.VolumeRegime) == 0 {
		w.VolumeRegime = d.VolumeRegime
	}
	return w
}

// Validate rejects negative or absurd weight settings.
func (w Weights) Validate() error {
	w = w.withDefaults()
	for name, v := range map[string]float64{
		"price_tightness": w.PriceTightness,
		"consolidation":   w.Consolidation,
		"depth":           w.Depth,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("weight %s=%.1f outside [0,100]", name, v)
		}
	}
	for regime, v := range w.VolumeRegime {
		if v < 0 || v > 100 {
			return fmt.Errorf("volume regime weight %s=%.1f outside [0,100]", regime, v)
		}
	}
	return nil
}
