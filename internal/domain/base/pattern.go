// Package base locates consolidation ("base") windows in an OHLCV series
// and scores their breakout potential.
package base

import (
	"time"

	"github.com/breakoutlab/superstock/internal/domain/series"
	"github.com/breakoutlab/superstock/internal/domain/volume"
)

// Pattern is the immutable result of analyzing one symbol's series for a
// base formation. A fresh value is produced per analysis call; invalid
// inputs and fruitless searches yield the sentinel from InvalidPattern
// rather than an error.
type Pattern struct {
	Symbol      string `json:"symbol"`
	IsValid     bool   `json:"is_valid"`
	IsIdealBase bool   `json:"is_ideal_base"`

	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end,omitempty"`
	Length int       `json:"length"`

	// Depth is the window's high-low span relative to its minimum low.
	Depth float64 `json:"depth"`

	VolumePattern   volume.Regime `json:"volume_pattern"`
	PriceTightness  float64       `json:"price_tightness"`
	SupportLevel    float64       `json:"support_level"`
	ResistanceLevel float64       `json:"resistance_level"`

	ConsolidationScore float64 `json:"consolidation_score"`
	BreakoutPotential  float64 `json:"breakout_potential"`
	QualityScore       float64 `json:"quality_score"`

	// CandlestickPatterns maps pattern name to signal strength for the
	// bullish reversal patterns checked on the window's final bars.
	CandlestickPatterns map[string]float64 `json:"candlestick_patterns"`
}

// InvalidPattern returns the sentinel pattern for failed validation or an
// empty search: neutral mid-scale scores so downstream weighting treats the
// symbol as unremarkable rather than extreme.
func InvalidPattern(symbol string) Pattern {
	return Pattern{
		Symbol:              symbol,
		IsValid:             false,
		IsIdealBase:         false,
		VolumePattern:       volume.Neutral,
		PriceTightness:      0.5,
		ConsolidationScore:  0.5,
		BreakoutPotential:   0.5,
		CandlestickPatterns: map[string]float64{},
	}
}

// Analyzer is the interface pattern analyzers expose to the pipeline.
type Analyzer interface {
	// Analyze inspects a symbol's series and returns its base pattern.
	// It never returns an error: bad input produces an invalid pattern.
	Analyze(s series.Series) Pattern
	// Validate reports whether a returned pattern satisfies the analyzer's
	// structural requirements (dimensions and depth).
	Validate(p Pattern) bool
}
