// Package scoring implements the multi-factor stock scorer: declarative
// metric tables normalized into fundamental, technical and qualitative
// components, plus bonus and penalty adjustments and threshold gating.
package scoring

import (
	"fmt"
	"strings"
	"time"
)

// Bundle is one symbol's materialized analysis document: nested maps keyed
// by the dotted paths the metric tables reference.
type Bundle map[string]any

// StockScore is the scored result for one symbol.
type StockScore struct {
	Symbol string `json:"symbol"`

	// TotalScore is the additive composite: component points plus the
	// bonus/penalty adjustment.
	TotalScore float64 `json:"total_score"`
	// TotalScoreWeighted is the alternate weighted composite, where each
	// component contributes its bucket percentage.
	TotalScoreWeighted float64 `json:"total_score_weighted"`

	FundamentalScore float64 `json:"fundamental_score"`
	TechnicalScore   float64 `json:"technical_score"`
	QualitativeScore float64 `json:"qualitative_score"`
	// BonusPoints is the net adjustment, bonuses plus penalties.
	BonusPoints float64 `json:"bonus_points"`

	AnalysisDate time.Time      `json:"analysis_date"`
	KeyMetrics   map[string]any `json:"key_metrics"`
	Catalysts    []string       `json:"catalysts"`
	Risks        []string       `json:"risks"`

	// PassedThreshold gates on the component minimums of the additive path.
	PassedThreshold bool `json:"passed_threshold"`
	// PassedWeighted gates TotalScoreWeighted against the total minimum.
	PassedWeighted bool `json:"passed_weighted"`
}

// Config holds the scorer thresholds and bucket weights.
type Config struct {
	// FundamentalWeight, TechnicalWeight and QualitativeWeight are the bucket
	// percentages of the weighted composite (defaults 45/25/30).
	FundamentalWeight float64 `yaml:"fundamental_weight"`
	TechnicalWeight   float64 `yaml:"technical_weight"`
	QualitativeWeight float64 `yaml:"qualitative_weight"`

	// MinTotalScore gates the weighted composite (default 70).
	MinTotalScore float64 `yaml:"min_total_score"`
	// MinFundamentalScore and MinTechnicalScore gate the additive path
	// (defaults 35 and 20).
	MinFundamentalScore float64 `yaml:"min_fundamental_score"`
	MinTechnicalScore   float64 `yaml:"min_technical_score"`

	// BonusCap and PenaltyCap bound the adjustment (defaults 10 and -10).
	BonusCap   float64 `yaml:"bonus_cap"`
	PenaltyCap float64 `yaml:"penalty_cap"`
}

// DefaultConfig returns the methodology thresholds.
func DefaultConfig() Config {
	return Config{
		FundamentalWeight:   45,
		TechnicalWeight:     25,
		QualitativeWeight:   30,
		MinTotalScore:       70,
		MinFundamentalScore: 35,
		MinTechnicalScore:   20,
		BonusCap:            10,
		PenaltyCap:          -10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FundamentalWeight <= 0 {
		c.FundamentalWeight = d.FundamentalWeight
	}
	if c.TechnicalWeight <= 0 {
		c.TechnicalWeight = d.TechnicalWeight
	}
	if c.QualitativeWeight <= 0 {
		c.QualitativeWeight = d.QualitativeWeight
	}
	if c.MinTotalScore <= 0 {
		c.MinTotalScore = d.MinTotalScore
	}
	if c.MinFundamentalScore <= 0 {
		c.MinFundamentalScore = d.MinFundamentalScore
	}
	if c.MinTechnicalScore <= 0 {
		c.MinTechnicalScore = d.MinTechnicalScore
	}
	if c.BonusCap <= 0 {
		c.BonusCap = d.BonusCap
	}
	if c.PenaltyCap >= 0 {
		c.PenaltyCap = d.PenaltyCap
	}
	return c
}

// Validate rejects weight settings that do not describe percentages.
func (c Config) Validate() error {
	c = c.withDefaults()
	if sum := c.FundamentalWeight + c.TechnicalWeight + c.QualitativeWeight; sum != 100 {
		return fmt.Errorf("bucket weights sum to %.1f, want 100", sum)
	}
	if c.PenaltyCap > 0 {
		return fmt.Errorf("penalty_cap %.1f must be negative", c.PenaltyCap)
	}
	return nil
}

// Scorer scores symbol bundles against the metric tables. It is stateless
// and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer constructs a scorer; configuration errors are fatal here.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg.withDefaults()}, nil
}

// Score evaluates one symbol's bundle. A bundle without a symbol yields the
// zero score so a batch degrades per symbol instead of aborting.
func (s *Scorer) Score(bundle Bundle, now time.Time) StockScore {
	symbol, _ := bundle["symbol"].(string)
	if symbol == "" {
		return EmptyScore("UNKNOWN", now)
	}

	fundamental := tableScore(subBundle(bundle, "fundamental_data"), FundamentalMetrics)
	technical := tableScore(subBundle(bundle, "technical_data"), TechnicalMetrics)
	qualitative := tableScore(subBundle(bundle, "qualitative_data"), QualitativeMetrics)

	adjustment := s.bonusPoints(bundle) + s.penaltyPoints(bundle)

	metrics := keyMetrics(bundle)
	if fin, ok := financialFloats(bundle, "fundamental_data.financials"); ok {
		metrics["piotroski_score"] = PiotroskiScore(fin)
	}

	weighted := fundamental*s.cfg.FundamentalWeight/100 +
		technical*s.cfg.TechnicalWeight/100 +
		qualitative*s.cfg.QualitativeWeight/100 +
		adjustment

	return StockScore{
		Symbol:             symbol,
		TotalScore:         fundamental + technical + qualitative + adjustment,
		TotalScoreWeighted: weighted,
		FundamentalScore:   fundamental,
		TechnicalScore:     technical,
		QualitativeScore:   qualitative,
		BonusPoints:        adjustment,
		AnalysisDate:       now,
		KeyMetrics:         metrics,
		Catalysts:          stringList(bundle, "catalysts"),
		Risks:              stringList(bundle, "risks"),
		PassedThreshold:    fundamental >= s.cfg.MinFundamentalScore && technical >= s.cfg.MinTechnicalScore,
		PassedWeighted:     weighted >= s.cfg.MinTotalScore,
	}
}

// EmptyScore is the zero result for a symbol that could not be scored.
func EmptyScore(symbol string, now time.Time) StockScore {
	return StockScore{
		Symbol:       symbol,
		AnalysisDate: now,
		KeyMetrics:   map[string]any{},
		Catalysts:    []string{},
		Risks:        []string{},
	}
}

// tableScore sums normalized metric contributions. Missing or non-numeric
// values are skipped and contribute nothing.
func tableScore(data Bundle, table []Metric) float64 {
	score := 0.0
	for _, m := range table {
		value, ok := nestedFloat(data, m.Path)
		if !ok {
			continue
		}
		score += normalize(value, m.Min, m.Max) * m.Weight
	}
	return score
}

// normalize maps value into [0,1] over [min,max]. A degenerate range scores
// full marks at or above it, zero below.
func normalize(value, min, max float64) float64 {
	if min == max {
		if value >= min {
			return 1
		}
		return 0
	}
	n := (value - min) / (max - min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

func (s *Scorer) bonusPoints(bundle Bundle) float64 {
	bonus := 0.0
	// Undiscovered names: no analyst coverage and no listed options.
	if v, ok := nestedFloat(bundle, "analyst_coverage"); !ok || v == 0 {
		bonus += 2
	}
	if !nestedBool(bundle, "has_options") {
		bonus += 2
	}
	if nestedBool(bundle, "catalysts.game_changing") {
		bonus += 3
	}
	if nestedBool(bundle, "technical_data.magic_line_support") {
		bonus += 2
	}
	if nestedBool(bundle, "technical_data.exceptional_accumulation") {
		bonus += 1
	}
	if bonus > s.cfg.BonusCap {
		bonus = s.cfg.BonusCap
	}
	return bonus
}

func (s *Scorer) penaltyPoints(bundle Bundle) float64 {
	penalty := 0.0
	if nestedBool(bundle, "recent_offering") {
		penalty -= 5
	}
	if nestedBool(bundle, "media_coverage.is_excessive") {
		penalty -= 3
	}
	if nestedBool(bundle, "market_sentiment.is_overcrowded") {
		penalty -= 2
	}
	if penalty < s.cfg.PenaltyCap {
		penalty = s.cfg.PenaltyCap
	}
	return penalty
}

func keyMetrics(bundle Bundle) map[string]any {
	out := map[string]any{}
	for name, path := range map[string]string{
		"revenue_growth":    "fundamental_data.growth_metrics.revenue_growth",
		"earnings_growth":   "fundamental_data.growth_metrics.earnings_growth",
		"debt_to_equity":    "fundamental_data.financial_ratios.debtToEquityTTM",
		"relative_strength": "technical_data.market_context.relative_strength_rank",
		"volume_trend":      "technical_data.volume_trend",
	} {
		if v, ok := nestedValue(bundle, path); ok {
			out[name] = v
		}
	}
	return out
}

// financialFloats flattens the numeric entries under path into the flat map
// the F-Score reads. Non-numeric entries are dropped.
func financialFloats(bundle Bundle, path string) (map[string]float64, bool) {
	raw, ok := nestedValue(bundle, path)
	if !ok {
		return nil, false
	}
	m, ok := toMap(raw)
	if !ok {
		return nil, false
	}
	out := make(map[string]float64, len(m))
	for key := range m {
		if v, ok := nestedFloat(m, key); ok {
			out[key] = v
		}
	}
	return out, len(out) > 0
}

func stringList(bundle Bundle, key string) []string {
	raw, ok := nestedValue(bundle, key+".list")
	if !ok {
		return []string{}
	}
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			return strs
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// subBundle returns a nested map, or an empty bundle when absent.
func subBundle(bundle Bundle, key string) Bundle {
	if m, ok := bundle[key].(map[string]any); ok {
		return m
	}
	if b, ok := bundle[key].(Bundle); ok {
		return b
	}
	return Bundle{}
}

// nestedValue walks a dotted path through nested maps.
func nestedValue(data Bundle, path string) (any, bool) {
	var current any = map[string]any(data)
	for _, key := range strings.Split(path, ".") {
		m, ok := toMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Bundle:
		return m, true
	default:
		return nil, false
	}
}

func nestedFloat(data Bundle, path string) (float64, bool) {
	v, ok := nestedValue(data, path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func nestedBool(data Bundle, path string) bool {
	v, ok := nestedValue(data, path)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
