package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var analysisDate = time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultConfig())
	require.NoError(t, err)
	return s
}

func setNested(b Bundle, path string, v any) {
	keys := strings.Split(path, ".")
	current := map[string]any(b)
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = v
}

// maxBundle fills every table metric with its max value and trips every
// bonus flag.
func maxBundle(symbol string) Bundle {
	b := Bundle{"symbol": symbol}
	for prefix, table := range map[string][]Metric{
		"fundamental_data": FundamentalMetrics,
		"technical_data":   TechnicalMetrics,
		"qualitative_data": QualitativeMetrics,
	} {
		for _, m := range table {
			setNested(b, prefix+"."+m.Path, m.Max)
		}
	}
	setNested(b, "catalysts.game_changing", true)
	setNested(b, "technical_data.magic_line_support", true)
	setNested(b, "technical_data.exceptional_accumulation", true)
	return b
}

func midBundle() Bundle {
	b := Bundle{"symbol": "MID"}
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"fundamental_data.growth_metrics.quarterly.sequential_earnings_growth", 50.0},
		{"fundamental_data.growth_metrics.annual.sustainable_earnings_growth", 100.0},
		{"fundamental_data.growth_metrics.quarterly.upcoming_comparisons", 0.0},
		{"fundamental_data.financial_ratios.peRatioTTM", 5.0},
		{"fundamental_data.financial_ratios.debtToEquityTTM", 0.75},
		{"fundamental_data.financial_ratios.debtServiceCoverage", 3.0},
		{"fundamental_data.financial_ratios.workingCapitalTrend", 100.0},
		{"fundamental_data.financial_ratios.cashFlowToDebtRatio", 2.0},
		{"fundamental_data.growth_metrics.backlog_growth", 50.0},
		{"fundamental_data.market_data.float", 6e6},
		{"fundamental_data.market_data.marketCap", 127.5e6},
		{"fundamental_data.management_metrics.conservative_style", 1.0},

		{"technical_data.base_pattern.development", 1.0},
		{"technical_data.base_pattern.volume_pattern", 1.0},
		{"technical_data.base_pattern.price_tightness", 1.0},
		{"technical_data.breakout.volume_expansion", 5.0},
		{"technical_data.breakout.ma30_crossover", 1.0},
		{"technical_data.breakout.angle", 45.0},
		{"technical_data.market_context.relative_strength_rank", 95.0},
		{"technical_data.market_context.industry_rank", 100.0},
		{"technical_data.market_context.accumulation", 0.5},

		{"qualitative_data.theme.uniqueness", 1.0},
		{"qualitative_data.theme.competition", 0.5},
		{"qualitative_data.theme.market_appreciation", 1.0},
		{"qualitative_data.insider.executive_buying", 1.0},
		{"qualitative_data.insider.purchase_size", 1.0},
		{"qualitative_data.insider.timing", 0.0},
		{"qualitative_data.management.execution", 1.0},
		{"qualitative_data.management.communication", 1.0},
		{"qualitative_data.management.dilution", 0.5},

		{"catalysts.game_changing", true},
		{"technical_data.magic_line_support", true},
		{"recent_offering", true},
	} {
		setNested(b, kv.path, kv.value)
	}
	return b
}

func TestScore_ComponentSums(t *testing.T) {
	s := newScorer(t)
	score := s.Score(midBundle(), analysisDate)

	assert.Equal(t, "MID", score.Symbol)
	assert.InDelta(t, 30.0, score.FundamentalScore, 1e-9)
	assert.InDelta(t, 21.5, score.TechnicalScore, 1e-9)
	assert.InDelta(t, 24.0, score.QualitativeScore, 1e-9)

	// Bonuses 2+2+3+2, penalty -5.
	assert.InDelta(t, 4.0, score.BonusPoints, 1e-9)
	assert.InDelta(t, 79.5, score.TotalScore, 1e-9)
	assert.InDelta(t, 30*0.45+21.5*0.25+24*0.30+4, score.TotalScoreWeighted, 1e-9)
	assert.Equal(t, analysisDate, score.AnalysisDate)
}

func TestScore_ThresholdGate(t *testing.T) {
	s := newScorer(t)

	mid := s.Score(midBundle(), analysisDate)
	// Fundamental 30 misses the 35 floor.
	assert.False(t, mid.PassedThreshold)

	max := s.Score(maxBundle("MAX"), analysisDate)
	assert.InDelta(t, 45.0, max.FundamentalScore, 1e-9)
	assert.InDelta(t, 25.0, max.TechnicalScore, 1e-9)
	assert.InDelta(t, 30.0, max.QualitativeScore, 1e-9)
	assert.True(t, max.PassedThreshold)
}

func TestScore_BonusCappedAtTen(t *testing.T) {
	s := newScorer(t)
	score := s.Score(maxBundle("MAX"), analysisDate)
	// All five bonus flags fire: 2+2+3+2+1 hits the cap exactly.
	assert.InDelta(t, 10.0, score.BonusPoints, 1e-9)
}

func TestScore_PenaltyCappedAtMinusTen(t *testing.T) {
	s := newScorer(t)
	b := Bundle{"symbol": "PEN"}
	setNested(b, "analyst_coverage", 5.0)
	setNested(b, "has_options", true)
	setNested(b, "recent_offering", true)
	setNested(b, "media_coverage.is_excessive", true)
	setNested(b, "market_sentiment.is_overcrowded", true)

	score := s.Score(b, analysisDate)
	assert.InDelta(t, -10.0, score.BonusPoints, 1e-9)
}

func TestScore_ValuesClampToRange(t *testing.T) {
	s := newScorer(t)
	b := Bundle{"symbol": "CLMP"}
	// Far beyond max clamps to full weight; below min clamps to zero.
	setNested(b, "fundamental_data.growth_metrics.quarterly.sequential_earnings_growth", 10000.0)
	setNested(b, "fundamental_data.financial_ratios.debtServiceCoverage", -3.0)

	score := s.Score(b, analysisDate)
	// Bonus flags for missing coverage/options still fire.
	assert.InDelta(t, 6.0, score.FundamentalScore, 1e-9)
}

func TestScore_MissingMetricsAreSkipped(t *testing.T) {
	s := newScorer(t)
	b := Bundle{"symbol": "BARE"}
	score := s.Score(b, analysisDate)

	assert.Zero(t, score.FundamentalScore)
	assert.Zero(t, score.TechnicalScore)
	assert.Zero(t, score.QualitativeScore)
	assert.False(t, score.PassedThreshold)
}

func TestScore_MissingSymbolYieldsEmptyScore(t *testing.T) {
	s := newScorer(t)
	score := s.Score(Bundle{}, analysisDate)

	assert.Equal(t, "UNKNOWN", score.Symbol)
	assert.Zero(t, score.TotalScore)
	assert.False(t, score.PassedThreshold)
	assert.Empty(t, score.Catalysts)
}

func TestScore_CatalystsAndRisks(t *testing.T) {
	s := newScorer(t)
	b := Bundle{"symbol": "CAT"}
	setNested(b, "catalysts.list", []any{"fda approval", 42, "new contract"})
	setNested(b, "risks.list", []string{"customer concentration"})

	score := s.Score(b, analysisDate)
	assert.Equal(t, []string{"fda approval", "new contract"}, score.Catalysts)
	assert.Equal(t, []string{"customer concentration"}, score.Risks)
}

func TestScore_KeyMetrics(t *testing.T) {
	s := newScorer(t)
	b := midBundle()
	setNested(b, "fundamental_data.growth_metrics.revenue_growth", 35.0)
	setNested(b, "technical_data.volume_trend", "declining")

	score := s.Score(b, analysisDate)
	assert.Equal(t, 35.0, score.KeyMetrics["revenue_growth"])
	assert.Equal(t, "declining", score.KeyMetrics["volume_trend"])
	assert.Equal(t, 0.75, score.KeyMetrics["debt_to_equity"])
	assert.Equal(t, 95.0, score.KeyMetrics["relative_strength"])
}

func TestScore_PiotroskiInKeyMetrics(t *testing.T) {
	s := newScorer(t)
	b := Bundle{"symbol": "ACME"}
	setNested(b, "fundamental_data.financials.netIncome", 5.0)
	setNested(b, "fundamental_data.financials.operatingCashFlow", 8.0)
	setNested(b, "fundamental_data.financials.currentRatio", 2.0)
	setNested(b, "fundamental_data.financials.currentRatio_prior", 1.5)

	score := s.Score(b, analysisDate)
	// netIncome, cash flow, accruals, liquidity, and flat share count pass.
	assert.Equal(t, 5, score.KeyMetrics["piotroski_score"])
}

func TestScore_NoFinancialsNoPiotroski(t *testing.T) {
	s := newScorer(t)

	score := s.Score(midBundle(), analysisDate)
	_, ok := score.KeyMetrics["piotroski_score"]
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.5, normalize(50, 0, 100))
	assert.Equal(t, 0.0, normalize(-1, 0, 100))
	assert.Equal(t, 1.0, normalize(200, 0, 100))
	// Degenerate range acts as a step function.
	assert.Equal(t, 1.0, normalize(5, 5, 5))
	assert.Equal(t, 0.0, normalize(4, 5, 5))
}

func TestNewScorer_RejectsBadWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FundamentalWeight = 60
	_, err := NewScorer(cfg)
	assert.Error(t, err)
}

func TestTableWeightTotals(t *testing.T) {
	total := func(table []Metric) float64 {
		sum := 0.0
		for _, m := range table {
			sum += m.Weight
		}
		return sum
	}
	assert.Equal(t, 45.0, total(FundamentalMetrics))
	assert.Equal(t, 25.0, total(TechnicalMetrics))
	assert.Equal(t, 30.0, total(QualitativeMetrics))
}
