package scoring

// Metric is one entry of a declarative scoring table: a dotted path into the
// symbol's data bundle, its point weight, and the normalization range.
type Metric struct {
	Path   string
	Weight float64
	Min    float64
	Max    float64
}

// FundamentalMetrics carries 45 points: earnings quality 18, financial
// health 17, company structure 10.
var FundamentalMetrics = []Metric{
	{"growth_metrics.quarterly.sequential_earnings_growth", 6, 0, 100},
	{"growth_metrics.annual.sustainable_earnings_growth", 6, 0, 100},
	{"growth_metrics.quarterly.upcoming_comparisons", 4, -100, 100},
	{"growth_metrics.operating_leverage", 2, 0, 100},

	{"financial_ratios.peRatioTTM", 4, 0, 10},
	{"financial_ratios.debtToEquityTTM", 3, 0, 0.75},
	{"financial_ratios.debtServiceCoverage", 3, 1, 5},
	{"financial_ratios.workingCapitalTrend", 3, 0, 100},
	{"financial_ratios.cashFlowToDebtRatio", 2, 0.5, 2},
	{"growth_metrics.backlog_growth", 2, 0, 100},

	{"market_data.float", 4, 4e6, 8e6},
	{"market_data.marketCap", 3, 5e6, 250e6},
	{"management_metrics.conservative_style", 3, 0, 1},
}

// TechnicalMetrics carries 25 points: base formation 10, breakout quality 8,
// relative strength 7.
var TechnicalMetrics = []Metric{
	{"base_pattern.development", 4, 0, 1},
	{"base_pattern.volume_pattern", 3, 0, 1},
	{"base_pattern.price_tightness", 3, 0, 1},

	{"breakout.volume_expansion", 3, 1.5, 5},
	{"breakout.ma30_crossover", 3, 0, 1},
	{"breakout.angle", 2, 30, 60},

	{"market_context.relative_strength_rank", 3, 90, 100},
	{"market_context.industry_rank", 2, 90, 100},
	{"market_context.accumulation", 2, 0, 1},
}

// QualitativeMetrics carries 30 points: theme 12, insider activity 10,
// management quality 8.
var QualitativeMetrics = []Metric{
	{"theme.uniqueness", 5, 0, 1},
	{"theme.competition", 4, 0, 1},
	{"theme.market_appreciation", 3, 0, 1},

	{"insider.executive_buying", 4, 0, 1},
	{"insider.purchase_size", 3, 0, 1},
	{"insider.timing", 3, 0, 1},

	{"management.execution", 3, 0, 1},
	{"management.communication", 3, 0, 1},
	{"management.dilution", 2, 0, 1},
}
