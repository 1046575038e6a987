package scoring

// PiotroskiScore computes the nine-point F-Score from a flat financials map
// holding current and "_prior" values. Missing entries read as zero, which
// fails the corresponding criterion.
func PiotroskiScore(financials map[string]float64) int {
	score := 0

	// Profitability.
	if financials["netIncome"] > 0 {
		score++
	}
	if financials["operatingCashFlow"] > 0 {
		score++
	}
	if financials["roa"] > financials["roa_prior"] {
		score++
	}
	if financials["operatingCashFlow"] > financials["netIncome"] {
		score++
	}

	// Leverage and liquidity.
	if financials["longTermDebt"] < financials["longTermDebt_prior"] {
		score++
	}
	if financials["currentRatio"] > financials["currentRatio_prior"] {
		score++
	}
	if financials["shares"] <= financials["shares_prior"] {
		score++
	}

	// Operating efficiency.
	if financials["grossMargin"] > financials["grossMargin_prior"] {
		score++
	}
	if financials["assetTurnover"] > financials["assetTurnover_prior"] {
		score++
	}

	return score
}
