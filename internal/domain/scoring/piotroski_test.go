package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPiotroskiScore_AllCriteriaPass(t *testing.T) {
	financials := map[string]float64{
		"netIncome":           10e6,
		"operatingCashFlow":   12e6,
		"roa":                 0.08,
		"roa_prior":           0.05,
		"longTermDebt":        20e6,
		"longTermDebt_prior":  25e6,
		"currentRatio":        2.1,
		"currentRatio_prior":  1.8,
		"shares":              10e6,
		"shares_prior":        10e6,
		"grossMargin":         0.42,
		"grossMargin_prior":   0.40,
		"assetTurnover":       1.3,
		"assetTurnover_prior": 1.1,
	}
	assert.Equal(t, 9, PiotroskiScore(financials))
}

func TestPiotroskiScore_Dilution(t *testing.T) {
	financials := map[string]float64{
		"netIncome":         1e6,
		"operatingCashFlow": 2e6,
		"shares":            12e6,
		"shares_prior":      10e6,
	}
	// Positive income, positive cash flow, cash flow above income: 3 points.
	// Dilution forfeits the share count point; flat priors fail the rest.
	assert.Equal(t, 3, PiotroskiScore(financials))
}

func TestPiotroskiScore_EmptyFinancials(t *testing.T) {
	// All-zero comparisons: only the no-dilution criterion holds.
	assert.Equal(t, 1, PiotroskiScore(map[string]float64{}))
}
