package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// FY2023 comparatives for the fixture issuer (USD millions)
var fy2023 = map[string]int64{
	rules.Revenues:            383_285,
	rules.GrossProfit:         169_148,
	rules.OperatingIncome:     114_301,
	rules.NetIncome:           96_995,
	rules.TotalAssets:         352_583,
	rules.TotalLiabilities:    290_437,
	rules.TotalEquity:         62_146,
	rules.OperatingCashFlow:   110_543,
	rules.CapitalExpenditures: -10_959,
}

func growthByConcept(t *testing.T, results []GrowthResult, concept string) GrowthResult {
	t.Helper()
	for _, g := range results {
		if g.Concept == concept {
			return g
		}
	}
	t.Fatalf("growth for %s not found", concept)
	return GrowthResult{}
}

func TestCalculateGrowth(t *testing.T) {
	results := CalculateGrowth(buildStatements(t, fy2024, fy2023))
	require.Len(t, results, 9)
	assert.Equal(t, FreeCashFlowConcept, results[len(results)-1].Concept)

	assertDecimal(t, "2.022", growthByConcept(t, results, rules.Revenues).GrowthPct)
	assertDecimal(t, "-3.3600", growthByConcept(t, results, rules.NetIncome).GrowthPct)
	assertDecimal(t, "-8.361", growthByConcept(t, results, rules.TotalEquity).GrowthPct)
	// FCF 108,807 vs 99,584
	assertDecimal(t, "9.2615", growthByConcept(t, results, FreeCashFlowConcept).GrowthPct)
}

func TestGrowth_PriorZero(t *testing.T) {
	g := Growth(rules.Revenues, models.KnownInt(100), models.KnownInt(0))
	assert.False(t, g.GrowthPct.IsKnown())
	assert.Equal(t, "prior value is zero", g.GrowthPct.Reason())
	assert.True(t, g.Prior.IsKnown(), "the zero prior itself is still reported")
}

func TestGrowth_NegativePriorUsesMagnitude(t *testing.T) {
	// loss of 50 to profit of 25: +150%
	g := Growth(rules.NetIncome, models.KnownInt(25), models.KnownInt(-50))
	assertDecimal(t, "150", g.GrowthPct)
}

func TestCalculateGrowth_NoPriorPeriod(t *testing.T) {
	for _, g := range CalculateGrowth(buildStatements(t, fy2024, nil)) {
		assert.False(t, g.GrowthPct.IsKnown(), g.Concept)
		assert.Contains(t, g.GrowthPct.Reason(), "prior value unavailable", g.Concept)
	}
}
