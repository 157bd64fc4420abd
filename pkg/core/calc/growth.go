package calc

import (
	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// =============================================================================
// GROWTH CALCULATOR
// =============================================================================

// FreeCashFlowConcept names the derived FCF line in growth results.
const FreeCashFlowConcept = "FreeCashFlow"

var growthConcepts = []string{
	rules.Revenues,
	rules.GrossProfit,
	rules.OperatingIncome,
	rules.NetIncome,
	rules.TotalAssets,
	rules.TotalLiabilities,
	rules.TotalEquity,
	rules.OperatingCashFlow,
}

// CalculateGrowth returns current-over-prior growth for the headline
// concepts, followed by free cash flow.
func CalculateGrowth(stmts *models.Statements) []GrowthResult {
	out := make([]GrowthResult, 0, len(growthConcepts)+1)
	for _, c := range growthConcepts {
		out = append(out, Growth(c, stmts.Current(c).Value, stmts.Prior(c).Value))
	}
	out = append(out, Growth(FreeCashFlowConcept, CalculateFCF(stmts).FCF, CalculatePriorFCF(stmts).FCF))
	return out
}

// Growth computes (current - prior) / |prior| x 100. A zero or unavailable
// prior makes growth undefined rather than zero.
func Growth(concept string, current, prior models.Value) GrowthResult {
	res := GrowthResult{Concept: concept, Current: current, Prior: prior}

	c, cok := current.Decimal()
	p, pok := prior.Decimal()
	switch {
	case !cok:
		res.GrowthPct = models.Unavailable("current value unavailable: " + current.Reason())
	case !pok:
		res.GrowthPct = models.Unavailable("prior value unavailable: " + prior.Reason())
	case p.IsZero():
		res.GrowthPct = models.Unavailable("prior value is zero")
	default:
		res.GrowthPct = models.Known(c.Sub(p).Mul(hundred).Div(p.Abs()).Round(ratioPlaces))
	}
	return res
}
