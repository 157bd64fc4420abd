package validate

import (
	"github.com/shopspring/decimal"

	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// =============================================================================
// CASH FLOW IDENTITY AND CROSS-STATEMENT LINKAGE
// =============================================================================

const (
	cashFlowEquation = "OperatingCashFlow + InvestingCashFlow + FinancingCashFlow + ExchangeRateEffect = NetChangeInCash"
	cashLinkEquation = "CashAndEquivalents(current) - CashAndEquivalents(prior) = NetChangeInCash"
)

// VerifyCashFlow checks that the three activity subtotals, plus the
// exchange-rate effect when tagged, add up to the reported net change.
// The difference is scaled by the largest activity subtotal, since the
// net change itself can be close to zero.
func (v *Verifier) VerifyCashFlow(stmt *models.FinancialStatement) VerificationResult {
	res := VerificationResult{
		EquationName:  cashFlowEquation,
		Confidence:    ConfidencePrimary,
		Difference:    models.Unavailable(reasonInsufficient),
		DifferencePct: models.Unavailable(reasonInsufficient),
		TolerancePct:  v.cashFlowTol,
	}
	if stmt == nil {
		res.LHS = models.Unavailable("statement not assembled")
		res.RHS = models.Unavailable("statement not assembled")
		res.Reason = reasonInsufficient
		return res
	}

	ocf := stmt.Current(rules.OperatingCashFlow).Value
	icf := stmt.Current(rules.InvestingCashFlow).Value
	fcf := stmt.Current(rules.FinancingCashFlow).Value
	fx := stmt.Current(rules.ExchangeRateEffect).Value
	reported := stmt.Current(rules.NetChangeInCash).Value

	computed := ocf.Add(icf).Add(fcf)
	if fx.IsKnown() {
		computed = computed.Add(fx)
	}
	res.LHS, res.RHS = computed, reported

	if !computed.IsKnown() || !reported.IsKnown() {
		res.Reason = reasonInsufficient
		return res
	}

	scale := decimal.Zero
	for _, part := range []models.Value{ocf, icf, fcf} {
		if d, _ := part.Decimal(); d.Abs().GreaterThan(scale) {
			scale = d.Abs()
		}
	}
	return compareScaled(cashFlowEquation, ConfidencePrimary, computed, reported, scale, v.cashFlowTol)
}

// VerifyCashLinkage ties the balance sheet cash movement to the cash flow
// statement. It needs a prior balance sheet; without one the result is
// unverifiable.
func (v *Verifier) VerifyCashLinkage(stmts *models.Statements) VerificationResult {
	res := VerificationResult{
		EquationName:  cashLinkEquation,
		Confidence:    ConfidencePrimary,
		Difference:    models.Unavailable(reasonInsufficient),
		DifferencePct: models.Unavailable(reasonInsufficient),
		TolerancePct:  v.cashFlowTol,
	}

	cashNow := stmts.Current(rules.CashAndEquivalents).Value
	cashPrior := stmts.Prior(rules.CashAndEquivalents).Value
	netChange := stmts.Current(rules.NetChangeInCash).Value

	res.LHS = cashNow.Sub(cashPrior)
	res.RHS = netChange
	if !res.LHS.IsKnown() || !netChange.IsKnown() {
		res.Reason = reasonInsufficient
		return res
	}

	scale, _ := cashNow.Abs().Decimal()
	return compareScaled(cashLinkEquation, ConfidencePrimary, res.LHS, netChange, scale, v.cashFlowTol)
}
