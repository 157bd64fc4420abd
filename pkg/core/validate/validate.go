// Package validate verifies the accounting identities of assembled
// statements. Every check reports a value-level outcome; a failed or
// unverifiable equation is a result, never an error.
package validate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// Confidence distinguishes a direct check from one made on a derived figure.
type Confidence string

const (
	ConfidencePrimary   Confidence = "primary"
	ConfidenceSecondary Confidence = "secondary"
)

const (
	reasonInsufficient          = "insufficient data"
	reasonInsufficientSecondary = "insufficient data for secondary check"
)

var (
	// DefaultBalanceTolerancePct is the allowed |A - (L+E)| / |A| in percent.
	DefaultBalanceTolerancePct = decimal.RequireFromString("0.1")
	// DefaultCashFlowTolerancePct applies to the cash flow identity.
	DefaultCashFlowTolerancePct = decimal.RequireFromString("1.0")

	hundred = decimal.NewFromInt(100)
)

// =============================================================================
// RESULT
// =============================================================================

// VerificationResult is the outcome of one equation check.
type VerificationResult struct {
	EquationName   string              `json:"equation_name"`
	Confidence     Confidence          `json:"confidence"`
	Passed         bool                `json:"passed"`
	LHS            models.Value        `json:"lhs"`
	RHS            models.Value        `json:"rhs"`
	Difference     models.Value        `json:"difference"`
	DifferencePct  models.Value        `json:"difference_pct"`
	TolerancePct   decimal.Decimal     `json:"tolerance_pct"`
	Reason         string              `json:"reason,omitempty"`
	DerivedConcept string              `json:"derived_concept,omitempty"`
	DerivedValue   *models.Value       `json:"derived_value,omitempty"`
	Secondary      *VerificationResult `json:"secondary,omitempty"`
}

// =============================================================================
// VERIFIER
// =============================================================================

// Verifier holds the tolerances; it is safe for concurrent use.
type Verifier struct {
	balanceTol  decimal.Decimal
	cashFlowTol decimal.Decimal
}

// NewVerifier builds a verifier. A zero tolerance demands exact equality;
// negative tolerances fall back to the defaults.
func NewVerifier(balanceTolPct, cashFlowTolPct decimal.Decimal) *Verifier {
	if balanceTolPct.IsNegative() {
		balanceTolPct = DefaultBalanceTolerancePct
	}
	if cashFlowTolPct.IsNegative() {
		cashFlowTolPct = DefaultCashFlowTolerancePct
	}
	return &Verifier{balanceTol: balanceTolPct, cashFlowTol: cashFlowTolPct}
}

// BalanceTolerancePct returns the configured balance sheet tolerance.
func (v *Verifier) BalanceTolerancePct() decimal.Decimal { return v.balanceTol }

// Fingerprint identifies the tolerances a verdict was computed under.
func (v *Verifier) Fingerprint() string {
	return "balance=" + v.balanceTol.String() + ";cash_flow=" + v.cashFlowTol.String()
}

const balanceEquation = "TotalAssets = TotalLiabilities + TotalEquity"

// VerifyBalanceSheet checks A = L + E on the current period. With exactly
// one total missing it derives that total and corroborates it against
// TotalLiabilitiesAndEquity.
func (v *Verifier) VerifyBalanceSheet(stmt *models.FinancialStatement) VerificationResult {
	if stmt == nil {
		return VerificationResult{
			EquationName:  balanceEquation,
			Confidence:    ConfidencePrimary,
			LHS:           models.Unavailable("statement not assembled"),
			RHS:           models.Unavailable("statement not assembled"),
			Difference:    models.Unavailable(reasonInsufficient),
			DifferencePct: models.Unavailable(reasonInsufficient),
			TolerancePct:  v.balanceTol,
			Reason:        reasonInsufficient,
		}
	}

	assets := stmt.Current(rules.TotalAssets).Value
	liabilities := stmt.Current(rules.TotalLiabilities).Value
	equity := stmt.Current(rules.TotalEquity).Value
	totalLE := stmt.Current(rules.TotalLiabilitiesAndEquity).Value

	var missing []string
	for _, c := range []struct {
		name string
		val  models.Value
	}{
		{rules.TotalAssets, assets},
		{rules.TotalLiabilities, liabilities},
		{rules.TotalEquity, equity},
	} {
		if !c.val.IsKnown() {
			missing = append(missing, c.name)
		}
	}

	if len(missing) == 0 {
		return compare(balanceEquation, ConfidencePrimary, assets, liabilities.Add(equity), v.balanceTol)
	}

	res := VerificationResult{
		EquationName:  balanceEquation,
		Confidence:    ConfidencePrimary,
		LHS:           assets,
		RHS:           liabilities.Add(equity),
		Difference:    models.Unavailable(reasonInsufficient),
		DifferencePct: models.Unavailable(reasonInsufficient),
		TolerancePct:  v.balanceTol,
	}
	if len(missing) > 1 {
		res.Reason = reasonInsufficient
		return res
	}

	res.Reason = "unresolved total: " + missing[0]
	sec := v.secondary(missing[0], assets, liabilities, equity, totalLE)
	res.Secondary = &sec
	return res
}

// secondary derives the one missing total and checks it against L&E.
func (v *Verifier) secondary(missing string, assets, liabilities, equity, totalLE models.Value) VerificationResult {
	var (
		name     string
		derived  models.Value
		lhs, rhs models.Value
	)
	switch missing {
	case rules.TotalAssets:
		name = "TotalLiabilitiesAndEquity = TotalLiabilities + TotalEquity"
		derived = liabilities.Add(equity)
		lhs, rhs = totalLE, derived
	case rules.TotalLiabilities:
		name = "TotalAssets = TotalLiabilitiesAndEquity"
		derived = assets.Sub(equity)
		lhs, rhs = assets, totalLE
	default:
		name = "TotalAssets = TotalLiabilitiesAndEquity"
		derived = assets.Sub(liabilities)
		lhs, rhs = assets, totalLE
	}

	var res VerificationResult
	if !totalLE.IsKnown() {
		res = VerificationResult{
			EquationName:  name,
			Confidence:    ConfidenceSecondary,
			LHS:           lhs,
			RHS:           rhs,
			Difference:    models.Unavailable(reasonInsufficientSecondary),
			DifferencePct: models.Unavailable(reasonInsufficientSecondary),
			TolerancePct:  v.balanceTol,
			Reason:        reasonInsufficientSecondary,
		}
	} else {
		res = compare(name, ConfidenceSecondary, lhs, rhs, v.balanceTol)
	}
	res.DerivedConcept = missing
	res.DerivedValue = &derived
	return res
}

// compare evaluates |lhs - rhs| / |lhs| * 100 <= tol.
func compare(name string, conf Confidence, lhs, rhs models.Value, tol decimal.Decimal) VerificationResult {
	scale := decimal.Zero
	if l, ok := lhs.Decimal(); ok {
		scale = l.Abs()
	}
	return compareScaled(name, conf, lhs, rhs, scale, tol)
}

// compareScaled evaluates |lhs - rhs| / scale * 100 <= tol.
func compareScaled(name string, conf Confidence, lhs, rhs models.Value, scale, tol decimal.Decimal) VerificationResult {
	res := VerificationResult{
		EquationName: name,
		Confidence:   conf,
		LHS:          lhs,
		RHS:          rhs,
		Difference:   lhs.Sub(rhs),
		TolerancePct: tol,
	}

	l, lok := lhs.Decimal()
	r, rok := rhs.Decimal()
	if !lok || !rok {
		res.DifferencePct = models.Unavailable(reasonInsufficient)
		res.Reason = reasonInsufficient
		return res
	}
	if scale.IsZero() {
		res.DifferencePct = models.Unavailable("reference total is zero")
		res.Reason = "reference total is zero"
		return res
	}

	delta := l.Sub(r)
	pct := delta.Abs().Div(scale).Mul(hundred)
	res.DifferencePct = models.Known(pct.Round(6))
	res.Passed = pct.LessThanOrEqual(tol)
	if !res.Passed {
		res.Reason = fmt.Sprintf("difference of %s (%s%%) exceeds tolerance of %s%%",
			delta.String(), pct.StringFixed(4), tol.String())
	}
	return res
}
