package calc

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// =============================================================================
// FREE CASH FLOW
// =============================================================================

// CalculateFCF reconciles current-period free cash flow.
func CalculateFCF(stmts *models.Statements) FCFResult {
	return ComputeFCF(
		stmts.Current(rules.OperatingCashFlow).Value,
		stmts.Current(rules.CapitalExpenditures).Value,
	)
}

// CalculatePriorFCF is CalculateFCF on the prior period.
func CalculatePriorFCF(stmts *models.Statements) FCFResult {
	return ComputeFCF(
		stmts.Prior(rules.OperatingCashFlow).Value,
		stmts.Prior(rules.CapitalExpenditures).Value,
	)
}

// ComputeFCF returns FCF = OCF - |CapEx|. Issuers tag capital spending as
// either a positive payment or a negative outflow; only the magnitude is used.
func ComputeFCF(ocf, capex models.Value) FCFResult {
	res := FCFResult{OCF: ocf, CapEx: capex.Abs()}

	switch {
	case !ocf.IsKnown():
		res.FCF = models.Unavailable("operating cash flow unavailable: " + ocf.Reason())
	case !capex.IsKnown():
		res.FCF = models.Unavailable("capital expenditures unavailable: " + capex.Reason())
	default:
		res.FCF = res.OCF.Sub(res.CapEx)
	}

	res.Formula = fmt.Sprintf("FCF = OCF (%s) − CapEx (%s) = %s",
		FormatAmount(res.OCF), FormatAmount(res.CapEx), FormatAmount(res.FCF))
	return res
}

// FormatAmount renders a value as "$1,234,567.89", or "unavailable".
func FormatAmount(v models.Value) string {
	d, ok := v.Decimal()
	if !ok {
		return "unavailable"
	}
	return formatDollars(d)
}

func formatDollars(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole := d.Truncate(0)
	frac := d.Sub(whole)

	s := sign + "$" + humanize.Comma(whole.IntPart())
	if !frac.IsZero() {
		// "0.25" -> ".25"
		s += strings.TrimPrefix(frac.String(), "0")
	}
	return s
}
