package calc

import (
	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// =============================================================================
// COMMON SIZE (vertical analysis)
// =============================================================================

// CommonSizeLine expresses one current-period line as a percentage of its
// statement's base: TotalAssets for the balance sheet, Revenues otherwise.
type CommonSizeLine struct {
	Statement models.StatementType `json:"statement"`
	Concept   string               `json:"concept"`
	Base      string               `json:"base"`
	Pct       models.Value         `json:"pct_of_base"`
}

// CommonSize computes the vertical analysis for every assembled statement.
func CommonSize(stmts *models.Statements) []CommonSizeLine {
	var out []CommonSizeLine
	for _, st := range models.StatementTypes {
		fs := stmts.Get(st)
		if fs == nil {
			continue
		}
		base := rules.Revenues
		if st == models.BalanceSheet {
			base = rules.TotalAssets
		}
		baseVal := stmts.Current(base).Value

		for _, c := range fs.Concepts() {
			if c == base {
				continue
			}
			out = append(out, CommonSizeLine{
				Statement: st,
				Concept:   c,
				Base:      base,
				Pct:       pctOfBase(fs.Current(c).Value, baseVal, base),
			})
		}
	}
	return out
}

func pctOfBase(v, base models.Value, baseName string) models.Value {
	n, ok := v.Decimal()
	if !ok {
		return models.Unavailable("line unavailable: " + v.Reason())
	}
	d, ok := base.Decimal()
	if !ok {
		return models.Unavailable("base unavailable: " + base.Reason())
	}
	return percent(n, d, baseName)
}
