package analysis

import (
	"statement_engine/pkg/core/calc"
	"statement_engine/pkg/core/validate"
)

// Result is the full analysis of one filing's assembled statements.
type Result struct {
	// 1. Accounting identities
	BalanceSheetCheck validate.VerificationResult `json:"balance_sheet_check"`
	CashFlowCheck     validate.VerificationResult `json:"cash_flow_check"`
	CashLinkageCheck  validate.VerificationResult `json:"cash_linkage_check"`

	// 2. Ratios, grouped by category
	Ratios []calc.RatioGroup `json:"ratios"`

	// 3. Current vs prior period growth
	Growth []calc.GrowthResult `json:"growth"`

	// 4. Free cash flow reconciliation
	FCF calc.FCFResult `json:"fcf"`

	// 5. Vertical analysis
	CommonSize []calc.CommonSizeLine `json:"common_size"`
}
