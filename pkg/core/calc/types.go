// Package calc computes ratios, period-over-period growth and free cash
// flow from assembled statements. All arithmetic is decimal; any figure
// that cannot be computed is Unavailable with a reason, never zero.
package calc

import (
	"statement_engine/pkg/models"
)

// =============================================================================
// RATIO TYPES
// =============================================================================

// Category groups ratios in reports.
type Category string

const (
	CategoryLiquidity     Category = "liquidity"
	CategorySolvency      Category = "solvency"
	CategoryProfitability Category = "profitability"
	CategoryEfficiency    Category = "efficiency"
	CategoryCashFlow      Category = "cash_flow"
)

// Categories lists categories in report order.
var Categories = []Category{
	CategoryLiquidity,
	CategorySolvency,
	CategoryProfitability,
	CategoryEfficiency,
	CategoryCashFlow,
}

// Unit describes how a ratio value reads.
type Unit string

const (
	UnitMultiple Unit = "multiple"
	UnitPercent  Unit = "percent"
	UnitCurrency Unit = "currency"
	UnitDays     Unit = "days"
)

// RatioResult is one computed ratio.
type RatioResult struct {
	Name               string       `json:"name"`
	Category           Category     `json:"category"`
	Value              models.Value `json:"value"`
	MissingInputs      []string     `json:"missing_inputs,omitempty"`
	FormulaDescription string       `json:"formula_description"`
	Unit               Unit         `json:"unit"`
}

// RatioGroup is the ratios of one category, in definition order.
type RatioGroup struct {
	Category Category      `json:"category"`
	Ratios   []RatioResult `json:"ratios"`
}

// =============================================================================
// GROWTH AND FCF TYPES
// =============================================================================

// GrowthResult is the period-over-period change of one headline concept.
type GrowthResult struct {
	Concept   string       `json:"concept"`
	Current   models.Value `json:"current"`
	Prior     models.Value `json:"prior"`
	GrowthPct models.Value `json:"growth_pct"`
}

// FCFResult reconciles free cash flow. CapEx is always the non-negative
// magnitude regardless of the sign convention of the source tag.
type FCFResult struct {
	OCF     models.Value `json:"ocf"`
	CapEx   models.Value `json:"capex"`
	FCF     models.Value `json:"fcf"`
	Formula string       `json:"formula"`
}
