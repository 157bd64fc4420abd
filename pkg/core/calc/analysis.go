package calc

import (
	"fmt"

	"github.com/shopspring/decimal"

	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// =============================================================================
// RATIO CALCULATOR
// =============================================================================

const ratioPlaces = 4

var (
	hundred  = decimal.NewFromInt(100)
	yearDays = decimal.NewFromInt(365)
)

// inputs holds the known current-period amounts a ratio declared.
type inputs map[string]decimal.Decimal

type ratioDef struct {
	name     string
	category Category
	unit     Unit
	formula  string
	inputs   []string
	compute  func(in inputs) models.Value
}

// ratioDefs is the full ratio table in report order.
var ratioDefs = []ratioDef{
	// Liquidity
	{
		name: "current_ratio", category: CategoryLiquidity, unit: UnitMultiple,
		formula: "TotalCurrentAssets / TotalCurrentLiabilities",
		inputs:  []string{rules.TotalCurrentAssets, rules.TotalCurrentLiabilities},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.TotalCurrentAssets], in[rules.TotalCurrentLiabilities], rules.TotalCurrentLiabilities)
		},
	},
	{
		name: "quick_ratio", category: CategoryLiquidity, unit: UnitMultiple,
		formula: "(CashAndEquivalents + ShortTermInvestments + AccountsReceivable) / TotalCurrentLiabilities",
		inputs:  []string{rules.CashAndEquivalents, rules.ShortTermInvestments, rules.AccountsReceivable, rules.TotalCurrentLiabilities},
		compute: func(in inputs) models.Value {
			quick := in[rules.CashAndEquivalents].Add(in[rules.ShortTermInvestments]).Add(in[rules.AccountsReceivable])
			return safeDiv(quick, in[rules.TotalCurrentLiabilities], rules.TotalCurrentLiabilities)
		},
	},
	{
		name: "cash_ratio", category: CategoryLiquidity, unit: UnitMultiple,
		formula: "CashAndEquivalents / TotalCurrentLiabilities",
		inputs:  []string{rules.CashAndEquivalents, rules.TotalCurrentLiabilities},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.CashAndEquivalents], in[rules.TotalCurrentLiabilities], rules.TotalCurrentLiabilities)
		},
	},
	{
		name: "working_capital", category: CategoryLiquidity, unit: UnitCurrency,
		formula: "TotalCurrentAssets - TotalCurrentLiabilities",
		inputs:  []string{rules.TotalCurrentAssets, rules.TotalCurrentLiabilities},
		compute: func(in inputs) models.Value {
			return models.Known(in[rules.TotalCurrentAssets].Sub(in[rules.TotalCurrentLiabilities]))
		},
	},

	// Solvency
	{
		name: "debt_to_equity", category: CategorySolvency, unit: UnitMultiple,
		formula: "TotalLiabilities / TotalEquity",
		inputs:  []string{rules.TotalLiabilities, rules.TotalEquity},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.TotalLiabilities], in[rules.TotalEquity], rules.TotalEquity)
		},
	},
	{
		name: "debt_to_assets", category: CategorySolvency, unit: UnitPercent,
		formula: "TotalLiabilities / TotalAssets x 100",
		inputs:  []string{rules.TotalLiabilities, rules.TotalAssets},
		compute: func(in inputs) models.Value {
			return percent(in[rules.TotalLiabilities], in[rules.TotalAssets], rules.TotalAssets)
		},
	},
	{
		name: "interest_coverage", category: CategorySolvency, unit: UnitMultiple,
		formula: "OperatingIncome / |InterestExpense|",
		inputs:  []string{rules.OperatingIncome, rules.InterestExpense},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.OperatingIncome], in[rules.InterestExpense].Abs(), rules.InterestExpense)
		},
	},
	{
		name: "equity_ratio", category: CategorySolvency, unit: UnitPercent,
		formula: "TotalEquity / TotalAssets x 100",
		inputs:  []string{rules.TotalEquity, rules.TotalAssets},
		compute: func(in inputs) models.Value {
			return percent(in[rules.TotalEquity], in[rules.TotalAssets], rules.TotalAssets)
		},
	},

	// Profitability
	{
		name: "gross_margin", category: CategoryProfitability, unit: UnitPercent,
		formula: "GrossProfit / Revenues x 100",
		inputs:  []string{rules.GrossProfit, rules.Revenues},
		compute: func(in inputs) models.Value {
			return percent(in[rules.GrossProfit], in[rules.Revenues], rules.Revenues)
		},
	},
	{
		name: "operating_margin", category: CategoryProfitability, unit: UnitPercent,
		formula: "OperatingIncome / Revenues x 100",
		inputs:  []string{rules.OperatingIncome, rules.Revenues},
		compute: func(in inputs) models.Value {
			return percent(in[rules.OperatingIncome], in[rules.Revenues], rules.Revenues)
		},
	},
	{
		name: "net_margin", category: CategoryProfitability, unit: UnitPercent,
		formula: "NetIncome / Revenues x 100",
		inputs:  []string{rules.NetIncome, rules.Revenues},
		compute: func(in inputs) models.Value {
			return percent(in[rules.NetIncome], in[rules.Revenues], rules.Revenues)
		},
	},
	{
		name: "roa", category: CategoryProfitability, unit: UnitPercent,
		formula: "NetIncome / TotalAssets x 100",
		inputs:  []string{rules.NetIncome, rules.TotalAssets},
		compute: func(in inputs) models.Value {
			return percent(in[rules.NetIncome], in[rules.TotalAssets], rules.TotalAssets)
		},
	},
	{
		name: "roe", category: CategoryProfitability, unit: UnitPercent,
		formula: "NetIncome / TotalEquity x 100",
		inputs:  []string{rules.NetIncome, rules.TotalEquity},
		compute: func(in inputs) models.Value {
			return percent(in[rules.NetIncome], in[rules.TotalEquity], rules.TotalEquity)
		},
	},
	{
		name: "asset_turnover", category: CategoryProfitability, unit: UnitMultiple,
		formula: "Revenues / TotalAssets",
		inputs:  []string{rules.Revenues, rules.TotalAssets},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.Revenues], in[rules.TotalAssets], rules.TotalAssets)
		},
	},

	// Efficiency
	{
		name: "inventory_turnover", category: CategoryEfficiency, unit: UnitMultiple,
		formula: "CostOfRevenue / Inventory",
		inputs:  []string{rules.CostOfRevenue, rules.Inventory},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.CostOfRevenue], in[rules.Inventory], rules.Inventory)
		},
	},
	{
		name: "receivables_turnover", category: CategoryEfficiency, unit: UnitMultiple,
		formula: "Revenues / AccountsReceivable",
		inputs:  []string{rules.Revenues, rules.AccountsReceivable},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.Revenues], in[rules.AccountsReceivable], rules.AccountsReceivable)
		},
	},
	{
		name: "days_sales_outstanding", category: CategoryEfficiency, unit: UnitDays,
		formula: "AccountsReceivable / Revenues x 365",
		inputs:  []string{rules.AccountsReceivable, rules.Revenues},
		compute: func(in inputs) models.Value {
			rev := in[rules.Revenues]
			if rev.IsZero() {
				return zeroDenominator(rules.Revenues)
			}
			return models.Known(in[rules.AccountsReceivable].Mul(yearDays).Div(rev).Round(ratioPlaces))
		},
	},

	// Cash flow
	{
		name: "ocf_to_net_income", category: CategoryCashFlow, unit: UnitMultiple,
		formula: "OperatingCashFlow / NetIncome",
		inputs:  []string{rules.OperatingCashFlow, rules.NetIncome},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.OperatingCashFlow], in[rules.NetIncome], rules.NetIncome)
		},
	},
	{
		name: "ocf_margin", category: CategoryCashFlow, unit: UnitPercent,
		formula: "OperatingCashFlow / Revenues x 100",
		inputs:  []string{rules.OperatingCashFlow, rules.Revenues},
		compute: func(in inputs) models.Value {
			return percent(in[rules.OperatingCashFlow], in[rules.Revenues], rules.Revenues)
		},
	},
	{
		name: "ocf_to_current_liabilities", category: CategoryCashFlow, unit: UnitMultiple,
		formula: "OperatingCashFlow / TotalCurrentLiabilities",
		inputs:  []string{rules.OperatingCashFlow, rules.TotalCurrentLiabilities},
		compute: func(in inputs) models.Value {
			return safeDiv(in[rules.OperatingCashFlow], in[rules.TotalCurrentLiabilities], rules.TotalCurrentLiabilities)
		},
	},
	{
		name: "free_cash_flow", category: CategoryCashFlow, unit: UnitCurrency,
		formula: "OperatingCashFlow - |CapitalExpenditures|",
		inputs:  []string{rules.OperatingCashFlow, rules.CapitalExpenditures},
		compute: func(in inputs) models.Value {
			return ComputeFCF(models.Known(in[rules.OperatingCashFlow]), models.Known(in[rules.CapitalExpenditures])).FCF
		},
	},
}

// RatioNames lists every ratio in report order.
func RatioNames() []string {
	names := make([]string, 0, len(ratioDefs))
	for _, d := range ratioDefs {
		names = append(names, d.name)
	}
	return names
}

// CalculateAll computes every ratio from the current period. It reads the
// statements only, so repeated calls yield identical results.
func CalculateAll(stmts *models.Statements) []RatioResult {
	out := make([]RatioResult, 0, len(ratioDefs))
	for _, def := range ratioDefs {
		out = append(out, evaluate(def, stmts))
	}
	return out
}

func evaluate(def ratioDef, stmts *models.Statements) RatioResult {
	res := RatioResult{
		Name:               def.name,
		Category:           def.category,
		FormulaDescription: def.formula,
		Unit:               def.unit,
	}

	in := make(inputs, len(def.inputs))
	for _, concept := range def.inputs {
		d, ok := stmts.Current(concept).Value.Decimal()
		if !ok {
			res.MissingInputs = append(res.MissingInputs, concept)
			continue
		}
		in[concept] = d
	}
	if len(res.MissingInputs) > 0 {
		res.Value = models.Unavailable(fmt.Sprintf("missing inputs: %v", res.MissingInputs))
		return res
	}

	res.Value = def.compute(in)
	return res
}

// GroupByCategory splits results into the five ordered categories.
func GroupByCategory(results []RatioResult) []RatioGroup {
	groups := make([]RatioGroup, 0, len(Categories))
	for _, c := range Categories {
		g := RatioGroup{Category: c, Ratios: []RatioResult{}}
		for _, r := range results {
			if r.Category == c {
				g.Ratios = append(g.Ratios, r)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func safeDiv(numerator, denominator decimal.Decimal, denominatorName string) models.Value {
	if denominator.IsZero() {
		return zeroDenominator(denominatorName)
	}
	return models.Known(numerator.Div(denominator).Round(ratioPlaces))
}

func percent(numerator, denominator decimal.Decimal, denominatorName string) models.Value {
	if denominator.IsZero() {
		return zeroDenominator(denominatorName)
	}
	return models.Known(numerator.Mul(hundred).Div(denominator).Round(ratioPlaces))
}

func zeroDenominator(name string) models.Value {
	return models.Unavailable("zero denominator: " + name)
}
