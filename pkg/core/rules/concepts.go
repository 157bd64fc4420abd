package rules

// Canonical concept names. Source tags from any taxonomy resolve to these.
const (
	// Balance sheet (instant)
	CashAndEquivalents        = "CashAndEquivalents"
	ShortTermInvestments      = "ShortTermInvestments"
	AccountsReceivable        = "AccountsReceivable"
	Inventory                 = "Inventory"
	TotalCurrentAssets        = "TotalCurrentAssets"
	TotalAssets               = "TotalAssets"
	AccountsPayable           = "AccountsPayable"
	TotalCurrentLiabilities   = "TotalCurrentLiabilities"
	LongTermDebt              = "LongTermDebt"
	TotalLiabilities          = "TotalLiabilities"
	TotalEquity               = "TotalEquity"
	TotalLiabilitiesAndEquity = "TotalLiabilitiesAndEquity"

	// Income statement (duration)
	Revenues         = "Revenues"
	CostOfRevenue    = "CostOfRevenue"
	GrossProfit      = "GrossProfit"
	OperatingIncome  = "OperatingIncome"
	InterestExpense  = "InterestExpense"
	IncomeBeforeTax  = "IncomeBeforeTax"
	IncomeTaxExpense = "IncomeTaxExpense"
	NetIncome        = "NetIncome"

	// Cash flow (duration)
	OperatingCashFlow   = "OperatingCashFlow"
	CapitalExpenditures = "CapitalExpenditures"
	InvestingCashFlow   = "InvestingCashFlow"
	FinancingCashFlow   = "FinancingCashFlow"
	ExchangeRateEffect  = "ExchangeRateEffect"
	NetChangeInCash     = "NetChangeInCash"
)
