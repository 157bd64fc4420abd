package pipeline

import (
	"time"

	"statement_engine/pkg/core/calc"
	"statement_engine/pkg/core/edgar"
	"statement_engine/pkg/core/validate"
	"statement_engine/pkg/models"
)

// Status summarises whether a report carries figures.
type Status string

const (
	StatusComplete Status = "complete"
	StatusNoData   Status = "no_data"
)

// ResolutionNote records how an inferred line item was derived. Direct
// matches are not noted; segment sums and keyword matches are.
type ResolutionNote struct {
	Concept   string      `json:"concept"`
	Period    string      `json:"period"`
	Tier      models.Tier `json:"tier"`
	Source    string      `json:"source"`
	FactCount int         `json:"fact_count"`
}

// Report is the complete output of one pipeline run.
type Report struct {
	ID           string    `json:"id"`
	Entity       string    `json:"entity,omitempty"`
	RulesVersion string    `json:"rules_version"`
	ContentHash  string    `json:"content_hash"`
	GeneratedAt  time.Time `json:"generated_at"`
	Status       Status    `json:"status"`
	Reason       string    `json:"reason,omitempty"`

	Statements *models.Statements `json:"statements,omitempty"`

	BalanceSheetCheck *validate.VerificationResult `json:"balance_sheet_check,omitempty"`
	CashFlowCheck     *validate.VerificationResult `json:"cash_flow_check,omitempty"`
	CashLinkageCheck  *validate.VerificationResult `json:"cash_linkage_check,omitempty"`

	Ratios     []calc.RatioGroup     `json:"ratios,omitempty"`
	Growth     []calc.GrowthResult   `json:"growth,omitempty"`
	FCF        *calc.FCFResult       `json:"fcf,omitempty"`
	CommonSize []calc.CommonSizeLine `json:"common_size,omitempty"`

	ResolutionNotes []ResolutionNote  `json:"resolution_notes"`
	Exclusions      []edgar.Exclusion `json:"exclusions"`
}

// resolutionNotes lists every inferred item, current period first.
func resolutionNotes(stmts *models.Statements) []ResolutionNote {
	notes := []ResolutionNote{}
	add := func(period string, item models.LineItem) {
		if !item.Tier.Inferred() {
			return
		}
		notes = append(notes, ResolutionNote{
			Concept:   item.Concept,
			Period:    period,
			Tier:      item.Tier,
			Source:    item.Source,
			FactCount: item.FactCount,
		})
	}
	for _, st := range models.StatementTypes {
		fs := stmts.Get(st)
		if fs == nil {
			continue
		}
		for _, c := range fs.Concepts() {
			add("current", fs.Current(c))
		}
		if !fs.HasPrior() {
			continue
		}
		for _, c := range fs.Concepts() {
			add("prior", fs.Prior(c))
		}
	}
	return notes
}
