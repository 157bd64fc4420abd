package models

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// ASSEMBLED STATEMENTS
// =============================================================================

// StatementType identifies one of the three primary statements.
type StatementType string

const (
	BalanceSheet    StatementType = "balance_sheet"
	IncomeStatement StatementType = "income_statement"
	CashFlow        StatementType = "cash_flow"
)

// StatementTypes lists statements in presentation order.
var StatementTypes = []StatementType{BalanceSheet, IncomeStatement, CashFlow}

// Valid reports whether t is a known statement type.
func (t StatementType) Valid() bool {
	return t == BalanceSheet || t == IncomeStatement || t == CashFlow
}

// Tier records which resolution strategy produced a value.
type Tier string

const (
	TierNone             Tier = ""
	TierDirectMatch      Tier = "direct_match"
	TierSegmentAggregate Tier = "segment_aggregate"
	TierKeywordFallback  Tier = "keyword_fallback"
)

// Inferred reports whether the tier is a fallback rather than a direct tag.
func (t Tier) Inferred() bool {
	return t == TierSegmentAggregate || t == TierKeywordFallback
}

// LineItem is one resolved concept with its provenance.
type LineItem struct {
	Concept   string `json:"concept"`
	Value     Value  `json:"value"`
	Tier      Tier   `json:"tier,omitempty"`
	Source    string `json:"source,omitempty"`
	FactCount int    `json:"fact_count,omitempty"`
}

const (
	reasonNoPrior     = "no comparable prior period in filing"
	reasonNotInScope  = "concept not part of statement"
	reasonNoStatement = "statement not assembled"
)

// FinancialStatement is immutable once built; calculators may share it freely.
type FinancialStatement struct {
	stype       StatementType
	currentDate Date
	priorDate   Date
	hasPrior    bool
	concepts    []string
	current     map[string]LineItem
	prior       map[string]LineItem
}

// NewFinancialStatement copies the supplied items. When hasPrior is false
// every prior item is replaced with an explicit Unavailable.
func NewFinancialStatement(t StatementType, currentDate Date, priorDate Date, hasPrior bool, concepts []string, current, prior map[string]LineItem) *FinancialStatement {
	fs := &FinancialStatement{
		stype:       t,
		currentDate: currentDate,
		hasPrior:    hasPrior,
		concepts:    append([]string(nil), concepts...),
		current:     make(map[string]LineItem, len(concepts)),
		prior:       make(map[string]LineItem, len(concepts)),
	}
	if hasPrior {
		fs.priorDate = priorDate
	}
	for _, c := range concepts {
		if item, ok := current[c]; ok {
			fs.current[c] = item
		} else {
			fs.current[c] = LineItem{Concept: c, Value: Unavailable("unresolved: " + c)}
		}
		if !hasPrior {
			fs.prior[c] = LineItem{Concept: c, Value: Unavailable(reasonNoPrior)}
			continue
		}
		if item, ok := prior[c]; ok {
			fs.prior[c] = item
		} else {
			fs.prior[c] = LineItem{Concept: c, Value: Unavailable("unresolved: " + c)}
		}
	}
	return fs
}

// Type returns the statement type.
func (s *FinancialStatement) Type() StatementType { return s.stype }

// CurrentPeriod is the period end of the current column.
func (s *FinancialStatement) CurrentPeriod() Date { return s.currentDate }

// PriorPeriod returns the comparable period, if the filing has one.
func (s *FinancialStatement) PriorPeriod() (Date, bool) { return s.priorDate, s.hasPrior }

// HasPrior reports whether a comparable prior period was tagged.
func (s *FinancialStatement) HasPrior() bool { return s.hasPrior }

// Concepts lists the statement's concepts in rule order.
func (s *FinancialStatement) Concepts() []string {
	return append([]string(nil), s.concepts...)
}

// Contains reports whether the concept belongs to this statement.
func (s *FinancialStatement) Contains(concept string) bool {
	_, ok := s.current[concept]
	return ok
}

// Current returns the current-period item for concept.
func (s *FinancialStatement) Current(concept string) LineItem {
	if item, ok := s.current[concept]; ok {
		return item
	}
	return LineItem{Concept: concept, Value: Unavailable(reasonNotInScope)}
}

// Prior returns the prior-period item for concept.
func (s *FinancialStatement) Prior(concept string) LineItem {
	if item, ok := s.prior[concept]; ok {
		return item
	}
	return LineItem{Concept: concept, Value: Unavailable(reasonNotInScope)}
}

type statementJSON struct {
	Type           StatementType `json:"statement_type"`
	CurrentPeriod  Date          `json:"current_period_date"`
	PriorPeriod    *Date         `json:"prior_period_date,omitempty"`
	PriorAvailable bool          `json:"prior_available"`
	Current        []LineItem    `json:"current"`
	Prior          []LineItem    `json:"prior"`
}

// MarshalJSON renders items in rule order.
func (s *FinancialStatement) MarshalJSON() ([]byte, error) {
	out := statementJSON{
		Type:           s.stype,
		CurrentPeriod:  s.currentDate,
		PriorAvailable: s.hasPrior,
		Current:        make([]LineItem, 0, len(s.concepts)),
		Prior:          make([]LineItem, 0, len(s.concepts)),
	}
	if s.hasPrior {
		d := s.priorDate
		out.PriorPeriod = &d
	}
	for _, c := range s.concepts {
		out.Current = append(out.Current, s.current[c])
		out.Prior = append(out.Prior, s.prior[c])
	}
	return json.Marshal(out)
}

// Statements bundles the three assembled statements of one filing.
type Statements struct {
	BalanceSheet    *FinancialStatement `json:"balance_sheet"`
	IncomeStatement *FinancialStatement `json:"income_statement"`
	CashFlow        *FinancialStatement `json:"cash_flow"`
}

// Get returns the statement of the given type (nil if not assembled).
func (s *Statements) Get(t StatementType) *FinancialStatement {
	if s == nil {
		return nil
	}
	switch t {
	case BalanceSheet:
		return s.BalanceSheet
	case IncomeStatement:
		return s.IncomeStatement
	case CashFlow:
		return s.CashFlow
	}
	return nil
}

func (s *Statements) find(concept string) *FinancialStatement {
	for _, t := range StatementTypes {
		if fs := s.Get(t); fs != nil && fs.Contains(concept) {
			return fs
		}
	}
	return nil
}

// Current looks concept up across all statements.
func (s *Statements) Current(concept string) LineItem {
	if fs := s.find(concept); fs != nil {
		return fs.Current(concept)
	}
	return LineItem{Concept: concept, Value: Unavailable(reasonNoStatement)}
}

// Prior looks the prior-period concept up across all statements.
func (s *Statements) Prior(concept string) LineItem {
	if fs := s.find(concept); fs != nil {
		return fs.Prior(concept)
	}
	return LineItem{Concept: concept, Value: Unavailable(reasonNoStatement)}
}

// Items returns every current line item across statements, in order.
func (s *Statements) Items() []LineItem {
	var out []LineItem
	for _, t := range StatementTypes {
		fs := s.Get(t)
		if fs == nil {
			continue
		}
		for _, c := range fs.concepts {
			out = append(out, fs.current[c])
		}
	}
	return out
}

// UnmarshalJSON rebuilds a statement rendered by MarshalJSON, so cached
// reports decode back into the same immutable form.
func (s *FinancialStatement) UnmarshalJSON(data []byte) error {
	var in statementJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode statement: %w", err)
	}
	if len(in.Prior) != len(in.Current) {
		return fmt.Errorf("decode statement: %d current items but %d prior", len(in.Current), len(in.Prior))
	}

	concepts := make([]string, 0, len(in.Current))
	current := make(map[string]LineItem, len(in.Current))
	prior := make(map[string]LineItem, len(in.Prior))
	for i, item := range in.Current {
		concepts = append(concepts, item.Concept)
		current[item.Concept] = item
		prior[item.Concept] = in.Prior[i]
	}

	var priorDate Date
	if in.PriorPeriod != nil {
		priorDate = *in.PriorPeriod
	}
	built := NewFinancialStatement(in.Type, in.CurrentPeriod, priorDate, in.PriorAvailable, concepts, current, prior)
	*s = *built
	return nil
}
