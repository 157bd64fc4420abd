package edgar

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// =============================================================================
// STATEMENT ASSEMBLER
// =============================================================================

var (
	// ErrEmptyFactBag means the caller supplied no facts at all.
	ErrEmptyFactBag = errors.New("fact bag is empty")
	// ErrMalformedFactBag means no fact carries both a period date and a unit.
	ErrMalformedFactBag = errors.New("fact bag has no dated facts with units")
)

// Assembler builds the three primary statements from a FactBag.
type Assembler struct {
	rules    *rules.RuleSet
	resolver *Resolver
	log      zerolog.Logger
}

// NewAssembler binds an assembler to an immutable rule table.
func NewAssembler(rs *rules.RuleSet, log zerolog.Logger) *Assembler {
	return &Assembler{
		rules:    rs,
		resolver: NewResolver(log),
		log:      log,
	}
}

// Assemble resolves every concept of every statement for the current and,
// when tagged, the prior period. Missing concepts become Unavailable line
// items; only an empty or entirely malformed bag is an error.
func (a *Assembler) Assemble(bag models.FactBag) (*models.Statements, []Exclusion, error) {
	if bag.Len() == 0 {
		return nil, nil, ErrEmptyFactBag
	}
	if !hasUsableFact(bag) {
		return nil, nil, ErrMalformedFactBag
	}

	stmts := &models.Statements{}
	var excluded []Exclusion

	for _, st := range models.StatementTypes {
		fs, ex := a.assembleStatement(bag, st)
		excluded = append(excluded, ex...)
		switch st {
		case models.BalanceSheet:
			stmts.BalanceSheet = fs
		case models.IncomeStatement:
			stmts.IncomeStatement = fs
		case models.CashFlow:
			stmts.CashFlow = fs
		}
	}

	excluded = append(excluded, a.undatedExclusions(bag)...)
	return stmts, excluded, nil
}

func (a *Assembler) assembleStatement(bag models.FactBag, st models.StatementType) (*models.FinancialStatement, []Exclusion) {
	ruleList := a.rules.ForStatement(st)
	concepts := make([]string, 0, len(ruleList))
	for _, r := range ruleList {
		concepts = append(concepts, r.Concept)
	}

	periods := a.statementPeriods(bag, periodTypeOf(st), ruleList)
	var current, prior period
	hasPrior := false
	if len(periods) > 0 {
		current = periods[0]
	}
	if len(periods) > 1 {
		prior = periods[1]
		hasPrior = true
	}

	var excluded []Exclusion
	currentItems, ex := a.resolvePeriod(bag, current, ruleList)
	excluded = append(excluded, ex...)

	var priorItems map[string]models.LineItem
	if hasPrior {
		priorItems, ex = a.resolvePeriod(bag, prior, ruleList)
		excluded = append(excluded, ex...)
	}

	a.log.Debug().
		Str("statement", string(st)).
		Str("current", current.end.Key()).
		Str("current_start", current.start.Key()).
		Str("prior", prior.end.Key()).
		Bool("has_prior", hasPrior).
		Msg("statement assembled")

	return models.NewFinancialStatement(st, current.end, prior.end, hasPrior, concepts, currentItems, priorItems), excluded
}

// period is one statement column: the end (or instant) date and, for
// durations tagged with a start date, the start of the span used.
type period struct {
	end   models.Date
	start models.Date
}

// statementPeriods lists the columns a statement can fill, newest first.
// Only facts some rule of the statement would accept count, so a cover-page
// share count or a foreign-currency fact never becomes a column. Several
// durations may end on one date in interim filings (quarter and year to
// date); the longest span wins so every concept of a column covers the
// same span.
func (a *Assembler) statementPeriods(bag models.FactBag, pt models.PeriodType, ruleList []*rules.Rule) []period {
	currency := bag.ReportingCurrency()
	byEnd := make(map[string]*period)
	var out []*period

	for _, f := range bag.Facts {
		if f.PeriodType != pt || f.PeriodDate.IsZero() || f.IsAbstract {
			continue
		}
		if !a.acceptedByAny(f, ruleList, currency) {
			continue
		}
		k := f.PeriodDate.Key()
		p, ok := byEnd[k]
		if !ok {
			p = &period{end: f.PeriodDate}
			byEnd[k] = p
			out = append(out, p)
		}
		if pt == models.PeriodDuration && !f.PeriodStart.IsZero() &&
			(p.start.IsZero() || f.PeriodStart.Before(p.start.Time)) {
			p.start = f.PeriodStart
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].end.After(out[j].end.Time) })
	periods := make([]period, len(out))
	for i, p := range out {
		periods[i] = *p
	}
	return periods
}

// acceptedByAny reports whether some rule would resolve from f: it matches
// the rule, has the rule's period type and, for monetary rules, is in the
// reporting currency.
func (a *Assembler) acceptedByAny(f models.TaggedFact, ruleList []*rules.Rule, currency string) bool {
	for _, r := range ruleList {
		if f.PeriodType != r.PeriodType {
			continue
		}
		if r.Monetary && currency != "" && f.NormalizedUnit() != currency {
			continue
		}
		if a.resolver.Matches(f, r) {
			return true
		}
	}
	return false
}

func (a *Assembler) resolvePeriod(bag models.FactBag, p period, ruleList []*rules.Rule) (map[string]models.LineItem, []Exclusion) {
	items := make(map[string]models.LineItem, len(ruleList))
	var excluded []Exclusion

	col := models.FactBag{Entity: bag.Entity, Currency: bag.ReportingCurrency()}
	if !p.end.IsZero() {
		col = bag.ForPeriod(p.end)
	}
	if !p.start.IsZero() {
		col = spanning(col, p.start)
	}
	for _, r := range ruleList {
		res := a.resolver.Resolve(col, r)
		items[r.Concept] = res.LineItem()
		excluded = append(excluded, res.Excluded...)
	}
	return items, excluded
}

// spanning drops durations that start after start. Instants and durations
// with no start date are kept.
func spanning(bag models.FactBag, start models.Date) models.FactBag {
	out := models.FactBag{Entity: bag.Entity, Currency: bag.Currency}
	for _, f := range bag.Facts {
		if f.PeriodType == models.PeriodDuration && !f.PeriodStart.IsZero() && f.PeriodStart.After(start.Time) {
			continue
		}
		out.Facts = append(out.Facts, f)
	}
	return out
}

// undatedExclusions notes facts with no period date that some rule would
// otherwise have picked up. They never reach a period scan.
func (a *Assembler) undatedExclusions(bag models.FactBag) []Exclusion {
	var out []Exclusion
	for _, f := range bag.Undated() {
		for _, c := range a.rules.Concepts() {
			r, _ := a.rules.Get(c)
			if !a.resolver.Matches(f, r) {
				continue
			}
			out = append(out, Exclusion{
				Concept: r.Concept,
				Tag:     f.ConceptTag,
				Label:   f.Label,
				Value:   f.Value,
				Reason:  "missing period date",
			})
			break
		}
	}
	return out
}

func periodTypeOf(st models.StatementType) models.PeriodType {
	if st == models.BalanceSheet {
		return models.PeriodInstant
	}
	return models.PeriodDuration
}

func hasUsableFact(bag models.FactBag) bool {
	for _, f := range bag.Facts {
		if !f.PeriodDate.IsZero() && f.Unit != "" {
			return true
		}
	}
	return false
}
