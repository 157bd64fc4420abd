// Package edgar resolves standardized concepts from tagged filing facts
// and assembles them into statements.
package edgar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"statement_engine/pkg/core/rules"
	"statement_engine/pkg/models"
)

// =============================================================================
// FACT RESOLVER
// =============================================================================

// Exclusion records a candidate fact that matched a rule but could not be
// used (wrong period type, foreign unit, no period date).
type Exclusion struct {
	Concept    string          `json:"concept"`
	Tag        string          `json:"tag"`
	Label      string          `json:"label,omitempty"`
	Value      decimal.Decimal `json:"value"`
	PeriodDate models.Date     `json:"period_date"`
	Reason     string          `json:"reason"`
}

// Resolution is the outcome of resolving one concept against one period.
type Resolution struct {
	Concept   string
	Value     models.Value
	Tier      models.Tier
	Source    string
	FactCount int
	Excluded  []Exclusion
}

// LineItem converts the resolution into a statement line.
func (r Resolution) LineItem() models.LineItem {
	return models.LineItem{
		Concept:   r.Concept,
		Value:     r.Value,
		Tier:      r.Tier,
		Source:    r.Source,
		FactCount: r.FactCount,
	}
}

// Resolver applies a rule's strategies to a FactBag. It holds no state
// between calls.
type Resolver struct {
	log zerolog.Logger
}

// NewResolver creates a resolver that logs tier decisions at debug level.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve tries each strategy in rule order and stops at the first that
// produces a value. Nothing is ever defaulted: an unmatched concept comes
// back Unavailable.
func (r *Resolver) Resolve(bag models.FactBag, rule *rules.Rule) Resolution {
	res := Resolution{Concept: rule.Concept}
	sc := &scan{
		rule:     rule,
		currency: bag.ReportingCurrency(),
		noted:    make(map[int]bool),
	}

	for _, strat := range rule.Strategies {
		var ok bool
		switch s := strat.(type) {
		case rules.DirectMatch:
			ok = sc.direct(bag.Facts, s, &res)
		case rules.SegmentAggregate:
			ok = sc.segment(bag.Facts, s, &res)
		case rules.KeywordFallback:
			ok = sc.keyword(bag.Facts, s, &res)
		}
		if ok {
			res.Tier = strat.Tier()
			break
		}
	}
	res.Excluded = sc.excluded

	if res.Tier == models.TierNone {
		res.Value = models.Unavailable("unresolved: no strategy matched " + rule.Concept)
		r.log.Debug().Str("concept", rule.Concept).Int("excluded", len(res.Excluded)).Msg("concept unresolved")
		return res
	}

	r.log.Debug().
		Str("concept", rule.Concept).
		Str("tier", string(res.Tier)).
		Str("source", res.Source).
		Int("facts", res.FactCount).
		Msg("concept resolved")
	return res
}

// Matches reports whether any of the rule's strategies would consider the
// fact a candidate, ignoring period and unit checks.
func (r *Resolver) Matches(f models.TaggedFact, rule *rules.Rule) bool {
	if f.IsAbstract {
		return false
	}
	for _, strat := range rule.Strategies {
		switch s := strat.(type) {
		case rules.DirectMatch:
			for _, tag := range s.Tags {
				if tagMatches(f, tag) {
					return true
				}
			}
		case rules.SegmentAggregate:
			if s.LabelPattern.MatchString(f.Label) && !rules.Excluded(f.Label, s.Exclusions) {
				return true
			}
		case rules.KeywordFallback:
			if keywordHit(f.Label, s) {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// STRATEGY SCANS
// =============================================================================

type scan struct {
	rule     *rules.Rule
	currency string
	noted    map[int]bool
	excluded []Exclusion
}

// usable checks a candidate's period and unit, noting it once if malformed.
func (sc *scan) usable(i int, f models.TaggedFact) bool {
	reason := ""
	switch {
	case f.PeriodDate.IsZero():
		reason = "missing period date"
	case f.PeriodType != sc.rule.PeriodType:
		reason = fmt.Sprintf("period type %q, expected %q", f.PeriodType, sc.rule.PeriodType)
	case sc.rule.Monetary && sc.currency != "" && f.NormalizedUnit() != sc.currency:
		reason = fmt.Sprintf("unit %q is not the reporting currency %s", f.Unit, sc.currency)
	}
	if reason == "" {
		return true
	}
	if !sc.noted[i] {
		sc.noted[i] = true
		sc.excluded = append(sc.excluded, Exclusion{
			Concept:    sc.rule.Concept,
			Tag:        f.ConceptTag,
			Label:      f.Label,
			Value:      f.Value,
			PeriodDate: f.PeriodDate,
			Reason:     reason,
		})
	}
	return false
}

func (sc *scan) direct(facts []models.TaggedFact, s rules.DirectMatch, res *Resolution) bool {
	for _, tag := range s.Tags {
		for i, f := range facts {
			if f.IsAbstract || f.HierarchyLevel > s.MaxLevel || !tagMatches(f, tag) {
				continue
			}
			if !sc.usable(i, f) {
				continue
			}
			res.Value = models.Known(f.Value)
			res.Source = f.ConceptTag
			res.FactCount = 1
			return true
		}
	}
	return false
}

func (sc *scan) segment(facts []models.TaggedFact, s rules.SegmentAggregate, res *Resolution) bool {
	sum := decimal.Zero
	seen := make(map[string]bool)
	var labels []string

	for i, f := range facts {
		if f.IsAbstract || !s.LabelPattern.MatchString(f.Label) || rules.Excluded(f.Label, s.Exclusions) {
			continue
		}
		if !sc.usable(i, f) {
			continue
		}
		// Inline filings repeat the same fact in several tables.
		key := strings.ToLower(f.ConceptTag + "|" + f.Label + "|" + f.Value.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		sum = sum.Add(f.Value)
		labels = append(labels, f.Label)
	}

	if len(labels) == 0 || sum.IsZero() {
		return false
	}
	res.Value = models.Known(sum)
	res.Source = strings.Join(labels, "; ")
	res.FactCount = len(labels)
	return true
}

func (sc *scan) keyword(facts []models.TaggedFact, s rules.KeywordFallback, res *Resolution) bool {
	type hit struct {
		idx   int
		level int
	}
	var hits []hit
	for i, f := range facts {
		if f.IsAbstract || f.HierarchyLevel > s.MaxLevel {
			continue
		}
		if !keywordHit(f.Label, s) {
			continue
		}
		if !sc.usable(i, f) {
			continue
		}
		hits = append(hits, hit{idx: i, level: f.HierarchyLevel})
	}
	if len(hits) == 0 {
		return false
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].level < hits[b].level })
	f := facts[hits[0].idx]
	res.Value = models.Known(f.Value)
	res.Source = f.Label
	res.FactCount = 1
	return true
}

func tagMatches(f models.TaggedFact, tag string) bool {
	return strings.EqualFold(f.ConceptTag, tag) || strings.EqualFold(f.LocalName(), tag)
}

func keywordHit(label string, s rules.KeywordFallback) bool {
	if label == "" || rules.Excluded(label, s.Exclusions) {
		return false
	}
	lower := strings.ToLower(label)
	for _, k := range s.Keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
