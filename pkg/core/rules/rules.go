// Package rules holds the versioned concept resolution table: for every
// canonical concept, the ordered strategies used to find it among a
// filing's tagged facts. A RuleSet is built once and never mutated, so a
// single instance is shared by every request without locking.
package rules

import (
	"regexp"

	"statement_engine/pkg/models"
)

// DefaultMaxLevel bounds how deep in the presentation hierarchy a direct
// or keyword match may sit.
const DefaultMaxLevel = 2

// =============================================================================
// STRATEGIES (closed sum type)
// =============================================================================

// Strategy is one way of resolving a concept. The set of implementations
// is closed: DirectMatch, SegmentAggregate and KeywordFallback.
type Strategy interface {
	Tier() models.Tier
	sealed()
}

// DirectMatch selects the first fact carrying one of Tags, in tag order.
type DirectMatch struct {
	Tags     []string
	MaxLevel int
}

// SegmentAggregate sums per-segment facts when no consolidated total exists.
type SegmentAggregate struct {
	LabelPattern *regexp.Regexp
	Exclusions   []*regexp.Regexp
}

// KeywordFallback searches labels for domain keywords.
type KeywordFallback struct {
	Keywords   []string
	MaxLevel   int
	Exclusions []*regexp.Regexp
}

func (DirectMatch) Tier() models.Tier      { return models.TierDirectMatch }
func (SegmentAggregate) Tier() models.Tier { return models.TierSegmentAggregate }
func (KeywordFallback) Tier() models.Tier  { return models.TierKeywordFallback }

func (DirectMatch) sealed()      {}
func (SegmentAggregate) sealed() {}
func (KeywordFallback) sealed()  {}

// Excluded reports whether label hits any exclusion pattern.
func Excluded(label string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(label) {
			return true
		}
	}
	return false
}

// =============================================================================
// RULES
// =============================================================================

// Rule maps one canonical concept to its strategies in priority order.
type Rule struct {
	Concept    string
	Statement  models.StatementType
	PeriodType models.PeriodType
	Monetary   bool
	Strategies []Strategy
}

// RuleSet is the immutable, versioned rule table.
type RuleSet struct {
	version string
	order   []string
	byName  map[string]*Rule
}

func newRuleSet(version string, rules []*Rule) *RuleSet {
	rs := &RuleSet{
		version: version,
		byName:  make(map[string]*Rule, len(rules)),
	}
	for _, r := range rules {
		rs.order = append(rs.order, r.Concept)
		rs.byName[r.Concept] = r
	}
	return rs
}

// Version identifies the table, recorded on every report.
func (rs *RuleSet) Version() string { return rs.version }

// Get returns the rule for a canonical concept.
func (rs *RuleSet) Get(concept string) (*Rule, bool) {
	r, ok := rs.byName[concept]
	return r, ok
}

// Concepts lists every concept in table order.
func (rs *RuleSet) Concepts() []string {
	return append([]string(nil), rs.order...)
}

// ForStatement returns the statement's rules in table order.
func (rs *RuleSet) ForStatement(t models.StatementType) []*Rule {
	var out []*Rule
	for _, c := range rs.order {
		if r := rs.byName[c]; r.Statement == t {
			out = append(out, r)
		}
	}
	return out
}

// Len is the number of concepts.
func (rs *RuleSet) Len() int { return len(rs.order) }
