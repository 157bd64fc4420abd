package rules

import (
	"encoding/json"
	"regexp"
	"strings"

	"statement_engine/pkg/models"
)

// StrategyView is the display form of one strategy.
type StrategyView struct {
	Tier         models.Tier `json:"tier"`
	Tags         []string    `json:"tags,omitempty"`
	Keywords     []string    `json:"keywords,omitempty"`
	LabelPattern string      `json:"label_pattern,omitempty"`
	Exclusions   []string    `json:"exclusions,omitempty"`
	MaxLevel     *int        `json:"max_level,omitempty"`
}

// RuleView is the display form of one rule.
type RuleView struct {
	Concept    string               `json:"concept"`
	Statement  models.StatementType `json:"statement"`
	PeriodType models.PeriodType    `json:"period_type"`
	Monetary   bool                 `json:"monetary"`
	Strategies []StrategyView       `json:"strategies"`
}

// Describe renders every rule in table order.
func (rs *RuleSet) Describe() []RuleView {
	out := make([]RuleView, 0, rs.Len())
	for _, c := range rs.order {
		r := rs.byName[c]
		v := RuleView{
			Concept:    r.Concept,
			Statement:  r.Statement,
			PeriodType: r.PeriodType,
			Monetary:   r.Monetary,
		}
		for _, s := range r.Strategies {
			v.Strategies = append(v.Strategies, describeStrategy(s))
		}
		out = append(out, v)
	}
	return out
}

// MarshalJSON emits {"version": ..., "concepts": [...]}.
func (rs *RuleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Version  string     `json:"version"`
		Concepts []RuleView `json:"concepts"`
	}{rs.version, rs.Describe()})
}

func describeStrategy(s Strategy) StrategyView {
	v := StrategyView{Tier: s.Tier()}
	switch st := s.(type) {
	case DirectMatch:
		v.Tags = st.Tags
		v.MaxLevel = &st.MaxLevel
	case SegmentAggregate:
		v.LabelPattern = patternSource(st.LabelPattern)
		v.Exclusions = patternSources(st.Exclusions)
	case KeywordFallback:
		v.Keywords = st.Keywords
		v.MaxLevel = &st.MaxLevel
		v.Exclusions = patternSources(st.Exclusions)
	}
	return v
}

func patternSource(p *regexp.Regexp) string {
	if p == nil {
		return ""
	}
	return strings.TrimPrefix(p.String(), "(?i)")
}

func patternSources(ps []*regexp.Regexp) []string {
	var out []string
	for _, p := range ps {
		out = append(out, patternSource(p))
	}
	return out
}
