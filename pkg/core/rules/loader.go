package rules

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"statement_engine/pkg/core/utils"
	"statement_engine/pkg/models"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Format selects the rule file syntax.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatHJSON Format = "hjson"
)

// =============================================================================
// RULE FILE SCHEMA
// =============================================================================

type ruleFile struct {
	Version  string       `yaml:"version" json:"version" validate:"required"`
	Concepts []conceptDoc `yaml:"concepts" json:"concepts" validate:"required,min=1,dive"`
}

type conceptDoc struct {
	Concept    string        `yaml:"concept" json:"concept" validate:"required"`
	Statement  string        `yaml:"statement" json:"statement" validate:"required,oneof=balance_sheet income_statement cash_flow"`
	PeriodType string        `yaml:"period_type" json:"period_type" validate:"required,oneof=instant duration"`
	Monetary   *bool         `yaml:"monetary" json:"monetary"`
	Strategies []strategyDoc `yaml:"strategies" json:"strategies" validate:"required,min=1,dive"`
}

type strategyDoc struct {
	DirectMatch      *directDoc  `yaml:"direct_match" json:"direct_match"`
	SegmentAggregate *segmentDoc `yaml:"segment_aggregate" json:"segment_aggregate"`
	KeywordFallback  *keywordDoc `yaml:"keyword_fallback" json:"keyword_fallback"`
}

type directDoc struct {
	Tags     []string `yaml:"tags" json:"tags" validate:"required,min=1,dive,required"`
	MaxLevel *int     `yaml:"max_level" json:"max_level" validate:"omitempty,gte=0"`
}

type segmentDoc struct {
	LabelPattern string   `yaml:"label_pattern" json:"label_pattern" validate:"required"`
	Exclusions   []string `yaml:"exclusions" json:"exclusions" validate:"dive,required"`
}

type keywordDoc struct {
	Keywords   []string `yaml:"keywords" json:"keywords" validate:"required,min=1,dive,required"`
	MaxLevel   *int     `yaml:"max_level" json:"max_level" validate:"omitempty,gte=0"`
	Exclusions []string `yaml:"exclusions" json:"exclusions" validate:"dive,required"`
}

var validate = validator.New()

// =============================================================================
// LOADING
// =============================================================================

var defaultSet = sync.OnceValue(func() *RuleSet {
	rs, err := Parse(defaultRulesYAML, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rule table is invalid: %v", err))
	}
	return rs
})

// Default returns the built-in rule table. It is parsed once per process.
func Default() *RuleSet {
	return defaultSet()
}

// LoadFile reads a rule table from disk; the extension picks the syntax
// (.yaml/.yml, or .hjson/.json).
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Parse(data, FormatYAML)
	case ".hjson", ".json":
		return Parse(data, FormatHJSON)
	default:
		return nil, fmt.Errorf("read rules: unsupported extension %q", filepath.Ext(path))
	}
}

// Parse decodes, validates and compiles a rule table.
func Parse(data []byte, format Format) (*RuleSet, error) {
	var doc ruleFile
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
	case FormatHJSON:
		// Hjson is a superset of JSON; normalise then decode strictly.
		normalized, err := utils.ParseHJSON(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
		if err := json.Unmarshal([]byte(normalized), &doc); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
	default:
		return nil, fmt.Errorf("parse rules: unknown format %q", format)
	}

	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("validate rules: %w", err)
	}
	return compile(doc)
}

func compile(doc ruleFile) (*RuleSet, error) {
	seen := make(map[string]bool, len(doc.Concepts))
	compiled := make([]*Rule, 0, len(doc.Concepts))

	for _, c := range doc.Concepts {
		if seen[c.Concept] {
			return nil, fmt.Errorf("compile rules: duplicate concept %s", c.Concept)
		}
		seen[c.Concept] = true

		rule := &Rule{
			Concept:    c.Concept,
			Statement:  models.StatementType(c.Statement),
			PeriodType: models.PeriodType(c.PeriodType),
			Monetary:   c.Monetary == nil || *c.Monetary,
		}
		for i, s := range c.Strategies {
			strat, err := compileStrategy(s)
			if err != nil {
				return nil, fmt.Errorf("compile rules: %s strategy %d: %w", c.Concept, i+1, err)
			}
			rule.Strategies = append(rule.Strategies, strat)
		}
		compiled = append(compiled, rule)
	}
	return newRuleSet(doc.Version, compiled), nil
}

func compileStrategy(s strategyDoc) (Strategy, error) {
	cases := 0
	for _, set := range []bool{s.DirectMatch != nil, s.SegmentAggregate != nil, s.KeywordFallback != nil} {
		if set {
			cases++
		}
	}
	if cases != 1 {
		return nil, fmt.Errorf("expected exactly one strategy kind, got %d", cases)
	}

	switch {
	case s.DirectMatch != nil:
		return DirectMatch{
			Tags:     append([]string(nil), s.DirectMatch.Tags...),
			MaxLevel: levelOrDefault(s.DirectMatch.MaxLevel),
		}, nil

	case s.SegmentAggregate != nil:
		label, err := compilePattern(s.SegmentAggregate.LabelPattern)
		if err != nil {
			return nil, err
		}
		excl, err := compilePatterns(s.SegmentAggregate.Exclusions)
		if err != nil {
			return nil, err
		}
		return SegmentAggregate{LabelPattern: label, Exclusions: excl}, nil

	default:
		excl, err := compilePatterns(s.KeywordFallback.Exclusions)
		if err != nil {
			return nil, err
		}
		keywords := make([]string, 0, len(s.KeywordFallback.Keywords))
		for _, k := range s.KeywordFallback.Keywords {
			keywords = append(keywords, strings.ToLower(k))
		}
		return KeywordFallback{
			Keywords:   keywords,
			MaxLevel:   levelOrDefault(s.KeywordFallback.MaxLevel),
			Exclusions: excl,
		}, nil
	}
}

// levelOrDefault keeps an explicit max_level, zero included.
func levelOrDefault(level *int) int {
	if level == nil {
		return DefaultMaxLevel
	}
	return *level
}

func compilePattern(p string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + p)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", p, err)
	}
	return re, nil
}

func compilePatterns(ps []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(ps))
	for _, p := range ps {
		re, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
