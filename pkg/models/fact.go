package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TAGGED FACTS
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar date (period end or instant).
type Date struct {
	time.Time
}

// NewDate builds a UTC calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "2006-01-02" or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid period date %q", s)
	}
	y, m, d := t.Date()
	return NewDate(y, m, d), nil
}

// Key is the canonical string form, used for grouping.
func (d Date) Key() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) String() string { return d.Key() }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Key())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PeriodType distinguishes point-in-time (balance sheet) from
// period-spanning (income / cash flow) facts.
type PeriodType string

const (
	PeriodInstant  PeriodType = "instant"
	PeriodDuration PeriodType = "duration"
)

// Valid reports whether p is one of the known period types.
func (p PeriodType) Valid() bool {
	return p == PeriodInstant || p == PeriodDuration
}

// TaggedFact is one (concept, value, period, unit) record from a filing.
// PeriodStart is optional and only meaningful for durations.
type TaggedFact struct {
	ConceptTag     string          `json:"concept_tag"`
	Value          decimal.Decimal `json:"value"`
	PeriodDate     Date            `json:"period_date"`
	PeriodStart    Date            `json:"period_start,omitzero"`
	PeriodType     PeriodType      `json:"period_type"`
	Unit           string          `json:"unit"`
	HierarchyLevel int             `json:"hierarchy_level"`
	Label          string          `json:"label"`
	IsAbstract     bool            `json:"is_abstract"`
}

// LocalName strips a taxonomy prefix: "us-gaap:Revenues" -> "Revenues".
func (f TaggedFact) LocalName() string {
	if i := strings.LastIndex(f.ConceptTag, ":"); i >= 0 {
		return f.ConceptTag[i+1:]
	}
	return f.ConceptTag
}

// NormalizedUnit returns the unit upper-cased without an "iso4217:" prefix.
func (f TaggedFact) NormalizedUnit() string {
	return NormalizeUnit(f.Unit)
}

// NormalizeUnit canonicalises unit strings such as "iso4217:usd".
func NormalizeUnit(unit string) string {
	u := strings.TrimSpace(unit)
	if i := strings.LastIndex(u, ":"); i >= 0 {
		u = u[i+1:]
	}
	return strings.ToUpper(u)
}

// isCurrencyCode reports whether a normalized unit looks like ISO 4217.
func isCurrencyCode(u string) bool {
	if len(u) != 3 {
		return false
	}
	for _, r := range u {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// FactBag is every fact of one filing, current and comparable periods.
// It is owned by the caller and never modified by the engine.
type FactBag struct {
	Entity   string       `json:"entity,omitempty"`
	Currency string       `json:"currency,omitempty"`
	Facts    []TaggedFact `json:"facts"`
}

// Len returns the number of facts.
func (b FactBag) Len() int { return len(b.Facts) }

// ReportingCurrency returns the declared currency, or the most frequent
// currency-shaped unit in the bag. Ties go to the unit seen first.
func (b FactBag) ReportingCurrency() string {
	if b.Currency != "" {
		return NormalizeUnit(b.Currency)
	}
	counts := make(map[string]int)
	var order []string
	for _, f := range b.Facts {
		u := f.NormalizedUnit()
		if !isCurrencyCode(u) {
			continue
		}
		if counts[u] == 0 {
			order = append(order, u)
		}
		counts[u]++
	}
	best := ""
	for _, u := range order {
		if counts[u] > counts[best] {
			best = u
		}
	}
	return best
}

// PeriodDates lists distinct non-zero period dates of the given type,
// newest first.
func (b FactBag) PeriodDates(pt PeriodType) []Date {
	seen := make(map[string]bool)
	var dates []Date
	for _, f := range b.Facts {
		if f.PeriodType != pt || f.PeriodDate.IsZero() || f.IsAbstract {
			continue
		}
		k := f.PeriodDate.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		dates = append(dates, f.PeriodDate)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j].Time) })
	return dates
}

// ForPeriod returns the facts dated on d, keeping bag order. Facts of
// the other period type are kept as well so the resolver can report
// them as malformed candidates; abstract rows are kept for the same reason.
func (b FactBag) ForPeriod(d Date) FactBag {
	out := FactBag{Entity: b.Entity, Currency: b.ReportingCurrency()}
	for _, f := range b.Facts {
		if f.PeriodDate.Key() == d.Key() {
			out.Facts = append(out.Facts, f)
		}
	}
	return out
}

// Undated returns facts with no period date at all.
func (b FactBag) Undated() []TaggedFact {
	var out []TaggedFact
	for _, f := range b.Facts {
		if f.PeriodDate.IsZero() {
			out = append(out, f)
		}
	}
	return out
}
