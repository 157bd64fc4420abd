package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"statement_engine/pkg/models"
)

// =============================================================================
// INLINE XBRL
// =============================================================================

// ErrNoInlineFacts is returned when a document carries no ix:nonFraction tags.
var ErrNoInlineFacts = errors.New("no inline XBRL numeric facts found")

// DimensionalLevel is the hierarchy level given to facts reported against
// a dimensional context (segment, product or geographic members). It sits
// below the default direct-match and keyword depth, so only segment
// aggregation picks them up.
const DimensionalLevel = 3

type ixMember struct {
	axis   string
	member string
}

type ixContext struct {
	date    models.Date
	start   models.Date
	period  models.PeriodType
	members []ixMember
}

// ParseInlineXBRL extracts numeric facts from an inline XBRL (iXBRL)
// filing. Facts whose context cannot be found are kept undated.
func ParseInlineXBRL(data []byte) (models.FactBag, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return models.FactBag{}, fmt.Errorf("parse inline XBRL: %w", err)
	}

	contexts := parseContexts(doc)
	units := parseUnits(doc)

	bag := models.FactBag{Entity: registrantName(doc)}
	seen := make(map[string]bool)

	doc.Find(`ix\:nonfraction`).Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.AttrOr("name", ""))
		ctxRef := strings.TrimSpace(s.AttrOr("contextref", ""))
		if name == "" {
			return
		}
		key := name + "|" + ctxRef
		if seen[key] {
			return
		}

		value, ok := inlineValue(s)
		if !ok {
			return
		}
		seen[key] = true

		fact := models.TaggedFact{
			ConceptTag:     name,
			Value:          value,
			Unit:           units[s.AttrOr("unitref", "")],
			HierarchyLevel: 2,
		}
		label := rowLabel(s)
		if label == "" {
			label = splitCamel(fact.LocalName())
		}
		if strings.HasPrefix(strings.ToLower(label), "total") {
			fact.HierarchyLevel = 1
		}

		if c, ok := contexts[ctxRef]; ok {
			fact.PeriodDate = c.date
			fact.PeriodStart = c.start
			fact.PeriodType = c.period
			if len(c.members) > 0 {
				// segment rows are labelled by member; use the concept name
				fact.HierarchyLevel = DimensionalLevel
				label = memberLabel(c.members[0]) + splitCamel(fact.LocalName())
			}
		}
		fact.Label = label
		bag.Facts = append(bag.Facts, fact)
	})

	if len(bag.Facts) == 0 {
		return models.FactBag{}, ErrNoInlineFacts
	}
	return bag, nil
}

func parseContexts(doc *goquery.Document) map[string]ixContext {
	out := make(map[string]ixContext)
	doc.Find(`xbrli\:context`).Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		if id == "" {
			return
		}
		var c ixContext
		if inst := strings.TrimSpace(s.Find(`xbrli\:instant`).First().Text()); inst != "" {
			c.period = models.PeriodInstant
			c.date, _ = models.ParseDate(inst)
		} else if end := strings.TrimSpace(s.Find(`xbrli\:enddate`).First().Text()); end != "" {
			c.period = models.PeriodDuration
			c.date, _ = models.ParseDate(end)
			if start := strings.TrimSpace(s.Find(`xbrli\:startdate`).First().Text()); start != "" {
				c.start, _ = models.ParseDate(start)
			}
		}
		s.Find(`xbrldi\:explicitmember`).Each(func(_ int, m *goquery.Selection) {
			c.members = append(c.members, ixMember{
				axis:   m.AttrOr("dimension", ""),
				member: strings.TrimSpace(m.Text()),
			})
		})
		out[id] = c
	})
	return out
}

func parseUnits(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find(`xbrli\:unit`).Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		if id == "" {
			return
		}
		if div := s.Find(`xbrli\:divide`); div.Length() > 0 {
			num := models.NormalizeUnit(div.Find(`xbrli\:unitnumerator xbrli\:measure`).First().Text())
			den := models.NormalizeUnit(div.Find(`xbrli\:unitdenominator xbrli\:measure`).First().Text())
			out[id] = num + "/" + den
			return
		}
		out[id] = models.NormalizeUnit(s.Find(`xbrli\:measure`).First().Text())
	})
	return out
}

func registrantName(doc *goquery.Document) string {
	name := ""
	doc.Find(`ix\:nonnumeric`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), "dei:EntityRegistrantName") {
			name = strings.TrimSpace(s.Text())
			return false
		}
		return true
	})
	return name
}

// inlineValue applies the ix:nonFraction format, scale and sign attributes.
func inlineValue(s *goquery.Selection) (decimal.Decimal, bool) {
	text := strings.TrimSpace(s.Text())
	format := strings.ToLower(s.AttrOr("format", ""))

	v := decimal.Zero
	if !strings.Contains(format, "zero") {
		if strings.Contains(format, "numcommadecimal") || strings.Contains(format, "num-comma-decimal") {
			text = strings.NewReplacer(".", "", ",", ".").Replace(text)
		}
		d, ok := ParseAmount(text)
		if !ok {
			return decimal.Zero, false
		}
		v = d
	}

	if scale, err := strconv.Atoi(s.AttrOr("scale", "0")); err == nil && scale != 0 {
		v = v.Shift(int32(scale))
	}
	if s.AttrOr("sign", "") == "-" {
		v = v.Neg()
	}
	return v, true
}

// rowLabel is the first non-empty cell of the table row holding the tag.
func rowLabel(s *goquery.Selection) string {
	label := ""
	s.Closest("tr").Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		if td.Find(`ix\:nonfraction`).Length() > 0 {
			return false
		}
		if t := strings.Join(strings.Fields(td.Text()), " "); t != "" {
			label = t
			return false
		}
		return true
	})
	return label
}

// memberLabel renders a dimension member as a label prefix. Members on a
// segment axis read "<member> segment ", others just "<member> ".
func memberLabel(m ixMember) string {
	local := m.member
	if i := strings.LastIndex(local, ":"); i >= 0 {
		local = local[i+1:]
	}
	words := splitCamel(strings.TrimSuffix(strings.TrimSuffix(local, "Member"), "Segment"))
	if strings.Contains(m.axis, "Segment") {
		return words + " segment "
	}
	return words + " "
}
