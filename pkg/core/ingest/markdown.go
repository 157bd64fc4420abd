package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"statement_engine/pkg/core/utils"
	"statement_engine/pkg/models"
)

// =============================================================================
// MARKDOWN TABLES
// =============================================================================

var (
	// ErrNoTable is returned when the input holds no pipe table.
	ErrNoTable = errors.New("no markdown table found")
	// ErrNoPeriodColumns is returned when no header cell names a period.
	ErrNoPeriodColumns = errors.New("no period columns in table header")
)

var (
	monthDate = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
	isoDate   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	usDate    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	yearOnly  = regexp.MustCompile(`^\D*((?:19|20)\d{2})\D*$`)

	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
		"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
		"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
	}

	tableParser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()
)

type mdTable struct {
	header []string
	rows   [][]string
}

// ParseMarkdownTable turns a statement rendered as a markdown pipe table
// into tagged facts. The first column holds line labels and every other
// column whose header names a date is a period. tableType may be empty,
// in which case it is inferred from the row labels.
func ParseMarkdownTable(markdown string, tableType models.StatementType, currency string) (models.FactBag, error) {
	src := []byte(utils.CleanMarkdown(markdown))
	tables, caption := collectTables(src)
	if len(tables) == 0 {
		return models.FactBag{}, ErrNoTable
	}

	if tableType == "" {
		tableType = inferTableType(tables)
	} else if !tableType.Valid() {
		return models.FactBag{}, fmt.Errorf("unknown table type %q", tableType)
	}
	periodType := models.PeriodDuration
	if tableType == models.BalanceSheet {
		periodType = models.PeriodInstant
	}
	if currency == "" {
		currency = "USD"
	}
	currency = models.NormalizeUnit(currency)

	bag := models.FactBag{Currency: currency}
	for _, tbl := range tables {
		exp, _ := DetectScale(caption + " " + strings.Join(tbl.header, " "))
		facts, err := tableFacts(tbl, periodType, currency, exp, len(bag.Facts))
		if err != nil {
			return models.FactBag{}, err
		}
		bag.Facts = append(bag.Facts, facts...)
	}
	return bag, nil
}

func tableFacts(tbl mdTable, pt models.PeriodType, currency string, exp int32, offset int) ([]models.TaggedFact, error) {
	dates := columnDates(tbl.header)
	rows := tbl.rows
	if len(dates) == 0 && len(rows) > 0 && rows[0][0] == "" {
		// dates on a sub-header row under a caption header
		dates = columnDates(rows[0])
		rows = rows[1:]
	}
	if len(dates) == 0 {
		return nil, ErrNoPeriodColumns
	}

	var facts []models.TaggedFact
	underHeading := false
	for i, row := range rows {
		label := row[0]
		if label == "" {
			continue
		}
		tag := "md:row" + strconv.Itoa(offset+i+1)

		abstract := strings.HasSuffix(label, ":")
		if !abstract {
			abstract = true
			for _, dc := range dates {
				if dc.col < len(row) && !isNil(row[dc.col]) {
					abstract = false
					break
				}
			}
		}
		label = strings.TrimSpace(strings.TrimSuffix(label, ":"))

		if abstract {
			underHeading = true
			for _, dc := range dates {
				facts = append(facts, models.TaggedFact{
					ConceptTag: tag, PeriodDate: dc.date, PeriodType: pt,
					Unit: currency, HierarchyLevel: 1, Label: label, IsAbstract: true,
				})
			}
			continue
		}

		level := 1
		if underHeading && !strings.HasPrefix(strings.ToLower(label), "total") {
			level = 2
		}
		unit, shift := currency, exp
		if strings.Contains(strings.ToLower(label), "per share") {
			unit, shift = currency+"/SHARES", 0
		}

		for _, dc := range dates {
			if dc.col >= len(row) {
				continue
			}
			v, ok := ParseAmount(row[dc.col])
			if !ok {
				continue
			}
			facts = append(facts, models.TaggedFact{
				ConceptTag:     tag,
				Value:          v.Shift(shift),
				PeriodDate:     dc.date,
				PeriodType:     pt,
				Unit:           unit,
				HierarchyLevel: level,
				Label:          label,
			})
		}
	}
	return facts, nil
}

// collectTables walks the document once, returning every table and the
// text of the headings and paragraphs around them.
func collectTables(src []byte) ([]mdTable, string) {
	doc := tableParser.Parse(text.NewReader(src))

	var (
		tables  []mdTable
		caption []string
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *east.Table:
			tables = append(tables, readTable(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading:
			caption = append(caption, nodeText(node, src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return tables, strings.Join(caption, " ")
}

func readTable(t *east.Table, src []byte) mdTable {
	var out mdTable
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, nodeText(cell, src))
		}
		if len(cells) == 0 {
			continue
		}
		if _, ok := row.(*east.TableHeader); ok {
			out.header = cells
			continue
		}
		out.rows = append(out.rows, cells)
	}
	return out
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

type dateColumn struct {
	col  int
	date models.Date
}

// columnDates lists, left to right, the header cells naming a period.
// Column 0 is the label column and is never a period.
func columnDates(header []string) []dateColumn {
	var out []dateColumn
	for i := 1; i < len(header); i++ {
		if d, ok := headerDate(header[i]); ok {
			out = append(out, dateColumn{col: i, date: d})
		}
	}
	return out
}

// headerDate reads "Sep. 28, 2024", "December 31, 2024", "2024-12-31" or
// "12/31/2024". A bare fiscal year ("2024", "FY2024") is taken as
// December 31 of that year.
func headerDate(s string) (models.Date, bool) {
	if m := monthDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return models.NewDate(year, months[strings.ToLower(m[1])], day), true
	}
	if m := isoDate.FindString(s); m != "" {
		if d, err := models.ParseDate(m); err == nil {
			return d, true
		}
	}
	if m := usDate.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return models.NewDate(year, time.Month(month), day), true
		}
	}
	if m := yearOnly.FindStringSubmatch(strings.TrimSpace(s)); m != nil && !strings.ContainsAny(s, "%") {
		year, _ := strconv.Atoi(m[1])
		return models.NewDate(year, time.December, 31), true
	}
	return models.Date{}, false
}

func inferTableType(tables []mdTable) models.StatementType {
	for _, t := range tables {
		for _, row := range t.rows {
			l := strings.ToLower(row[0])
			switch {
			case strings.Contains(l, "operating activities"), strings.Contains(l, "investing activities"):
				return models.CashFlow
			case strings.Contains(l, "total assets"), strings.Contains(l, "total liabilities"):
				return models.BalanceSheet
			}
		}
	}
	return models.IncomeStatement
}
