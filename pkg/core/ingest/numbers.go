package ingest

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NUMERIC CELLS
// =============================================================================

var (
	slashDate   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)
	amountChars = regexp.MustCompile(`\d[\d.]*`)
	monthNames  = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
)

// isNil reports whether a cell is an explicit "no value" marker.
func isNil(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "N/A", "n/a", "NM", "*":
		return true
	}
	return false
}

// isDash reports whether a cell holds only a dash, which filings use for zero.
func isDash(s string) bool {
	switch strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "$")) {
	case "-", "—", "–", "−":
		return true
	}
	return false
}

// ParseAmount reads a formatted financial amount such as "$ 1,234",
// "(9,473)" or "−12.5". Parentheses and leading minus signs mean negative;
// a lone dash means zero. Date-looking cells are rejected.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if isNil(s) {
		return decimal.Zero, false
	}
	if isDash(s) {
		return decimal.Zero, true
	}

	lower := strings.ToLower(s)
	for _, m := range monthNames {
		if strings.Contains(lower, m) {
			return decimal.Zero, false
		}
	}
	if slashDate.MatchString(s) {
		return decimal.Zero, false
	}

	s = strings.NewReplacer(",", "", "$", "", " ", "", " ", "", "%", "").Replace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	for _, minus := range []string{"-", "−", "–"} {
		if strings.HasPrefix(s, minus) {
			negative = true
			s = strings.TrimPrefix(s, minus)
			break
		}
	}

	match := amountChars.FindString(s)
	if match == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(match, "."))
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// DetectScale finds the unit multiplier stated in a table caption or
// header, e.g. "(in millions, except per share amounts)". It returns the
// power of ten to shift by and the unit name.
func DetectScale(text string) (int32, string) {
	text = strings.ToLower(text)

	switch {
	case strings.Contains(text, "billion"):
		return 9, "billions"
	case strings.Contains(text, "million"):
		return 6, "millions"
	case strings.Contains(text, "thousand") || strings.Contains(text, "000s"):
		return 3, "thousands"
	}
	return 0, ""
}

// splitCamel turns an XBRL local name into words: "NetIncomeLoss" -> "Net Income Loss".
func splitCamel(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && isUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && !isUpper(runes[i+1])
			if !isUpper(prev) || nextLower {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
