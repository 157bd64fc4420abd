// Package ingest decodes caller-supplied filings into a FactBag. Adapters
// only transform bytes already in hand; nothing here touches the network.
package ingest

import (
	"fmt"
	"strings"

	"statement_engine/pkg/core/utils"
	"statement_engine/pkg/models"
)

// Format names an input encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatIXBRL    Format = "ixbrl"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts the CLI/API spellings of a format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json", "factbag":
		return FormatJSON, nil
	case "ixbrl", "html", "xhtml":
		return FormatIXBRL, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown input format %q", s)
}

// Options carries the hints some formats need.
type Options struct {
	Entity    string
	Currency  string
	TableType models.StatementType // markdown only
}

// Decode dispatches to the adapter for format.
func Decode(data []byte, format Format, opts Options) (models.FactBag, error) {
	var (
		bag models.FactBag
		err error
	)
	switch format {
	case FormatJSON:
		bag, err = DecodeFactBag(data)
	case FormatIXBRL:
		bag, err = ParseInlineXBRL(data)
	case FormatMarkdown:
		bag, err = ParseMarkdownTable(string(data), opts.TableType, opts.Currency)
	default:
		return models.FactBag{}, fmt.Errorf("unknown input format %q", format)
	}
	if err != nil {
		return models.FactBag{}, err
	}

	if opts.Entity != "" {
		bag.Entity = opts.Entity
	}
	if opts.Currency != "" && bag.Currency == "" {
		bag.Currency = models.NormalizeUnit(opts.Currency)
	}
	return bag, nil
}

// DecodeFactBag reads a FactBag from JSON. Hand-edited or slightly broken
// JSON (trailing commas, comments, unquoted keys) is repaired first.
func DecodeFactBag(data []byte) (models.FactBag, error) {
	var bag models.FactBag
	if len(strings.TrimSpace(string(data))) == 0 {
		return bag, fmt.Errorf("decode fact bag: empty input")
	}
	if _, err := utils.SmartParse(utils.CleanMarkdown(string(data)), &bag); err != nil {
		return models.FactBag{}, fmt.Errorf("decode fact bag: %w", err)
	}
	return bag, nil
}
