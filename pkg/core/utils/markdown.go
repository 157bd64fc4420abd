package utils

import (
	"strings"
)

// CleanMarkdown strips an outer code fence (``` or ```lang) if present.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)
	if !strings.HasPrefix(cleaned, "```") || !strings.HasSuffix(cleaned, "```") || len(cleaned) < 6 {
		return cleaned
	}

	cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "```"), "```")
	// drop the info string ("markdown", "json") on the opening line
	if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 && !strings.ContainsAny(cleaned[:nl], "{[|") {
		cleaned = cleaned[nl+1:]
	}
	return strings.TrimSpace(cleaned)
}
