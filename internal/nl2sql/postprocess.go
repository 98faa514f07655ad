package nl2sql

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// CleanQuery turns a raw completion into query text: whitespace trimmed,
// every code fence removed wherever it appears, and each % doubled.
func CleanQuery(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = fencePattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	return strings.ReplaceAll(cleaned, "%", "%%")
}

// ExecutableQuery reverses the % doubling of CleanQuery. database/sql
// drivers do not apply printf-style substitution.
func ExecutableQuery(queryText string) string {
	return strings.ReplaceAll(queryText, "%%", "%")
}
