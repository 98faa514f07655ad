package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	whitespacePattern    = regexp.MustCompile(`\s+`)
	nonWordPattern       = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	leadingDigitsPattern = regexp.MustCompile(`^[0-9]+`)
)

// SanitizeName turns a header or file name into a lowercase SQL identifier.
// fallback is used when nothing usable is left.
func SanitizeName(name, fallback string) string {
	name = strings.TrimSpace(name)
	name = whitespacePattern.ReplaceAllString(name, "_")
	name = nonWordPattern.ReplaceAllString(name, "")
	name = leadingDigitsPattern.ReplaceAllString(name, "")
	name = strings.ToLower(name)
	if name == "" {
		return fallback
	}
	return name
}

// columnNames sanitizes headers and suffixes repeats with _2, _3, ...
func columnNames(headers []string) []string {
	seen := make(map[string]bool, len(headers))
	out := make([]string, 0, len(headers))
	for _, header := range headers {
		base := SanitizeName(header, "col")
		name := base
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
