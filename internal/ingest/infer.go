package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/tablestore"
)

// nullTokens are cell values read as NULL after trimming.
var nullTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"#N/A": true,
	"NULL": true,
	"null": true,
	"NaN":  true,
	"nan":  true,
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
}

// cleanCell trims a raw value and maps null tokens to nil.
func cleanCell(raw string) *string {
	value := strings.TrimSpace(raw)
	if nullTokens[value] {
		return nil
	}
	return &value
}

// inferType picks the narrowest logical type that every non-null value fits.
func inferType(values []*string) tablestore.ColumnType {
	seen := false
	allInt, allFloat, allTime := true, true, true
	for _, value := range values {
		if value == nil {
			continue
		}
		seen = true
		if allInt {
			if _, err := strconv.ParseInt(*value, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat && !allInt {
			if _, ok := parseFloat(*value); !ok {
				allFloat = false
			}
		}
		if allTime {
			if _, ok := parseDateTime(*value); !ok {
				allTime = false
			}
		}
		if !allInt && !allFloat && !allTime {
			break
		}
	}
	switch {
	case !seen:
		return tablestore.TypeString
	case allInt:
		return tablestore.TypeInteger
	case allFloat:
		return tablestore.TypeFloat
	case allTime:
		return tablestore.TypeDateTime
	default:
		return tablestore.TypeString
	}
}

// convert turns a cleaned value into the Go value stored for columnType.
// Inference guarantees the parse succeeds.
func convert(value *string, columnType tablestore.ColumnType) any {
	if value == nil {
		return nil
	}
	switch columnType {
	case tablestore.TypeInteger:
		n, _ := strconv.ParseInt(*value, 10, 64)
		return n
	case tablestore.TypeFloat:
		f, _ := parseFloat(*value)
		return f
	case tablestore.TypeDateTime:
		ts, _ := parseDateTime(*value)
		return ts
	default:
		return *value
	}
}

// parseFloat accepts plain decimal and exponent notation only.
func parseFloat(value string) (float64, bool) {
	if !strings.ContainsAny(value, "0123456789") {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseDateTime(value string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
