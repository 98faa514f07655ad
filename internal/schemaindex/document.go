package schemaindex

import (
	"strings"

	"github.com/tabletalk/tabletalk/internal/tablestore"
	"github.com/tabletalk/tabletalk/internal/vectorindex"
)

const (
	MetadataTable    = "table"
	MetadataDatabase = "database"
)

// FormatDocument renders the embedded text of one table:
//
//	Table: <t>
//	Columns: <c1>, <c2>
//	Types: <T1>, <T2>
func FormatDocument(table string, columns []tablestore.Column) string {
	names := make([]string, 0, len(columns))
	types := make([]string, 0, len(columns))
	for _, column := range columns {
		names = append(names, column.Name)
		types = append(types, column.Type)
	}
	return "Table: " + table + "\nColumns: " + strings.Join(names, ", ") + "\nTypes: " + strings.Join(types, ", ")
}

// parseDocument reverses FormatDocument. ok is false when the text has no
// Table line.
func parseDocument(content string) (table string, columns []tablestore.Column, ok bool) {
	var names, types []string
	for _, line := range strings.Split(content, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Table":
			table, ok = value, value != ""
		case "Columns":
			names = splitList(value)
		case "Types":
			types = splitList(value)
		}
	}
	for i, name := range names {
		column := tablestore.Column{Name: name}
		if i < len(types) {
			column.Type = types[i]
		}
		columns = append(columns, column)
	}
	return table, columns, ok
}

// splitList splits on ", " so types such as DECIMAL(18,3) stay whole.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ", ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// tableOf is the indexed identity of a document: its table metadata, or the
// Table line for documents written without metadata.
func tableOf(doc vectorindex.Document) string {
	if table := strings.TrimSpace(doc.Metadata[MetadataTable]); table != "" {
		return table
	}
	table, _, _ := parseDocument(doc.Content)
	return table
}

// sameStructure compares ordered (name, type) lists. Names are trimmed and
// types compare case-insensitively.
func sameStructure(indexed, live []tablestore.Column) bool {
	if len(indexed) != len(live) {
		return false
	}
	for i := range indexed {
		if strings.TrimSpace(indexed[i].Name) != strings.TrimSpace(live[i].Name) {
			return false
		}
		if !strings.EqualFold(strings.TrimSpace(indexed[i].Type), strings.TrimSpace(live[i].Type)) {
			return false
		}
	}
	return true
}
