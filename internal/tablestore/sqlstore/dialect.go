package sqlstore

import (
	"strings"

	"github.com/tabletalk/tabletalk/internal/tablestore"
)

const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

type dialect struct {
	name          string
	columnTypes   map[tablestore.ColumnType]string
	setSearchPath func(schema string) string
	resetPath     string
}

var dialects = map[string]dialect{
	DriverDuckDB: {
		name: "DuckDB",
		columnTypes: map[tablestore.ColumnType]string{
			tablestore.TypeInteger:  "BIGINT",
			tablestore.TypeFloat:    "DOUBLE",
			tablestore.TypeDateTime: "TIMESTAMP",
			tablestore.TypeString:   "VARCHAR",
		},
		setSearchPath: func(schema string) string {
			return "SET search_path = " + quoteLiteral(schema)
		},
		resetPath: "RESET search_path",
	},
	DriverPostgres: {
		name: "PostgreSQL",
		columnTypes: map[tablestore.ColumnType]string{
			tablestore.TypeInteger:  "BIGINT",
			tablestore.TypeFloat:    "DOUBLE PRECISION",
			tablestore.TypeDateTime: "TIMESTAMP",
			tablestore.TypeString:   "TEXT",
		},
		setSearchPath: func(schema string) string {
			return "SET search_path TO " + quoteIdent(schema)
		},
		resetPath: "RESET search_path",
	},
}

func (d dialect) columnType(columnType tablestore.ColumnType) string {
	if sqlType, ok := d.columnTypes[columnType]; ok {
		return sqlType
	}
	return d.columnTypes[tablestore.TypeString]
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func qualified(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}
