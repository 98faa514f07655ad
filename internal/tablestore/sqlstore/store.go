// Package sqlstore implements tablestore.Store over database/sql. Database
// ids are SQL schemas; DuckDB and PostgreSQL differ only in type names and
// search_path syntax.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/tablestore"
)

// maxBindParams keeps one INSERT under PostgreSQL's bind parameter limit.
const maxBindParams = 60000

type Store struct {
	db      *sql.DB
	dialect dialect
}

var (
	_ tablestore.Store  = (*Store)(nil)
	_ tablestore.Writer = (*Store)(nil)
)

func New(db *sql.DB, driver string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported table store driver %q", driver)
	}
	return &Store{db: db, dialect: d}, nil
}

func (s *Store) Dialect() string {
	return s.dialect.name
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT schema_name
FROM information_schema.schemata
WHERE catalog_name = current_database()
  AND schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	return scanStrings(rows, "database")
}

func (s *Store) CreateDatabaseIfAbsent(ctx context.Context, databaseID string) error {
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(databaseID)); err != nil {
		return fmt.Errorf("create database %q: %w", databaseID, err)
	}
	return nil
}

func (s *Store) ListTables(ctx context.Context, databaseID string) ([]string, error) {
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`, databaseID)
	if err != nil {
		return nil, fmt.Errorf("list tables in %q: %w", databaseID, err)
	}
	return scanStrings(rows, "table")
}

func (s *Store) GetColumns(ctx context.Context, databaseID, table string) ([]tablestore.Column, error) {
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, databaseID, table)
	if err != nil {
		return nil, fmt.Errorf("get columns of %q.%q: %w", databaseID, table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]tablestore.Column, 0)
	for rows.Next() {
		var column tablestore.Column
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(columns) > 0 {
		return columns, nil
	}

	exists, err := s.TableExists(ctx, databaseID, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s.%s", tablestore.ErrTableNotFound, databaseID, table)
	}
	return columns, nil
}

func (s *Store) TableExists(ctx context.Context, databaseID, table string) (bool, error) {
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return false, err
	}
	var count int64
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = $1 AND table_name = $2`, databaseID, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %q.%q: %w", databaseID, table, err)
	}
	return count > 0, nil
}

func (s *Store) DropTable(ctx context.Context, databaseID, table string) error {
	if err := validateTarget(databaseID, table); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+qualified(databaseID, table)); err != nil {
		return fmt.Errorf("drop table %q.%q: %w", databaseID, table, err)
	}
	return nil
}

func (s *Store) CreateTable(ctx context.Context, databaseID, table string, columns []tablestore.ColumnDef) error {
	if err := validateTarget(databaseID, table); err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", tablestore.ErrInvalidIdentifier, table)
	}
	defs := make([]string, 0, len(columns))
	for _, column := range columns {
		if strings.TrimSpace(column.Name) == "" {
			return fmt.Errorf("%w: empty column name", tablestore.ErrInvalidIdentifier)
		}
		defs = append(defs, quoteIdent(column.Name)+" "+s.dialect.columnType(column.Type))
	}
	statement := fmt.Sprintf("CREATE TABLE %s (%s)", qualified(databaseID, table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("create table %q.%q: %w", databaseID, table, err)
	}
	return nil
}

// InsertRows writes rows in multi-row INSERT batches inside one transaction.
func (s *Store) InsertRows(ctx context.Context, databaseID, table string, columns []tablestore.ColumnDef, rows [][]any, batchSize int) (int64, error) {
	if err := validateTarget(databaseID, table); err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("%w: table %q has no columns", tablestore.ErrInvalidIdentifier, table)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	if limit := maxBindParams / len(columns); batchSize > limit {
		batchSize = max(1, limit)
	}

	names := make([]string, 0, len(columns))
	for _, column := range columns {
		names = append(names, quoteIdent(column.Name))
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", qualified(databaseID, table), strings.Join(names, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var written int64
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		statement, args, err := buildInsert(prefix, len(columns), rows[start:end])
		if err != nil {
			return 0, err
		}
		result, err := tx.ExecContext(ctx, statement, args...)
		if err != nil {
			return 0, fmt.Errorf("insert rows %d-%d into %q.%q: %w", start, end, databaseID, table, err)
		}
		if affected, err := result.RowsAffected(); err == nil {
			written += affected
		} else {
			written += int64(end - start)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}
	return written, nil
}

func buildInsert(prefix string, width int, rows [][]any) (string, []any, error) {
	var builder strings.Builder
	builder.WriteString(prefix)
	args := make([]any, 0, width*len(rows))
	for i, row := range rows {
		if len(row) != width {
			return "", nil, fmt.Errorf("row has %d values, want %d", len(row), width)
		}
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteByte('(')
		for j, value := range row {
			if j > 0 {
				builder.WriteString(", ")
			}
			args = append(args, value)
			fmt.Fprintf(&builder, "$%d", len(args))
		}
		builder.WriteByte(')')
	}
	return builder.String(), args, nil
}

func (s *Store) CountRows(ctx context.Context, databaseID, table string) (int64, error) {
	if err := validateTarget(databaseID, table); err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+qualified(databaseID, table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %q.%q: %w", databaseID, table, err)
	}
	return count, nil
}

// Execute runs sqlText with the database's schema first on the search path.
// The connection is pinned for the call so the search path cannot leak.
func (s *Store) Execute(ctx context.Context, databaseID, sqlText string, rowLimit int) (tablestore.Result, error) {
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return tablestore.Result{}, err
	}
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return tablestore.Result{}, fmt.Errorf("sql is required")
	}
	if rowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, rowLimit)
	}

	start := time.Now()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return tablestore.Result{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, s.dialect.setSearchPath(databaseID)); err != nil {
		return tablestore.Result{}, fmt.Errorf("set search path: %w", err)
	}
	defer func() { _, _ = conn.ExecContext(context.WithoutCancel(ctx), s.dialect.resetPath) }()

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return tablestore.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return tablestore.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return tablestore.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return tablestore.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return tablestore.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case time.Time:
			normalized[i] = typed.Format(time.RFC3339)
		case float64:
			if math.IsNaN(typed) || math.IsInf(typed, 0) {
				normalized[i] = nil
			} else {
				normalized[i] = typed
			}
		case float32:
			if math.IsNaN(float64(typed)) || math.IsInf(float64(typed), 0) {
				normalized[i] = nil
			} else {
				normalized[i] = typed
			}
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func scanStrings(rows *sql.Rows, noun string) ([]string, error) {
	defer func() { _ = rows.Close() }()
	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", noun, err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %ss: %w", noun, err)
	}
	return values, nil
}

func validateTarget(databaseID, table string) error {
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return err
	}
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("%w: table name is required", tablestore.ErrInvalidIdentifier)
	}
	return nil
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
