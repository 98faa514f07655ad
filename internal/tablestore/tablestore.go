// Package tablestore describes the relational store that holds uploaded
// tables. Each database id maps to one SQL schema inside the store.
package tablestore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrInvalidDatabaseID = errors.New("invalid database id")
	ErrTableNotFound     = errors.New("table not found")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

var databaseIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Column is one (name, declared type) pair in table order.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Introspector is the read side the retrieval pipeline depends on.
type Introspector interface {
	ListTables(ctx context.Context, databaseID string) ([]string, error)
	GetColumns(ctx context.Context, databaseID, table string) ([]Column, error)
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Store is the full relational store used by the service binaries.
type Store interface {
	Introspector
	ListDatabases(ctx context.Context) ([]string, error)
	CreateDatabaseIfAbsent(ctx context.Context, databaseID string) error
	Execute(ctx context.Context, databaseID, sqlText string, rowLimit int) (Result, error)
	Dialect() string
}

// ColumnType is the logical type inferred for uploaded data. Each store
// dialect maps it onto a concrete SQL type.
type ColumnType string

const (
	TypeInteger  ColumnType = "integer"
	TypeFloat    ColumnType = "float"
	TypeDateTime ColumnType = "datetime"
	TypeString   ColumnType = "string"
)

type ColumnDef struct {
	Name string
	Type ColumnType
}

// Writer is the write side used by the upload pipeline.
type Writer interface {
	CreateDatabaseIfAbsent(ctx context.Context, databaseID string) error
	TableExists(ctx context.Context, databaseID, table string) (bool, error)
	DropTable(ctx context.Context, databaseID, table string) error
	CreateTable(ctx context.Context, databaseID, table string, columns []ColumnDef) error
	InsertRows(ctx context.Context, databaseID, table string, columns []ColumnDef, rows [][]any, batchSize int) (int64, error)
	CountRows(ctx context.Context, databaseID, table string) (int64, error)
}

func ValidateDatabaseID(databaseID string) error {
	if !databaseIDPattern.MatchString(databaseID) {
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseID, databaseID)
	}
	return nil
}
