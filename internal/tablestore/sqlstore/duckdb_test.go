package sqlstore

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/tabletalk/tabletalk/internal/tablestore"
)

func TestDuckDBStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DBConfig{Driver: DriverDuckDB})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := New(db, DriverDuckDB)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.CreateDatabaseIfAbsent(ctx, "sales"); err != nil {
		t.Fatalf("CreateDatabaseIfAbsent() error = %v", err)
	}
	if err := store.CreateDatabaseIfAbsent(ctx, "sales"); err != nil {
		t.Fatalf("second CreateDatabaseIfAbsent() error = %v", err)
	}

	columns := []tablestore.ColumnDef{
		{Name: "id", Type: tablestore.TypeInteger},
		{Name: "name", Type: tablestore.TypeString},
		{Name: "salary", Type: tablestore.TypeFloat},
		{Name: "hired", Type: tablestore.TypeDateTime},
	}
	if err := store.CreateTable(ctx, "sales", "staff", columns); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	hired := time.Date(2023, 5, 4, 0, 0, 0, 0, time.UTC)
	written, err := store.InsertRows(ctx, "sales", "staff", columns, [][]any{
		{int64(1), "ana", 1200.5, hired},
		{int64(2), "bo", nil, nil},
		{int64(3), "cy", 990.0, hired},
	}, 2)
	if err != nil {
		t.Fatalf("InsertRows() error = %v", err)
	}
	if written != 3 {
		t.Fatalf("written = %d", written)
	}

	databases, err := store.ListDatabases(ctx)
	if err != nil {
		t.Fatalf("ListDatabases() error = %v", err)
	}
	if !slices.Contains(databases, "sales") {
		t.Fatalf("databases = %#v", databases)
	}

	tables, err := store.ListTables(ctx, "sales")
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 1 || tables[0] != "staff" {
		t.Fatalf("tables = %#v", tables)
	}

	gotColumns, err := store.GetColumns(ctx, "sales", "staff")
	if err != nil {
		t.Fatalf("GetColumns() error = %v", err)
	}
	wantColumns := []tablestore.Column{
		{Name: "id", Type: "BIGINT"},
		{Name: "name", Type: "VARCHAR"},
		{Name: "salary", Type: "DOUBLE"},
		{Name: "hired", Type: "TIMESTAMP"},
	}
	if !slices.Equal(gotColumns, wantColumns) {
		t.Fatalf("columns = %#v", gotColumns)
	}

	if _, err := store.GetColumns(ctx, "sales", "ghost"); !errors.Is(err, tablestore.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}

	count, err := store.CountRows(ctx, "sales", "staff")
	if err != nil {
		t.Fatalf("CountRows() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d", count)
	}

	result, err := store.Execute(ctx, "sales", "SELECT name, hired FROM staff ORDER BY id;", 2)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %#v", result.Rows)
	}
	if result.Rows[0][0] != "ana" || result.Rows[0][1] != "2023-05-04T00:00:00Z" {
		t.Fatalf("first row = %#v", result.Rows[0])
	}
	if result.Rows[1][1] != nil {
		t.Fatalf("second row hired = %#v", result.Rows[1][1])
	}

	exists, err := store.TableExists(ctx, "sales", "staff")
	if err != nil || !exists {
		t.Fatalf("TableExists() = %v, %v", exists, err)
	}
	if err := store.DropTable(ctx, "sales", "staff"); err != nil {
		t.Fatalf("DropTable() error = %v", err)
	}
	tables, err = store.ListTables(ctx, "sales")
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 0 {
		t.Fatalf("tables after drop = %#v", tables)
	}
}
