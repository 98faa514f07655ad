package seeder

import (
	"reflect"
	"testing"
)

func TestGeneratorIsDeterministicForSeed(t *testing.T) {
	left, err := NewGenerator(42, 1).Dataset(DatasetRetail)
	if err != nil {
		t.Fatalf("Dataset() error = %v", err)
	}
	right, err := NewGenerator(42, 1).Dataset(DatasetRetail)
	if err != nil {
		t.Fatalf("Dataset() error = %v", err)
	}
	if !reflect.DeepEqual(left, right) {
		t.Fatal("datasets generated from the same seed differ")
	}
}

func TestRetailSalesReferenceExistingRows(t *testing.T) {
	dataset, err := NewGenerator(7, 2).Dataset(DatasetRetail)
	if err != nil {
		t.Fatalf("Dataset() error = %v", err)
	}
	tables := tablesByName(dataset)
	for _, name := range []string{"customers", "staff", "mobiles", "sales"} {
		if _, ok := tables[name]; !ok {
			t.Fatalf("retail dataset is missing table %q", name)
		}
	}
	customers, staff, mobileRows := len(tables["customers"].Rows), len(tables["staff"].Rows), len(tables["mobiles"].Rows)
	if customers != 40 {
		t.Fatalf("customers = %d, want 40 at scale 2", customers)
	}
	sales := tables["sales"]
	if len(sales.Rows) != 200 {
		t.Fatalf("sales = %d, want 200 at scale 2", len(sales.Rows))
	}
	for _, row := range sales.Rows {
		if id := row[1].(int); id < 1 || id > customers {
			t.Fatalf("sale references customer %d outside 1..%d", id, customers)
		}
		if id := row[2].(int); id < 1 || id > staff {
			t.Fatalf("sale references staff %d outside 1..%d", id, staff)
		}
		mobileID := row[3].(int)
		if mobileID < 1 || mobileID > mobileRows {
			t.Fatalf("sale references mobile %d outside 1..%d", mobileID, mobileRows)
		}
		quantity := row[4].(int)
		want := round2(mobiles[mobileID-1].price * float64(quantity))
		if got := row[5].(float64); got != want {
			t.Fatalf("total_amount = %v, want %v", got, want)
		}
	}
}

func TestCinemaAndApparelMatchExampleColumns(t *testing.T) {
	gen := NewGenerator(1, 1)
	cinema, err := gen.Dataset(DatasetCinema)
	if err != nil {
		t.Fatalf("Dataset(cinema) error = %v", err)
	}
	apparel, err := gen.Dataset(DatasetApparel)
	if err != nil {
		t.Fatalf("Dataset(apparel) error = %v", err)
	}

	want := map[string][]string{
		"movies":    {"movie_id", "title", "genre", "release_year"},
		"ratings":   {"movie_id", "avg_rating", "votes"},
		"moviecast": {"movie_id", "person_name", "role"},
		"t_shirts":  {"t_shirt_id", "brand", "color", "size", "price", "stock_quantity"},
		"discounts": {"discount_id", "t_shirt_id", "pct_discount"},
	}
	tables := tablesByName(cinema)
	for name, table := range tablesByName(apparel) {
		tables[name] = table
	}
	for name, header := range want {
		table, ok := tables[name]
		if !ok {
			t.Fatalf("missing table %q", name)
		}
		if !reflect.DeepEqual(table.Header, header) {
			t.Fatalf("%s header = %v, want %v", name, table.Header, header)
		}
	}
	if got := len(tables["moviecast"].Rows); got != 3*len(tables["movies"].Rows) {
		t.Fatalf("moviecast rows = %d, want three per movie", got)
	}
	if tables["t_shirts"].Format != FormatXLSX {
		t.Fatalf("t_shirts format = %q, want xlsx", tables["t_shirts"].Format)
	}
	for _, row := range tables["ratings"].Rows {
		if rating := row[1].(float64); rating < 4 || rating > 9.5 {
			t.Fatalf("avg_rating = %v out of range", rating)
		}
	}
}

func TestDatasetRejectsUnknownName(t *testing.T) {
	if _, err := NewGenerator(1, 1).Dataset("warehouse"); err == nil {
		t.Fatal("expected unknown dataset error")
	}
}

func tablesByName(dataset Dataset) map[string]Table {
	out := make(map[string]Table, len(dataset.Tables))
	for _, table := range dataset.Tables {
		out[table.Name] = table
	}
	return out
}
