package ingest

import (
	"testing"
	"time"

	"github.com/tabletalk/tabletalk/internal/tablestore"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   tablestore.ColumnType
	}{
		{name: "integers", values: []string{"1", "-2", "", "300"}, want: tablestore.TypeInteger},
		{name: "floats", values: []string{"1", "2.5", "1e3"}, want: tablestore.TypeFloat},
		{name: "dates", values: []string{"2026-02-19", "2026-02-20 10:00:00", "02/21/2026"}, want: tablestore.TypeDateTime},
		{name: "mixed", values: []string{"1", "two"}, want: tablestore.TypeString},
		{name: "booleans", values: []string{"true", "false"}, want: tablestore.TypeString},
		{name: "all null", values: []string{"", "NULL", "NA"}, want: tablestore.TypeString},
		{name: "infinity text", values: []string{"Infinity"}, want: tablestore.TypeString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := make([]*string, len(tt.values))
			for i, value := range tt.values {
				cells[i] = cleanCell(value)
			}
			if got := inferType(cells); got != tt.want {
				t.Fatalf("inferType(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	if cleanCell("  ") != nil {
		t.Fatal("blank cell should be NULL")
	}
	if cleanCell("N/A") != nil {
		t.Fatal("N/A should be NULL")
	}
	value := cleanCell("  Widget  ")
	if value == nil || *value != "Widget" {
		t.Fatalf("cleanCell() = %v", value)
	}
}

func TestConvert(t *testing.T) {
	raw := "2026-02-19"
	got := convert(&raw, tablestore.TypeDateTime)
	ts, ok := got.(time.Time)
	if !ok || !ts.Equal(time.Date(2026, time.February, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("convert(datetime) = %#v", got)
	}
	n := "42"
	if got := convert(&n, tablestore.TypeInteger); got != int64(42) {
		t.Fatalf("convert(integer) = %#v", got)
	}
	if got := convert(&n, tablestore.TypeFloat); got != float64(42) {
		t.Fatalf("convert(float) = %#v", got)
	}
	if got := convert(nil, tablestore.TypeString); got != nil {
		t.Fatalf("convert(nil) = %#v", got)
	}
}
