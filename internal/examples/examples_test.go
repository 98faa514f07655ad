package examples

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tabletalk/tabletalk/internal/embedding"
	"github.com/tabletalk/tabletalk/internal/vectorindex"
	vchromem "github.com/tabletalk/tabletalk/internal/vectorindex/chromem"
)

func TestCuratedSetCoversThreeDomains(t *testing.T) {
	set := Curated()
	if len(set) != 13 {
		t.Fatalf("curated examples = %d, want 13", len(set))
	}
	joined := FormatBlock(set)
	for _, table := range []string{"staff", "moviecast", "t_shirts", "discounts"} {
		if !strings.Contains(joined, table) {
			t.Fatalf("curated set never mentions %q", table)
		}
	}
	if !strings.HasPrefix(set[0].Text(), "Q: Which staff member generated the highest total sales revenue?\nSQL: SELECT s.name") {
		t.Fatalf("first example text = %q", set[0].Text())
	}
}

func TestFormatBlockJoinsWithBlankLine(t *testing.T) {
	got := FormatBlock([]Example{{Question: "a?", Query: "SELECT 1"}, {Question: "b?", Query: "SELECT 2"}})
	want := "Q: a?\nSQL: SELECT 1\n\nQ: b?\nSQL: SELECT 2"
	if got != want {
		t.Fatalf("FormatBlock() = %q", got)
	}
}

func TestParseRejectsEmptyEntries(t *testing.T) {
	tests := []string{
		"",
		"[]",
		"- question: only a question\n",
		"- query: SELECT 1\n",
		"not: a list",
	}
	for _, input := range tests {
		if _, err := Parse([]byte(input)); err == nil {
			t.Fatalf("Parse(%q) expected error", input)
		}
	}
}

func TestLoadReadsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examples.yaml")
	content := "- question: How many orders?\n  query: SELECT COUNT(*) FROM orders\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(set) != 1 || set[0].Query != "SELECT COUNT(*) FROM orders" {
		t.Fatalf("set = %#v", set)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnsureSeededInsertsOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	vectors := vchromem.NewMemory(embedding.Func(embedding.NewHashing(64)))
	seeder := NewSeeder(vectors, nil, nil)

	index, report := seeder.EnsureSeeded(ctx)
	if report.Err != nil || report.Inserted != 13 {
		t.Fatalf("first report = %+v", report)
	}
	docs, err := index.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(docs) != 13 {
		t.Fatalf("docs = %d", len(docs))
	}
	for _, doc := range docs {
		if doc.Metadata[MetadataID] == "0" && !strings.HasPrefix(doc.Content, "Q: Which staff member") {
			t.Fatalf("doc 0 content = %q", doc.Content)
		}
	}

	_, report = seeder.EnsureSeeded(ctx)
	if report.Inserted != 0 || report.Existing != 13 {
		t.Fatalf("second report = %+v", report)
	}
}

func TestRebuildReseedsCustomSet(t *testing.T) {
	ctx := context.Background()
	vectors := vchromem.NewMemory(embedding.Func(embedding.NewHashing(64)))
	NewSeeder(vectors, nil, nil).EnsureSeeded(ctx)

	custom := []Example{{Question: "How many orders?", Query: "SELECT COUNT(*) FROM orders"}}
	report, err := NewSeeder(vectors, custom, nil).Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if report.Inserted != 1 {
		t.Fatalf("report = %+v", report)
	}
	index, _ := vectors.Collection(ctx, CollectionName)
	if count, _ := index.Count(ctx); count != 1 {
		t.Fatalf("count = %d", count)
	}
}

type brokenIndex struct {
	vectorindex.Index
	added int
}

func (b *brokenIndex) GetAll(context.Context) ([]vectorindex.Document, error) {
	return nil, errors.New("export failed")
}

func (b *brokenIndex) Add(_ context.Context, texts []string, _ []map[string]string) ([]string, error) {
	b.added += len(texts)
	return make([]string, len(texts)), nil
}

type singleIndexProvider struct {
	vectorindex.Provider
	index vectorindex.Index
}

func (p singleIndexProvider) Collection(context.Context, string) (vectorindex.Index, error) {
	return p.index, nil
}

func TestEnsureSeededSeedsWhenIntrospectionFails(t *testing.T) {
	index := &brokenIndex{}
	seeder := NewSeeder(singleIndexProvider{index: index}, nil, nil)
	_, report := seeder.EnsureSeeded(context.Background())
	if report.IntrospectionErr == nil {
		t.Fatal("expected introspection error in report")
	}
	if report.Err != nil || report.Inserted != 13 || index.added != 13 {
		t.Fatalf("report = %+v, added = %d", report, index.added)
	}
}
