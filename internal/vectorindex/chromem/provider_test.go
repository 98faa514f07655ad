package chromem

import (
	"context"
	"errors"
	"testing"

	"github.com/tabletalk/tabletalk/internal/embedding"
	"github.com/tabletalk/tabletalk/internal/vectorindex"
)

func TestCollectionAddSearchAndDelete(t *testing.T) {
	ctx := context.Background()
	provider := NewMemory(embedding.Func(embedding.NewHashing(4096)))
	index, err := provider.Collection(ctx, "schema_sales")
	if err != nil {
		t.Fatalf("Collection() error = %v", err)
	}

	ids, err := index.Add(ctx,
		[]string{"Table: movies\nColumns: title, year", "Table: t_shirts\nColumns: brand, size"},
		[]map[string]string{{"table": "movies"}, {"table": "t_shirts"}},
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("ids = %#v", ids)
	}

	hits, err := index.SimilaritySearch(ctx, "list every movie title", 10)
	if err != nil {
		t.Fatalf("SimilaritySearch() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want k clamped to 2", len(hits))
	}
	if hits[0].Metadata["table"] != "movies" {
		t.Fatalf("top hit = %#v", hits[0])
	}

	if err := index.Delete(ctx, ids[0]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	count, err := index.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}
}

func TestSimilaritySearchOnEmptyCollectionReturnsNoHits(t *testing.T) {
	ctx := context.Background()
	provider := NewMemory(embedding.Func(embedding.NewHashing(32)))
	index, err := provider.Collection(ctx, "fewshot_examples")
	if err != nil {
		t.Fatalf("Collection() error = %v", err)
	}
	hits, err := index.SimilaritySearch(ctx, "anything", 3)
	if err != nil {
		t.Fatalf("SimilaritySearch() error = %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("hits = %#v", hits)
	}
}

func TestGetAllReturnsEveryDocumentOfOneCollection(t *testing.T) {
	ctx := context.Background()
	provider := NewMemory(embedding.Func(embedding.NewHashing(32)))
	schema, _ := provider.Collection(ctx, "schema_sales")
	other, _ := provider.Collection(ctx, "schema_movies")

	ids, err := schema.Add(ctx, []string{"Table: a", "Table: b", "Table: c"}, []map[string]string{
		{"table": "a"}, {"table": "b"}, {"table": "c"},
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := other.Add(ctx, []string{"Table: z"}, nil); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	docs, err := schema.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("docs = %d", len(docs))
	}
	seen := map[string]string{}
	for _, doc := range docs {
		seen[doc.ID] = doc.Metadata["table"]
	}
	for i, id := range ids {
		if seen[id] != []string{"a", "b", "c"}[i] {
			t.Fatalf("doc %s table = %q", id, seen[id])
		}
	}
}

func TestAddRejectsMisalignedMetadata(t *testing.T) {
	ctx := context.Background()
	provider := NewMemory(embedding.Func(embedding.NewHashing(32)))
	index, _ := provider.Collection(ctx, "schema_sales")
	if _, err := index.Add(ctx, []string{"a", "b"}, []map[string]string{{}}); err == nil {
		t.Fatal("expected error for misaligned metadata")
	}
}

func TestProviderNamesAndDrop(t *testing.T) {
	ctx := context.Background()
	provider := NewMemory(embedding.Func(embedding.NewHashing(32)))
	if _, err := provider.Collection(ctx, "schema_b"); err != nil {
		t.Fatalf("Collection() error = %v", err)
	}
	if _, err := provider.Collection(ctx, "schema_a"); err != nil {
		t.Fatalf("Collection() error = %v", err)
	}
	names := provider.Names()
	if len(names) != 2 || names[0] != "schema_a" {
		t.Fatalf("names = %#v", names)
	}
	if err := provider.Drop(ctx, "schema_a"); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if err := provider.Drop(ctx, "schema_a"); !errors.Is(err, vectorindex.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestPersistentProviderReopensDocuments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	embed := embedding.Func(embedding.NewHashing(32))

	first, err := New(Config{Path: dir}, embed)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	index, _ := first.Collection(ctx, "fewshot_examples")
	if _, err := index.Add(ctx, []string{"Q: a\nSQL: SELECT 1"}, []map[string]string{{"id": "0"}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	second, err := New(Config{Path: dir}, embed)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	reopened, _ := second.Collection(ctx, "fewshot_examples")
	count, _ := reopened.Count(ctx)
	if count != 1 {
		t.Fatalf("count after reopen = %d", count)
	}
}
