// Package vectorindex defines the similarity-search collections used for
// schema and example retrieval.
package vectorindex

import (
	"context"
	"errors"
)

var ErrCollectionNotFound = errors.New("collection not found")

type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Hit struct {
	Document
	Similarity float32 `json:"similarity"`
}

// Index is one named collection. SimilaritySearch clamps k to the number of
// stored documents and returns no hits for an empty collection.
type Index interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]Hit, error)
	Add(ctx context.Context, texts []string, metadatas []map[string]string) ([]string, error)
	Delete(ctx context.Context, ids ...string) error
	GetAll(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int, error)
}

type Provider interface {
	Collection(ctx context.Context, name string) (Index, error)
	Drop(ctx context.Context, name string) error
	Names() []string
}
