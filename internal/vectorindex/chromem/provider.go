// Package chromem stores vector collections in chromem-go, either in memory
// or persisted under a directory.
package chromem

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/tabletalk/tabletalk/internal/vectorindex"
)

type Config struct {
	Path     string
	Compress bool
}

type Provider struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

var _ vectorindex.Provider = (*Provider)(nil)

func New(cfg Config, embed chromem.EmbeddingFunc) (*Provider, error) {
	if embed == nil {
		return nil, fmt.Errorf("embedding func is required")
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return NewMemory(embed), nil
	}
	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("open vector db %q: %w", cfg.Path, err)
	}
	return &Provider{db: db, embed: embed}, nil
}

func NewMemory(embed chromem.EmbeddingFunc) *Provider {
	return &Provider{db: chromem.NewDB(), embed: embed}
}

func (p *Provider) Collection(_ context.Context, name string) (vectorindex.Index, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	collection, err := p.db.GetOrCreateCollection(name, nil, p.embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", name, err)
	}
	return &Collection{db: p.db, name: name, collection: collection}, nil
}

func (p *Provider) Drop(_ context.Context, name string) error {
	if p.db.GetCollection(name, p.embed) == nil {
		return fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotFound, name)
	}
	if err := p.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("drop collection %q: %w", name, err)
	}
	return nil
}

func (p *Provider) Names() []string {
	names := make([]string, 0)
	for name := range p.db.ListCollections() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Collection struct {
	db         *chromem.DB
	name       string
	collection *chromem.Collection
}

func (c *Collection) SimilaritySearch(ctx context.Context, query string, k int) ([]vectorindex.Hit, error) {
	k = min(k, c.collection.Count())
	if k <= 0 {
		return []vectorindex.Hit{}, nil
	}
	results, err := c.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", c.name, err)
	}
	hits := make([]vectorindex.Hit, 0, len(results))
	for _, result := range results {
		hits = append(hits, vectorindex.Hit{
			Document: vectorindex.Document{
				ID:       result.ID,
				Content:  result.Content,
				Metadata: result.Metadata,
			},
			Similarity: result.Similarity,
		})
	}
	return hits, nil
}

// Add embeds and stores texts under fresh UUIDs. A nil metadatas slice is
// allowed; otherwise it must line up with texts.
func (c *Collection) Add(ctx context.Context, texts []string, metadatas []map[string]string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("got %d metadatas for %d texts", len(metadatas), len(texts))
	}
	ids := make([]string, len(texts))
	docs := make([]chromem.Document, len(texts))
	for i, text := range texts {
		ids[i] = uuid.NewString()
		docs[i] = chromem.Document{ID: ids[i], Content: text}
		if metadatas != nil {
			docs[i].Metadata = metadatas[i]
		}
	}
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("add documents to %q: %w", c.name, err)
	}
	return ids, nil
}

func (c *Collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete documents from %q: %w", c.name, err)
	}
	return nil
}

func (c *Collection) Count(context.Context) (int, error) {
	return c.collection.Count(), nil
}

// exportedDB mirrors the gob layout chromem writes in ExportToWriter.
type exportedDB struct {
	Collections map[string]*struct {
		Name      string
		Metadata  map[string]string
		Documents map[string]*chromem.Document
	}
}

// GetAll reads every document of the collection. chromem has no listing
// API, so the collection is exported uncompressed and decoded again.
func (c *Collection) GetAll(ctx context.Context) ([]vectorindex.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.db.ExportToWriter(&buf, false, "", c.name); err != nil {
		return nil, fmt.Errorf("export collection %q: %w", c.name, err)
	}
	var exported exportedDB
	if err := gob.NewDecoder(&buf).Decode(&exported); err != nil {
		return nil, fmt.Errorf("decode collection %q: %w", c.name, err)
	}

	docs := make([]vectorindex.Document, 0)
	if collection, ok := exported.Collections[c.name]; ok && collection != nil {
		for id, doc := range collection.Documents {
			if doc == nil {
				continue
			}
			docs = append(docs, vectorindex.Document{ID: id, Content: doc.Content, Metadata: doc.Metadata})
		}
	}
	slices.SortFunc(docs, func(a, b vectorindex.Document) int { return strings.Compare(a.ID, b.ID) })
	return docs, nil
}
