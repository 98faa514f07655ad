// Package retrieval selects the tables and examples that go into a prompt.
// Index failures fall back to deterministic choices and are reported as
// Degradation values rather than errors.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/schemaindex"
	"github.com/tabletalk/tabletalk/internal/tablestore"
	"github.com/tabletalk/tabletalk/internal/vectorindex"
)

const (
	maxSchemaHits = 3
	exampleHits   = 3
)

type DegradationKind string

const (
	DegradationSchemaSearch   DegradationKind = "schema_search"
	DegradationFirstTable     DegradationKind = "first_table"
	DegradationColumnRead     DegradationKind = "column_read"
	DegradationExampleSearch  DegradationKind = "example_search"
	DegradationStaticExamples DegradationKind = "static_examples"
)

type Degradation struct {
	Kind  DegradationKind `json:"kind"`
	Cause string          `json:"cause"`
}

// Context is everything the prompt needs for one question.
type Context struct {
	CandidateTables []string      `json:"candidate_tables"`
	SchemaText      string        `json:"schema_text"`
	ExampleText     string        `json:"example_text"`
	Degraded        []Degradation `json:"degraded,omitempty"`
}

func (c *Context) degrade(kind DegradationKind, cause string) {
	c.Degraded = append(c.Degraded, Degradation{Kind: kind, Cause: cause})
	observability.IncrementRetrievalFallback(string(kind))
}

type Retriever struct {
	store          tablestore.Introspector
	vectors        vectorindex.Provider
	staticExamples []examples.Example
	logger         *slog.Logger
}

// New builds a retriever. staticExamples is the fallback example set used
// when example search fails or finds nothing.
func New(store tablestore.Introspector, vectors vectorindex.Provider, staticExamples []examples.Example, logger *slog.Logger) *Retriever {
	if len(staticExamples) == 0 {
		staticExamples = examples.Curated()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retriever{store: store, vectors: vectors, staticExamples: staticExamples, logger: logger}
}

func (r *Retriever) Retrieve(ctx context.Context, databaseID, question, requestedTable string) (Context, error) {
	var out Context

	tables, err := r.store.ListTables(ctx, databaseID)
	if err != nil {
		return Context{}, fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		return Context{}, &NoTablesError{DatabaseID: databaseID}
	}
	requestedTable = strings.TrimSpace(requestedTable)
	if requestedTable != "" && !slices.Contains(tables, requestedTable) {
		return Context{}, &TableNotFoundError{DatabaseID: databaseID, Table: requestedTable}
	}

	candidates, err := r.searchTables(ctx, databaseID, question, tables)
	if err != nil {
		out.degrade(DegradationSchemaSearch, err.Error())
		r.warn(ctx, databaseID, "schema_search", err)
	}
	if requestedTable != "" {
		// The requested table leads even when search ranked it lower.
		candidates = slices.DeleteFunc(candidates, func(table string) bool { return table == requestedTable })
		candidates = append([]string{requestedTable}, candidates...)
	}
	if len(candidates) == 0 {
		candidates = []string{tables[0]}
		out.degrade(DegradationFirstTable, "no schema hits")
	}

	blocks := make([]string, 0, len(candidates))
	used := make([]string, 0, len(candidates))
	var lastErr error
	for _, table := range candidates {
		columns, err := r.store.GetColumns(ctx, databaseID, table)
		if err != nil {
			lastErr = err
			out.degrade(DegradationColumnRead, fmt.Sprintf("%s: %v", table, err))
			r.warn(ctx, databaseID, "column_read", err)
			continue
		}
		blocks = append(blocks, schemaindex.FormatDocument(table, columns))
		used = append(used, table)
	}
	if len(blocks) == 0 {
		return Context{}, fmt.Errorf("read columns: %w", lastErr)
	}
	out.CandidateTables = used
	out.SchemaText = strings.Join(blocks, "\n\n")

	exampleText, err := r.searchExamples(ctx, question)
	switch {
	case err != nil:
		out.degrade(DegradationExampleSearch, err.Error())
		r.warn(ctx, databaseID, "example_search", err)
		out.degrade(DegradationStaticExamples, "example search failed: "+err.Error())
		exampleText = examples.FormatBlock(r.staticExamples)
	case exampleText == "":
		out.degrade(DegradationStaticExamples, "example search returned nothing")
		exampleText = examples.FormatBlock(r.staticExamples)
	}
	out.ExampleText = exampleText

	return out, nil
}

// searchTables returns distinct live tables named by the top schema hits,
// in rank order.
func (r *Retriever) searchTables(ctx context.Context, databaseID, question string, tables []string) ([]string, error) {
	index, err := r.vectors.Collection(ctx, schemaindex.CollectionName(databaseID))
	if err != nil {
		return nil, err
	}
	topK := min(maxSchemaHits, max(1, len(tables)))
	hits, err := index.SimilaritySearch(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	candidates := make([]string, 0, len(hits))
	for _, hit := range hits {
		table := hit.Metadata[schemaindex.MetadataTable]
		if table == "" || !slices.Contains(tables, table) || slices.Contains(candidates, table) {
			continue
		}
		candidates = append(candidates, table)
	}
	return candidates, nil
}

func (r *Retriever) searchExamples(ctx context.Context, question string) (string, error) {
	index, err := r.vectors.Collection(ctx, examples.CollectionName)
	if err != nil {
		return "", err
	}
	hits, err := index.SimilaritySearch(ctx, question, exampleHits)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		question, query := hit.Metadata[examples.MetadataQuestion], hit.Metadata[examples.MetadataQuery]
		if question != "" && query != "" {
			texts = append(texts, examples.Example{Question: question, Query: query}.Text())
			continue
		}
		if content := strings.TrimSpace(hit.Content); content != "" {
			texts = append(texts, content)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

func (r *Retriever) warn(ctx context.Context, databaseID, op string, err error) {
	r.logger.WarnContext(ctx, "retrieval degraded",
		slog.String("database_id", databaseID),
		slog.String("op", op),
		slog.Any("error", err),
	)
}
