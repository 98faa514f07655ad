// Package nl2sql turns a natural-language question into a query over one
// database: schema sync, example seeding, retrieval, prompt assembly, one
// completion call, then cleanup.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/completion"
	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/prompt"
	"github.com/tabletalk/tabletalk/internal/retrieval"
	"github.com/tabletalk/tabletalk/internal/schemaindex"
	"github.com/tabletalk/tabletalk/internal/tablestore"
	"github.com/tabletalk/tabletalk/internal/vectorindex"
)

type GenerateRequest struct {
	Question   string `json:"question"`
	DatabaseID string `json:"database_id"`
	TableName  string `json:"table_name,omitempty"`
}

type GeneratedQuery struct {
	Question    string                  `json:"question"`
	DatabaseID  string                  `json:"database_id"`
	TablesUsed  []string                `json:"tables_used"`
	SchemaText  string                  `json:"schema_text"`
	ExampleText string                  `json:"example_text"`
	QueryText   string                  `json:"query_text"`
	Provider    string                  `json:"provider"`
	Model       string                  `json:"model"`
	Degraded    []retrieval.Degradation `json:"degraded,omitempty"`
}

type Deps struct {
	Store      tablestore.Introspector
	Vectors    vectorindex.Provider
	Completion completion.TextCompletion
	// Examples overrides the curated example set.
	Examples []examples.Example
	// Dialect names the SQL flavour in the prompt, e.g. "DuckDB".
	Dialect string
	Logger  *slog.Logger
}

type Service struct {
	schema     *schemaindex.Syncer
	seeder     *examples.Seeder
	retriever  *retrieval.Retriever
	assembler  prompt.Assembler
	completion completion.TextCompletion
	vectors    vectorindex.Provider
	logger     *slog.Logger
}

func NewService(deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("table store is required")
	}
	if deps.Vectors == nil {
		return nil, fmt.Errorf("vector provider is required")
	}
	if deps.Completion == nil {
		return nil, fmt.Errorf("text completion is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	seeder := examples.NewSeeder(deps.Vectors, deps.Examples, logger)
	return &Service{
		schema:     schemaindex.New(deps.Store, deps.Vectors, logger),
		seeder:     seeder,
		retriever:  retrieval.New(deps.Store, deps.Vectors, seeder.Examples(), logger),
		assembler:  prompt.Assembler{Dialect: deps.Dialect},
		completion: deps.Completion,
		vectors:    deps.Vectors,
		logger:     logger,
	}, nil
}

// Generate answers one question. NoTablesError and TableNotFoundError are
// returned as is; every other failure is a *GenerationError.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (GeneratedQuery, error) {
	start := time.Now()
	out, err := s.generate(ctx, req)
	observability.ObserveGeneration(generationResult(err), time.Since(start))
	return out, err
}

func (s *Service) generate(ctx context.Context, req GenerateRequest) (GeneratedQuery, error) {
	question := strings.TrimSpace(req.Question)
	databaseID := strings.TrimSpace(req.DatabaseID)
	fail := func(err error) (GeneratedQuery, error) {
		s.logger.ErrorContext(ctx, "query generation failed",
			slog.String("database_id", databaseID),
			slog.String("question", question),
			slog.String("table_name", req.TableName),
			slog.Any("error", err),
		)
		return GeneratedQuery{}, &GenerationError{Question: req.Question, DatabaseID: databaseID, Err: err}
	}

	if question == "" {
		return fail(ErrEmptyQuestion)
	}
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return fail(err)
	}

	s.schema.Sync(ctx, databaseID)
	s.seeder.EnsureSeeded(ctx)

	rc, err := s.retriever.Retrieve(ctx, databaseID, question, req.TableName)
	if err != nil {
		var noTables *NoTablesError
		var notFound *TableNotFoundError
		if errors.As(err, &noTables) || errors.As(err, &notFound) {
			return GeneratedQuery{}, err
		}
		return fail(fmt.Errorf("retrieve context: %w", err))
	}

	promptText := s.assembler.Assemble(databaseID, rc.SchemaText, rc.ExampleText, question)
	raw, err := s.completion.Complete(ctx, promptText)
	if err != nil {
		return fail(fmt.Errorf("complete prompt: %w", err))
	}
	queryText := CleanQuery(raw)
	if queryText == "" {
		return fail(ErrEmptyCompletion)
	}

	provider, model := s.completion.Describe()
	return GeneratedQuery{
		Question:    question,
		DatabaseID:  databaseID,
		TablesUsed:  rc.CandidateTables,
		SchemaText:  rc.SchemaText,
		ExampleText: rc.ExampleText,
		QueryText:   queryText,
		Provider:    provider,
		Model:       model,
		Degraded:    rc.Degraded,
	}, nil
}

func generationResult(err error) string {
	var noTables *NoTablesError
	var notFound *TableNotFoundError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &noTables):
		return "no_tables"
	case errors.As(err, &notFound):
		return "table_not_found"
	default:
		return "error"
	}
}

// SyncSchema reconciles the schema index of databaseID. Only a malformed
// database id is returned as an error; index failures stay in the report.
func (s *Service) SyncSchema(ctx context.Context, databaseID string) (schemaindex.SyncReport, error) {
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return schemaindex.SyncReport{}, err
	}
	_, report := s.schema.Sync(ctx, databaseID)
	return report, nil
}

func (s *Service) RebuildExamples(ctx context.Context) (examples.SeedReport, error) {
	return s.seeder.Rebuild(ctx)
}

type IndexDump struct {
	DatabaseID       string                 `json:"database_id"`
	SchemaDocuments  []vectorindex.Document `json:"schema_documents"`
	ExampleDocuments []vectorindex.Document `json:"example_documents"`
}

// DumpIndex returns the raw documents behind retrieval for one database.
func (s *Service) DumpIndex(ctx context.Context, databaseID string) (IndexDump, error) {
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return IndexDump{}, err
	}
	dump := IndexDump{DatabaseID: databaseID}
	schemaIndex, err := s.schema.Index(ctx, databaseID)
	if err != nil {
		return IndexDump{}, fmt.Errorf("open schema index: %w", err)
	}
	if dump.SchemaDocuments, err = schemaIndex.GetAll(ctx); err != nil {
		return IndexDump{}, fmt.Errorf("read schema index: %w", err)
	}
	exampleIndex, err := s.vectors.Collection(ctx, examples.CollectionName)
	if err != nil {
		return IndexDump{}, fmt.Errorf("open example index: %w", err)
	}
	if dump.ExampleDocuments, err = exampleIndex.GetAll(ctx); err != nil {
		return IndexDump{}, fmt.Errorf("read example index: %w", err)
	}
	return dump, nil
}
