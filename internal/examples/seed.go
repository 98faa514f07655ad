package examples

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/vectorindex"
)

const (
	MetadataID       = "id"
	MetadataQuestion = "question"
	MetadataQuery    = "query"
)

// SeedReport describes one EnsureSeeded call. IntrospectionErr records a
// failed read of the existing documents, after which seeding is attempted
// anyway; Err records a failure to open or write the index.
type SeedReport struct {
	Inserted         int   `json:"inserted"`
	Existing         int   `json:"existing"`
	IntrospectionErr error `json:"-"`
	Err              error `json:"-"`
}

type Seeder struct {
	vectors  vectorindex.Provider
	examples []Example
	logger   *slog.Logger
}

// NewSeeder seeds set, or the curated examples when set is empty.
func NewSeeder(vectors vectorindex.Provider, set []Example, logger *slog.Logger) *Seeder {
	if len(set) == 0 {
		set = Curated()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Seeder{vectors: vectors, examples: set, logger: logger}
}

func (s *Seeder) Examples() []Example {
	return append([]Example(nil), s.examples...)
}

// EnsureSeeded inserts the example set iff the shared index is empty.
func (s *Seeder) EnsureSeeded(ctx context.Context) (vectorindex.Index, SeedReport) {
	var report SeedReport
	index, err := s.vectors.Collection(ctx, CollectionName)
	if err != nil {
		report.Err = fmt.Errorf("open example index: %w", err)
		s.warn(ctx, "open_index", err)
		return nil, report
	}

	docs, err := index.GetAll(ctx)
	if err != nil {
		report.IntrospectionErr = err
		s.warn(ctx, "read_index", err)
	} else if len(docs) > 0 {
		report.Existing = len(docs)
		return index, report
	}

	texts := make([]string, 0, len(s.examples))
	metadatas := make([]map[string]string, 0, len(s.examples))
	for i, example := range s.examples {
		texts = append(texts, example.Text())
		metadatas = append(metadatas, map[string]string{
			MetadataID:       strconv.Itoa(i),
			MetadataQuestion: example.Question,
			MetadataQuery:    example.Query,
		})
	}
	if _, err := index.Add(ctx, texts, metadatas); err != nil {
		report.Err = fmt.Errorf("seed example index: %w", err)
		s.warn(ctx, "insert", err)
		return index, report
	}

	report.Inserted = len(texts)
	observability.ObserveExampleSeed(report.Inserted)
	s.logger.InfoContext(ctx, "example index seeded", slog.Int("inserted", report.Inserted))
	return index, report
}

// Rebuild drops the shared index and seeds it again.
func (s *Seeder) Rebuild(ctx context.Context) (SeedReport, error) {
	if err := s.vectors.Drop(ctx, CollectionName); err != nil && !errors.Is(err, vectorindex.ErrCollectionNotFound) {
		return SeedReport{}, fmt.Errorf("drop example index: %w", err)
	}
	_, report := s.EnsureSeeded(ctx)
	if report.Err != nil {
		return report, report.Err
	}
	return report, nil
}

func (s *Seeder) warn(ctx context.Context, op string, err error) {
	s.logger.WarnContext(ctx, "example index degraded",
		slog.String("op", op),
		slog.Any("error", err),
	)
}
