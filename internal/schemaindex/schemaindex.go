// Package schemaindex keeps one vector document per live table of a
// database, so retrieval can find the tables relevant to a question.
package schemaindex

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/tablestore"
	"github.com/tabletalk/tabletalk/internal/vectorindex"
)

const collectionPrefix = "schema_"

func CollectionName(databaseID string) string {
	return collectionPrefix + databaseID
}

// SyncReport describes one sync pass. Err is set when the pass stopped
// early; the index is then left as it was before the failing step.
type SyncReport struct {
	DatabaseID        string   `json:"database_id"`
	Added             []string `json:"added"`
	Updated           []string `json:"updated"`
	Removed           []string `json:"removed"`
	Unchanged         int      `json:"unchanged"`
	DuplicatesRemoved int      `json:"duplicates_removed"`
	Err               error    `json:"-"`
}

func (r SyncReport) Degraded() bool {
	return r.Err != nil
}

func (r SyncReport) Changed() bool {
	return len(r.Added)+len(r.Updated)+len(r.Removed)+r.DuplicatesRemoved > 0
}

type Syncer struct {
	store   tablestore.Introspector
	vectors vectorindex.Provider
	logger  *slog.Logger
}

func New(store tablestore.Introspector, vectors vectorindex.Provider, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{store: store, vectors: vectors, logger: logger}
}

// Index opens the schema collection of databaseID without syncing it.
func (s *Syncer) Index(ctx context.Context, databaseID string) (vectorindex.Index, error) {
	return s.vectors.Collection(ctx, CollectionName(databaseID))
}

type liveTable struct {
	name    string
	columns []tablestore.Column
}

type plan struct {
	deleteIDs []string
	inserts   []liveTable
	report    SyncReport
}

// Sync reconciles the schema collection with the tables currently in the
// store. Failures never propagate: they are logged and carried in
// SyncReport.Err. The returned index is nil only if the collection itself
// could not be opened.
func (s *Syncer) Sync(ctx context.Context, databaseID string) (vectorindex.Index, SyncReport) {
	report := SyncReport{DatabaseID: databaseID}
	index, err := s.Index(ctx, databaseID)
	if err != nil {
		return nil, s.degrade(ctx, report, "open_index", err)
	}

	live, err := s.readLive(ctx, databaseID)
	if err != nil {
		return index, s.degrade(ctx, report, "introspect", err)
	}
	docs, err := index.GetAll(ctx)
	if err != nil {
		return index, s.degrade(ctx, report, "read_index", err)
	}

	p := diff(databaseID, live, docs)
	// Inserts run before removes so a failed insert leaves the prior
	// documents in place. A failed remove leaves duplicates that the next
	// pass collapses.
	if len(p.inserts) > 0 {
		texts := make([]string, 0, len(p.inserts))
		metadatas := make([]map[string]string, 0, len(p.inserts))
		for _, table := range p.inserts {
			texts = append(texts, FormatDocument(table.name, table.columns))
			metadatas = append(metadatas, map[string]string{
				MetadataTable:    table.name,
				MetadataDatabase: databaseID,
			})
		}
		if _, err := index.Add(ctx, texts, metadatas); err != nil {
			return index, s.degrade(ctx, report, "insert", err)
		}
	}
	if err := index.Delete(ctx, p.deleteIDs...); err != nil {
		return index, s.degrade(ctx, p.report, "delete", err)
	}

	observability.ObserveSchemaSync(len(p.report.Added), len(p.report.Updated), len(p.report.Removed), false)
	if p.report.Changed() {
		s.logger.InfoContext(ctx, "schema index synced",
			slog.String("database_id", databaseID),
			slog.Int("added", len(p.report.Added)),
			slog.Int("updated", len(p.report.Updated)),
			slog.Int("removed", len(p.report.Removed)),
			slog.Int("duplicates_removed", p.report.DuplicatesRemoved),
		)
	}
	return index, p.report
}

func (s *Syncer) readLive(ctx context.Context, databaseID string) (map[string][]tablestore.Column, error) {
	tables, err := s.store.ListTables(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	live := make(map[string][]tablestore.Column, len(tables))
	for _, table := range tables {
		columns, err := s.store.GetColumns(ctx, databaseID, table)
		if err != nil {
			return nil, fmt.Errorf("read columns of %q: %w", table, err)
		}
		live[table] = columns
	}
	return live, nil
}

func (s *Syncer) degrade(ctx context.Context, report SyncReport, op string, err error) SyncReport {
	report.Err = fmt.Errorf("schema sync %s: %w", op, err)
	observability.ObserveSchemaSync(len(report.Added), len(report.Updated), len(report.Removed), true)
	s.logger.WarnContext(ctx, "schema sync degraded",
		slog.String("database_id", report.DatabaseID),
		slog.String("op", op),
		slog.Any("error", err),
	)
	return report
}

// diff groups indexed documents by table and decides, per table, whether
// to keep, replace or drop it. Extra documents for one table are dropped.
func diff(databaseID string, live map[string][]tablestore.Column, docs []vectorindex.Document) plan {
	p := plan{report: SyncReport{
		DatabaseID: databaseID,
		Added:      []string{},
		Updated:    []string{},
		Removed:    []string{},
	}}

	indexed := map[string][]vectorindex.Document{}
	for _, doc := range docs {
		table := tableOf(doc)
		if table == "" {
			p.deleteIDs = append(p.deleteIDs, doc.ID)
			continue
		}
		indexed[table] = append(indexed[table], doc)
	}

	for _, table := range sortedKeys(indexed) {
		group := indexed[table]
		columns, isLive := live[table]
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		// Prefer a copy that already matches the live table.
		keep := 0
		for i, doc := range group {
			if isLive && sameStructure(indexedColumns(doc), columns) {
				keep = i
				break
			}
		}
		primary := group[keep]
		for i, extra := range group {
			if i != keep {
				p.deleteIDs = append(p.deleteIDs, extra.ID)
				p.report.DuplicatesRemoved++
			}
		}

		switch {
		case !isLive || len(columns) == 0:
			p.deleteIDs = append(p.deleteIDs, primary.ID)
			p.report.Removed = append(p.report.Removed, table)
		case sameStructure(indexedColumns(primary), columns):
			p.report.Unchanged++
		default:
			p.deleteIDs = append(p.deleteIDs, primary.ID)
			p.inserts = append(p.inserts, liveTable{name: table, columns: columns})
			p.report.Updated = append(p.report.Updated, table)
		}
	}

	for _, table := range sortedKeys(live) {
		if _, ok := indexed[table]; ok || len(live[table]) == 0 {
			continue
		}
		p.inserts = append(p.inserts, liveTable{name: table, columns: live[table]})
		p.report.Added = append(p.report.Added, table)
	}
	return p
}

func indexedColumns(doc vectorindex.Document) []tablestore.Column {
	_, columns, _ := parseDocument(doc.Content)
	return columns
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
