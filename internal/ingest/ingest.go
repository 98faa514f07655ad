// Package ingest loads uploaded CSV and XLSX files into the table store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/schemaindex"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/internal/tablestore"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported upload format")
	ErrTableExists       = errors.New("table already exists")
	ErrInvalidIfExists   = errors.New("if_exists must be one of replace, append, fail")
	ErrEmptyUpload       = errors.New("upload has no header row")
)

const DefaultBatchSize = 500

type IfExists string

const (
	IfExistsReplace IfExists = "replace"
	IfExistsAppend  IfExists = "append"
	IfExistsFail    IfExists = "fail"
)

// ParseIfExists accepts the three modes; empty means replace.
func ParseIfExists(raw string) (IfExists, error) {
	switch IfExists(strings.ToLower(strings.TrimSpace(raw))) {
	case "", IfExistsReplace:
		return IfExistsReplace, nil
	case IfExistsAppend:
		return IfExistsAppend, nil
	case IfExistsFail:
		return IfExistsFail, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidIfExists, raw)
	}
}

type Upload struct {
	DatabaseID string
	// TableName defaults to the file name without its extension.
	TableName string
	FileName  string
	Body      io.Reader
	IfExists  IfExists
}

type IngestResult struct {
	DatabaseID  string                  `json:"database_id"`
	TableName   string                  `json:"table_name"`
	Format      string                  `json:"format"`
	RowsWritten int64                   `json:"rows_written"`
	RowsInDB    int64                   `json:"rows_in_db"`
	Columns     []tablestore.Column     `json:"columns"`
	ArchiveKey  string                  `json:"archive_key,omitempty"`
	SchemaSync  *schemaindex.SyncReport `json:"schema_sync,omitempty"`
}

// SchemaSyncer refreshes the schema index after a write.
type SchemaSyncer interface {
	SyncSchema(ctx context.Context, databaseID string) (schemaindex.SyncReport, error)
}

type Archiver interface {
	Archive(ctx context.Context, databaseID, table string, columns []string, rows [][]any) (storage.ObjectInfo, error)
}

type Config struct {
	Store  tablestore.Writer
	Schema SchemaSyncer
	// Archiver is optional.
	Archiver  Archiver
	BatchSize int
	Logger    *slog.Logger
}

type Pipeline struct {
	store     tablestore.Writer
	schema    SchemaSyncer
	archiver  Archiver
	batchSize int
	logger    *slog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("table store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		store:     cfg.Store,
		schema:    cfg.Schema,
		archiver:  cfg.Archiver,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// Ingest writes one uploaded file as a table of upload.DatabaseID.
func (p *Pipeline) Ingest(ctx context.Context, upload Upload) (IngestResult, error) {
	format, err := DetectFormat(upload.FileName)
	if err != nil {
		format = "unknown"
	}
	result, err := p.ingest(ctx, upload)
	observability.ObserveIngest(format, result.RowsWritten, err)
	return result, err
}

func (p *Pipeline) ingest(ctx context.Context, upload Upload) (IngestResult, error) {
	databaseID := strings.TrimSpace(upload.DatabaseID)
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		return IngestResult{}, err
	}
	mode, err := ParseIfExists(string(upload.IfExists))
	if err != nil {
		return IngestResult{}, err
	}
	format, err := DetectFormat(upload.FileName)
	if err != nil {
		return IngestResult{}, err
	}
	if upload.Body == nil {
		return IngestResult{}, ErrEmptyUpload
	}

	raw, err := readTable(format, upload.Body)
	if err != nil {
		return IngestResult{}, err
	}
	table := buildTable(raw)
	tableName := resolveTableName(upload.TableName, upload.FileName)

	if err := p.store.CreateDatabaseIfAbsent(ctx, databaseID); err != nil {
		return IngestResult{}, fmt.Errorf("create database %q: %w", databaseID, err)
	}
	if err := p.prepareTable(ctx, databaseID, tableName, table.columns, mode); err != nil {
		return IngestResult{}, err
	}

	written, err := p.store.InsertRows(ctx, databaseID, tableName, table.columns, table.rows, p.batchSize)
	if err != nil {
		return IngestResult{}, fmt.Errorf("insert rows: %w", err)
	}
	inDB, err := p.store.CountRows(ctx, databaseID, tableName)
	if err != nil {
		return IngestResult{}, fmt.Errorf("count rows: %w", err)
	}

	result := IngestResult{
		DatabaseID:  databaseID,
		TableName:   tableName,
		Format:      format,
		RowsWritten: written,
		RowsInDB:    inDB,
		Columns:     table.describe(),
	}
	p.logger.InfoContext(ctx, "upload ingested",
		slog.String("database_id", databaseID),
		slog.String("table", tableName),
		slog.String("if_exists", string(mode)),
		slog.Int64("rows_written", written),
		slog.Int64("rows_in_db", inDB),
	)

	if p.schema != nil {
		report, err := p.schema.SyncSchema(ctx, databaseID)
		if err != nil {
			p.logger.WarnContext(ctx, "schema sync after upload failed",
				slog.String("database_id", databaseID),
				slog.Any("error", err),
			)
		} else {
			result.SchemaSync = &report
		}
	}

	if p.archiver != nil && len(table.rows) > 0 {
		info, err := p.archiver.Archive(ctx, databaseID, tableName, table.names(), table.rows)
		if err != nil {
			p.logger.WarnContext(ctx, "upload archive failed",
				slog.String("database_id", databaseID),
				slog.String("table", tableName),
				slog.Any("error", err),
			)
		} else {
			result.ArchiveKey = info.Key
		}
	}
	return result, nil
}

func (p *Pipeline) prepareTable(ctx context.Context, databaseID, tableName string, columns []tablestore.ColumnDef, mode IfExists) error {
	exists, err := p.store.TableExists(ctx, databaseID, tableName)
	if err != nil {
		return fmt.Errorf("check table %q: %w", tableName, err)
	}
	if exists {
		switch mode {
		case IfExistsFail:
			return fmt.Errorf("%w: %q", ErrTableExists, tableName)
		case IfExistsAppend:
			return nil
		}
		if err := p.store.DropTable(ctx, databaseID, tableName); err != nil {
			return fmt.Errorf("replace table %q: %w", tableName, err)
		}
	}
	if err := p.store.CreateTable(ctx, databaseID, tableName, columns); err != nil {
		return fmt.Errorf("create table %q: %w", tableName, err)
	}
	return nil
}

func resolveTableName(requested, fileName string) string {
	if strings.TrimSpace(requested) != "" {
		return SanitizeName(requested, "table")
	}
	base := filepath.Base(strings.TrimSpace(fileName))
	return SanitizeName(strings.TrimSuffix(base, filepath.Ext(base)), "table")
}

type cleanTable struct {
	columns []tablestore.ColumnDef
	rows    [][]any
}

// buildTable sanitizes headers, cleans every cell and converts each column
// to its inferred type.
func buildTable(raw rawTable) cleanTable {
	names := columnNames(raw.headers)
	cells := make([][]*string, len(names))
	for c := range names {
		cells[c] = make([]*string, len(raw.records))
		for r, record := range raw.records {
			cells[c][r] = cleanCell(record[c])
		}
	}

	table := cleanTable{columns: make([]tablestore.ColumnDef, len(names))}
	for c, name := range names {
		table.columns[c] = tablestore.ColumnDef{Name: name, Type: inferType(cells[c])}
	}
	table.rows = make([][]any, len(raw.records))
	for r := range raw.records {
		row := make([]any, len(names))
		for c := range names {
			row[c] = convert(cells[c][r], table.columns[c].Type)
		}
		table.rows[r] = row
	}
	return table
}

func (t cleanTable) names() []string {
	out := make([]string, len(t.columns))
	for i, column := range t.columns {
		out[i] = column.Name
	}
	return out
}

func (t cleanTable) describe() []tablestore.Column {
	out := make([]tablestore.Column, len(t.columns))
	for i, column := range t.columns {
		out[i] = tablestore.Column{Name: column.Name, Type: string(column.Type)}
	}
	return out
}
