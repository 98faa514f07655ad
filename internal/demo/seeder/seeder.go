// Package seeder uploads generated demo tables to a running API so the
// curated examples have matching data to query.
package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	generator *Generator
}

type uploadResponse struct {
	DatabaseID  string `json:"database_id"`
	TableName   string `json:"table_name"`
	Format      string `json:"format"`
	RowsWritten int64  `json:"rows_written"`
	RowsInDB    int64  `json:"rows_in_db"`
	// SchemaSync is absent when the post-upload schema sync failed.
	SchemaSync json.RawMessage `json:"schema_sync"`
}

type TableReport struct {
	DatabaseID  string
	TableName   string
	Format      string
	RowsWritten int64
	RowsInDB    int64
}

type Report struct {
	Tables []TableReport
}

func (r Report) RowsWritten() int64 {
	var total int64
	for _, table := range r.Tables {
		total += table.RowsWritten
	}
	return total
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client) (*Service, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if len(cfg.Datasets) == 0 {
		return nil, fmt.Errorf("at least one dataset is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		generator: NewGenerator(cfg.Seed, cfg.Scale),
	}, nil
}

// Run waits for the API to report ready and then uploads every configured
// dataset once.
func (s *Service) Run(ctx context.Context) (Report, error) {
	if err := s.waitReady(ctx); err != nil {
		return Report{}, err
	}
	return s.Seed(ctx)
}

func (s *Service) Seed(ctx context.Context) (Report, error) {
	var report Report
	for _, name := range s.cfg.Datasets {
		dataset, err := s.generator.Dataset(name)
		if err != nil {
			return report, err
		}
		for _, table := range dataset.Tables {
			uploaded, err := s.uploadTable(ctx, dataset.DatabaseID, table)
			if err != nil {
				return report, fmt.Errorf("seed %s.%s: %w", dataset.DatabaseID, table.Name, err)
			}
			entry := TableReport{
				DatabaseID:  uploaded.DatabaseID,
				TableName:   uploaded.TableName,
				Format:      uploaded.Format,
				RowsWritten: uploaded.RowsWritten,
				RowsInDB:    uploaded.RowsInDB,
			}
			report.Tables = append(report.Tables, entry)

			attrs := []any{
				slog.String("database_id", entry.DatabaseID),
				slog.String("table", entry.TableName),
				slog.String("format", entry.Format),
				slog.Int64("rows_written", entry.RowsWritten),
				slog.Int64("rows_in_db", entry.RowsInDB),
			}
			if len(uploaded.SchemaSync) == 0 {
				s.log.WarnContext(ctx, "uploaded demo table without schema sync", attrs...)
				continue
			}
			s.log.InfoContext(ctx, "uploaded demo table", attrs...)
		}
	}
	return report, nil
}

func (s *Service) waitReady(ctx context.Context) error {
	if s.cfg.ReadyTimeout <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var lastErr error
	for {
		status, body, err := s.do(ctx, http.MethodGet, "/v1/ready", nil, "")
		switch {
		case err != nil:
			lastErr = err
		case status == http.StatusOK:
			return nil
		default:
			lastErr = fmt.Errorf("ready status %d: %s", status, strings.TrimSpace(string(body)))
		}
		s.log.DebugContext(ctx, "api not ready yet", slog.Any("error", lastErr))

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for api readiness: %w", lastErr)
		case <-ticker.C:
		}
	}
}

func (s *Service) uploadTable(ctx context.Context, databaseID string, table Table) (uploadResponse, error) {
	fileName, data, err := table.Encode()
	if err != nil {
		return uploadResponse{}, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return uploadResponse{}, err
	}
	if _, err := part.Write(data); err != nil {
		return uploadResponse{}, fmt.Errorf("write upload part: %w", err)
	}
	if err := writer.WriteField("table_name", table.Name); err != nil {
		return uploadResponse{}, err
	}
	if err := writer.WriteField("if_exists", string(s.cfg.IfExists)); err != nil {
		return uploadResponse{}, err
	}
	if err := writer.Close(); err != nil {
		return uploadResponse{}, err
	}

	path := fmt.Sprintf("/v1/databases/%s/uploads", url.PathEscape(databaseID))
	status, body, err := s.do(ctx, http.MethodPost, path, &buf, writer.FormDataContentType())
	if err != nil {
		return uploadResponse{}, fmt.Errorf("upload request failed: %w", err)
	}
	if status != http.StatusCreated {
		return uploadResponse{}, fmt.Errorf("upload status %d: %s", status, strings.TrimSpace(string(body)))
	}
	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return uploadResponse{}, fmt.Errorf("decode upload response: %w", err)
	}
	return out, nil
}

func (s *Service) do(ctx context.Context, method, path string, payload io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIBaseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
