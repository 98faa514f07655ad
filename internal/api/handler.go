// Package api serves the tabletalk HTTP surface: databases, uploads, query
// generation and execution.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/ingest"
	"github.com/tabletalk/tabletalk/internal/nl2sql"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/schemaindex"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/internal/tablestore"
)

type ReadinessCheck func(ctx context.Context) error

// Store is the table store surface the handlers use.
type Store interface {
	tablestore.Store
	DropTable(ctx context.Context, databaseID, table string) error
}

type Generator interface {
	Generate(ctx context.Context, req nl2sql.GenerateRequest) (nl2sql.GeneratedQuery, error)
	SyncSchema(ctx context.Context, databaseID string) (schemaindex.SyncReport, error)
	RebuildExamples(ctx context.Context) (examples.SeedReport, error)
	DumpIndex(ctx context.Context, databaseID string) (nl2sql.IndexDump, error)
}

type Uploader interface {
	Ingest(ctx context.Context, upload ingest.Upload) (ingest.IngestResult, error)
}

type ArchiveStore interface {
	List(ctx context.Context, databaseID, table string) ([]storage.ObjectInfo, error)
	Purge(ctx context.Context, databaseID, table string) (int, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Store             Store
	Generator         Generator
	Uploader          Uploader
	// Archives is nil when upload archiving is disabled.
	Archives ArchiveStore
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	s := &server{cfg: cfg, deps: deps, logger: deps.Logger}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/databases", s.handleListDatabases)
	mux.HandleFunc("POST /v1/databases", s.handleCreateDatabase)
	mux.HandleFunc("GET /v1/databases/{db}/tables", s.handleListTables)
	mux.HandleFunc("GET /v1/databases/{db}/tables/{table}", s.handleGetTable)
	mux.HandleFunc("DELETE /v1/databases/{db}/tables/{table}", s.handleDropTable)
	mux.HandleFunc("GET /v1/databases/{db}/archives", s.handleListArchives)
	mux.HandleFunc("POST /v1/databases/{db}/uploads", s.handleUpload)
	mux.HandleFunc("POST /v1/databases/{db}/schema/sync", s.handleSyncSchema)
	mux.HandleFunc("POST /v1/databases/{db}/generate", s.handleGenerate)
	mux.HandleFunc("POST /v1/databases/{db}/query", s.handleQuery)
	mux.HandleFunc("GET /v1/debug/index/{db}", s.handleDumpIndex)
	mux.HandleFunc("POST /v1/examples/rebuild", s.handleRebuildExamples)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
		observability.LoggingMiddleware(deps.Logger),
		observability.RecoverMiddleware(deps.Logger),
	}
	return corsHandler(cfg.CORS).Handler(chain(mux, middlewares...))
}

func corsHandler(cfg config.CORSConfig) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Trace-ID"},
	})
}

// CheckStore pings the table store through a trivial listing.
func CheckStore(store tablestore.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("table store is not configured")
		}
		_, err := store.ListDatabases(ctx)
		return err
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if !cfg.Ingest.ArchiveEnabled {
			return nil
		}
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

// Pinger is a dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckObjectStore pings the archive bucket. A nil pinger means archiving is
// disabled and always passes.
func CheckObjectStore(pinger Pinger) ReadinessCheck {
	return func(ctx context.Context) error {
		if pinger == nil {
			return nil
		}
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("object store: %w", err)
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

type server struct {
	cfg    config.Config
	deps   Dependencies
	logger *slog.Logger
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
