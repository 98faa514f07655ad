package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tabletalk/tabletalk/internal/ingest"
	"github.com/tabletalk/tabletalk/internal/nl2sql"
	"github.com/tabletalk/tabletalk/internal/tablestore"
)

// writeServiceError maps domain errors onto the API error envelope.
func (s *server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var (
		noTables  *nl2sql.NoTablesError
		notFound  *nl2sql.TableNotFoundError
		genFailed *nl2sql.GenerationError
	)
	switch {
	case errors.As(err, &noTables):
		writeError(ctx, w, http.StatusNotFound, "NO_TABLES", err.Error(), false, map[string]any{"database_id": noTables.DatabaseID})
	case errors.As(err, &notFound):
		writeError(ctx, w, http.StatusNotFound, "TABLE_NOT_FOUND", err.Error(), false, map[string]any{
			"database_id": notFound.DatabaseID,
			"table":       notFound.Table,
		})
	case errors.Is(err, tablestore.ErrInvalidDatabaseID):
		writeError(ctx, w, http.StatusBadRequest, "INVALID_DATABASE", err.Error(), false, nil)
	case errors.Is(err, nl2sql.ErrEmptyQuestion):
		writeError(ctx, w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
	case errors.As(err, &genFailed):
		writeError(ctx, w, http.StatusBadGateway, "GENERATION_FAILED", "query generation failed", true, map[string]any{
			"question":    genFailed.Question,
			"database_id": genFailed.DatabaseID,
			"details":     genFailed.Err.Error(),
		})
	case errors.Is(err, tablestore.ErrTableNotFound):
		writeError(ctx, w, http.StatusNotFound, "TABLE_NOT_FOUND", err.Error(), false, nil)
	case errors.Is(err, tablestore.ErrInvalidIdentifier):
		writeError(ctx, w, http.StatusBadRequest, "INVALID_IDENTIFIER", err.Error(), false, nil)
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		writeError(ctx, w, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", err.Error(), false, nil)
	case errors.Is(err, ingest.ErrTableExists):
		writeError(ctx, w, http.StatusConflict, "TABLE_EXISTS", err.Error(), false, nil)
	case errors.Is(err, ingest.ErrInvalidIfExists):
		writeError(ctx, w, http.StatusBadRequest, "INVALID_IF_EXISTS", err.Error(), false, nil)
	case errors.Is(err, ingest.ErrEmptyUpload):
		writeError(ctx, w, http.StatusBadRequest, "EMPTY_UPLOAD", err.Error(), false, nil)
	default:
		s.logger.ErrorContext(ctx, "request failed",
			slog.String("route", r.Pattern),
			slog.Any("error", err),
		)
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", true, map[string]any{"details": err.Error()})
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, tablestore.ErrInvalidDatabaseID) || errors.Is(err, tablestore.ErrInvalidIdentifier)
}
