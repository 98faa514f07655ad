package api

import (
	"errors"
	"net/http"
	"strings"
)

var errSQLNotAllowed = errors.New("only read-only SELECT/WITH queries are allowed")

type queryRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type queryResponse struct {
	Columns  []string       `json:"columns"`
	Rows     [][]any        `json:"rows"`
	RowCount int            `json:"row_count"`
	Stats    map[string]any `json:"stats"`
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}

	var request queryRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := s.execute(r, r.PathValue("db"), request.SQL, request.RowLimit)
	switch {
	case errors.Is(err, errSQLNotAllowed):
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", err.Error(), false, nil)
	case err != nil && isValidationError(err):
		s.writeServiceError(w, r, err)
	case err != nil:
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, map[string]any{"details": err.Error()})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// execute runs a read-only statement with the configured default row limit.
func (s *server) execute(r *http.Request, databaseID, sqlText string, rowLimit int) (queryResponse, error) {
	if !isAllowedSQL(sqlText) {
		return queryResponse{}, errSQLNotAllowed
	}
	if rowLimit <= 0 {
		rowLimit = s.cfg.Store.DefaultRowLimit
	}
	result, err := s.deps.Store.Execute(r.Context(), databaseID, sqlText, rowLimit)
	if err != nil {
		return queryResponse{}, err
	}
	rows := result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return queryResponse{
		Columns:  result.Columns,
		Rows:     rows,
		RowCount: len(rows),
		Stats:    map[string]any{"duration_ms": result.Duration.Milliseconds()},
	}, nil
}

func isAllowedSQL(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	if normalized == "" {
		return false
	}
	if strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with") {
		return true
	}
	return false
}
