package api

import (
	"net/http"
	"strings"

	"github.com/tabletalk/tabletalk/internal/nl2sql"
)

type generateRequest struct {
	Question  string `json:"question"`
	TableName string `json:"table_name"`
	Execute   bool   `json:"execute"`
	RowLimit  int    `json:"row_limit"`
}

type generateResponse struct {
	nl2sql.GeneratedQuery
	Result         *queryResponse `json:"result,omitempty"`
	ExecutionError string         `json:"execution_error,omitempty"`
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATION_NOT_CONFIGURED", "query generation is not configured", false, nil)
		return
	}
	var request generateRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid generate request body", false, map[string]any{"details": err.Error()})
		return
	}

	generated, err := s.deps.Generator.Generate(r.Context(), nl2sql.GenerateRequest{
		Question:   request.Question,
		DatabaseID: r.PathValue("db"),
		TableName:  strings.TrimSpace(request.TableName),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	response := generateResponse{GeneratedQuery: generated}
	if request.Execute && s.deps.Store != nil {
		result, err := s.execute(r, generated.DatabaseID, nl2sql.ExecutableQuery(generated.QueryText), request.RowLimit)
		if err != nil {
			response.ExecutionError = err.Error()
		} else {
			response.Result = &result
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *server) handleSyncSchema(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATION_NOT_CONFIGURED", "query generation is not configured", false, nil)
		return
	}
	report, err := s.deps.Generator.SyncSchema(r.Context(), r.PathValue("db"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	payload := map[string]any{"report": report, "degraded": report.Degraded()}
	if report.Err != nil {
		payload["error"] = report.Err.Error()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *server) handleDumpIndex(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATION_NOT_CONFIGURED", "query generation is not configured", false, nil)
		return
	}
	dump, err := s.deps.Generator.DumpIndex(r.Context(), r.PathValue("db"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dump)
}

func (s *server) handleRebuildExamples(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATION_NOT_CONFIGURED", "query generation is not configured", false, nil)
		return
	}
	report, err := s.deps.Generator.RebuildExamples(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
