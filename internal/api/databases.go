package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/internal/tablestore"
)

type createDatabaseRequest struct {
	Name string `json:"name"`
}

func (s *server) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	databases, err := s.deps.Store.ListDatabases(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"databases": nonNil(databases)})
}

func (s *server) handleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	var request createDatabaseRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid database request body", false, map[string]any{"details": err.Error()})
		return
	}
	name := strings.TrimSpace(request.Name)
	if err := s.deps.Store.CreateDatabaseIfAbsent(r.Context(), name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"database_id": name})
}

func (s *server) handleListTables(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	databaseID := r.PathValue("db")
	tables, err := s.deps.Store.ListTables(r.Context(), databaseID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"database_id": databaseID,
		"tables":      nonNil(tables),
	})
}

func (s *server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	databaseID := r.PathValue("db")
	table := r.PathValue("table")
	columns, err := s.deps.Store.GetColumns(r.Context(), databaseID, table)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"database_id": databaseID,
		"table_name":  table,
		"columns":     columns,
	})
}

// handleDropTable drops a table, refreshes the schema index and purges the
// table's upload archives.
func (s *server) handleDropTable(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	databaseID := r.PathValue("db")
	table := r.PathValue("table")
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if _, err := s.deps.Store.GetColumns(r.Context(), databaseID, table); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.deps.Store.DropTable(r.Context(), databaseID, table); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	response := map[string]any{"database_id": databaseID, "table_name": table, "dropped": true}
	if s.deps.Generator != nil {
		report, err := s.deps.Generator.SyncSchema(r.Context(), databaseID)
		if err == nil {
			response["schema_sync"] = report
		}
	}
	if s.deps.Archives != nil {
		purged, err := s.deps.Archives.Purge(r.Context(), databaseID, table)
		if err != nil {
			s.logger.WarnContext(r.Context(), "purge upload archives failed",
				slog.String("database_id", databaseID),
				slog.String("table", table),
				slog.Any("error", err),
			)
		}
		response["archives_purged"] = purged
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *server) handleListArchives(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archives == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "upload archiving is disabled", false, nil)
		return
	}
	databaseID := r.PathValue("db")
	if err := tablestore.ValidateDatabaseID(databaseID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	table := strings.TrimSpace(r.URL.Query().Get("table"))
	objects, err := s.deps.Archives.List(r.Context(), databaseID, table)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if objects == nil {
		objects = []storage.ObjectInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"database_id": databaseID,
		"archives":    objects,
	})
}

func (s *server) requireStore(w http.ResponseWriter, r *http.Request) bool {
	if s.deps.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STORE_NOT_CONFIGURED", "table store is not configured", false, nil)
		return false
	}
	return true
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
