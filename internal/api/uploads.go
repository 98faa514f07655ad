package api

import (
	"errors"
	"net/http"

	"github.com/tabletalk/tabletalk/internal/ingest"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Uploader == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "UPLOAD_NOT_CONFIGURED", "uploads are not configured", false, nil)
		return
	}
	if limit := s.cfg.Ingest.MaxUploadBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "upload exceeds the size limit", false, map[string]any{"limit_bytes": tooLarge.Limit})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart upload", false, map[string]any{"details": err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "multipart field \"file\" is required", false, nil)
		return
	}
	defer func() { _ = file.Close() }()

	mode, err := ingest.ParseIfExists(r.FormValue("if_exists"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.deps.Uploader.Ingest(r.Context(), ingest.Upload{
		DatabaseID: r.PathValue("db"),
		TableName:  r.FormValue("table_name"),
		FileName:   header.Filename,
		Body:       file,
		IfExists:   mode,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
