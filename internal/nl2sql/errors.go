package nl2sql

import (
	"errors"
	"fmt"

	"github.com/tabletalk/tabletalk/internal/retrieval"
	"github.com/tabletalk/tabletalk/internal/tablestore"
)

type (
	NoTablesError      = retrieval.NoTablesError
	TableNotFoundError = retrieval.TableNotFoundError
)

var (
	ErrInvalidDatabaseID = tablestore.ErrInvalidDatabaseID
	ErrEmptyQuestion     = errors.New("question is required")
	ErrEmptyCompletion   = errors.New("model returned an empty query")
)

// GenerationError wraps any failure that has no safe fallback. It keeps the
// question so the caller can retry it.
type GenerationError struct {
	Question   string
	DatabaseID string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate query for database %q: %v", e.DatabaseID, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
