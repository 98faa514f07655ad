package retrieval

import "fmt"

// NoTablesError means the database holds no tables yet.
type NoTablesError struct {
	DatabaseID string
}

func (e *NoTablesError) Error() string {
	return fmt.Sprintf("database %q has no tables", e.DatabaseID)
}

// TableNotFoundError means an explicitly requested table is not live.
type TableNotFoundError struct {
	DatabaseID string
	Table      string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found in database %q", e.Table, e.DatabaseID)
}
