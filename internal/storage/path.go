package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const uploadsRoot = "uploads"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._-]{0,127}$`)

// BuildUploadArchivePath returns the key of one archived upload:
// uploads/<db>/<table>/date=YYYY-MM-DD/<upload-id>.parquet.
func BuildUploadArchivePath(databaseID, tableName string, uploadedAt time.Time, uploadID string) (string, error) {
	prefix, err := BuildUploadArchivePrefix(databaseID, tableName)
	if err != nil {
		return "", err
	}
	if err := validatePathComponent(uploadID, "upload id"); err != nil {
		return "", err
	}

	ts := uploadedAt.UTC()
	return path.Join(
		prefix,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		uploadID+".parquet",
	), nil
}

// BuildUploadArchivePrefix returns the prefix shared by every archive of one
// table. An empty table name yields the prefix of the whole database.
func BuildUploadArchivePrefix(databaseID, tableName string) (string, error) {
	if err := validatePathComponent(databaseID, "database id"); err != nil {
		return "", err
	}
	if tableName == "" {
		return uploadsRoot + "/" + databaseID + "/", nil
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join(uploadsRoot, databaseID, tableName) + "/", nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
