// Package archive keeps a parquet copy of every cleaned upload in the
// object store.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tabletalk/tabletalk/internal/storage"
)

const contentType = "application/vnd.apache.parquet"

type Archiver struct {
	store storage.ObjectStore
	now   func() time.Time
	newID func() string
}

func New(store storage.ObjectStore) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	return &Archiver{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}, nil
}

// Archive encodes one upload and stores it under a fresh upload id.
func (a *Archiver) Archive(ctx context.Context, databaseID, table string, columns []string, rows [][]any) (storage.ObjectInfo, error) {
	key, err := storage.BuildUploadArchivePath(databaseID, table, a.now(), a.newID())
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	encoded, err := Encode(columns, rows)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := a.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"database-id": databaseID,
			"table":       table,
			"rows":        strconv.FormatInt(encoded.RecordCount, 10),
		},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("archive upload: %w", err)
	}
	info.Key = key
	return info, nil
}

// List returns the archives of one table, or of the whole database when
// table is empty.
func (a *Archiver) List(ctx context.Context, databaseID, table string) ([]storage.ObjectInfo, error) {
	prefix, err := storage.BuildUploadArchivePrefix(databaseID, table)
	if err != nil {
		return nil, err
	}
	objects, err := a.store.List(ctx, prefix)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list archives: %w", err)
	}
	return objects, nil
}

func (a *Archiver) Read(ctx context.Context, key string) ([]Row, error) {
	body, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read archive %q: %w", key, err)
	}
	return Decode(data)
}

// Purge deletes every archive of one table and returns how many were removed.
func (a *Archiver) Purge(ctx context.Context, databaseID, table string) (int, error) {
	prefix, err := storage.BuildUploadArchivePrefix(databaseID, table)
	if err != nil {
		return 0, err
	}
	removed, err := a.store.DeletePrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, nil
		}
		return removed, fmt.Errorf("purge archives: %w", err)
	}
	return removed, nil
}
