package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tabletalk/tabletalk/internal/storage"
)

func TestEncodeAndDecodeRows(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 10, 0, 0, 0, time.UTC)
	result, err := Encode([]string{"id", "name", "placed_at", "note"}, [][]any{
		{int64(1), "Alice", ts, nil},
		{int64(2), "Bob", ts.Add(time.Hour), "gift"},
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if result.RecordCount != 2 {
		t.Fatalf("RecordCount = %d", result.RecordCount)
	}
	if len(result.Data) == 0 {
		t.Fatal("expected non-empty parquet payload")
	}

	rows, err := Decode(result.Data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("decoded rows = %d", len(rows))
	}
	if rows[0].RowNumber != 1 || rows[1].RowNumber != 2 {
		t.Fatalf("unexpected row numbers: %+v", rows)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(rows[1].PayloadJSON), &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if payload["name"] != "Bob" || payload["note"] != "gift" || payload["id"] != float64(2) {
		t.Fatalf("payload = %#v", payload)
	}
	if payload["placed_at"] != "2026-02-19T11:00:00Z" {
		t.Fatalf("placed_at = %#v", payload["placed_at"])
	}
}

func TestEncodeRejectsRaggedRows(t *testing.T) {
	if _, err := Encode([]string{"a", "b"}, [][]any{{1}}); err == nil {
		t.Fatal("expected ragged row error")
	}
	if _, err := Encode(nil, [][]any{{1}}); err == nil {
		t.Fatal("expected missing columns error")
	}
	if _, err := Encode([]string{"a"}, nil); err == nil {
		t.Fatal("expected missing rows error")
	}
}

func TestArchiveStoresUnderUploadPath(t *testing.T) {
	store := newMemoryStore()
	archiver := newTestArchiver(t, store)

	info, err := archiver.Archive(context.Background(), "sales", "orders", []string{"id"}, [][]any{{int64(7)}})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	want := "uploads/sales/orders/date=2026-02-19/upload-1.parquet"
	if info.Key != want {
		t.Fatalf("Key = %q, want %q", info.Key, want)
	}
	if store.contentTypes[want] != contentType {
		t.Fatalf("content type = %q", store.contentTypes[want])
	}
	if meta := store.metadata[want]; meta["database-id"] != "sales" || meta["table"] != "orders" || meta["rows"] != "1" {
		t.Fatalf("metadata = %v", meta)
	}

	rows, err := archiver.Read(context.Background(), want)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(rows) != 1 || rows[0].PayloadJSON != `{"id":7}` {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestListAndPurgeAreScopedToTable(t *testing.T) {
	store := newMemoryStore()
	archiver := newTestArchiver(t, store)
	ctx := context.Background()

	for _, table := range []string{"orders", "orders", "customers"} {
		if _, err := archiver.Archive(ctx, "sales", table, []string{"id"}, [][]any{{int64(1)}}); err != nil {
			t.Fatalf("Archive(%s) error = %v", table, err)
		}
	}

	orders, err := archiver.List(ctx, "sales", "orders")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders archives = %d, want 2", len(orders))
	}
	all, err := archiver.List(ctx, "sales", "")
	if err != nil {
		t.Fatalf("List(all) error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("database archives = %d, want 3", len(all))
	}

	removed, err := archiver.Purge(ctx, "sales", "orders")
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	remaining, err := archiver.List(ctx, "sales", "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 1 || !strings.Contains(remaining[0].Key, "/customers/") {
		t.Fatalf("remaining = %+v", remaining)
	}
}

func TestArchiveRejectsInvalidNames(t *testing.T) {
	archiver := newTestArchiver(t, newMemoryStore())
	if _, err := archiver.Archive(context.Background(), "../x", "orders", []string{"id"}, [][]any{{1}}); err == nil {
		t.Fatal("expected invalid database id error")
	}
}

func newTestArchiver(t *testing.T, store storage.ObjectStore) *Archiver {
	t.Helper()
	archiver, err := New(store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	archiver.now = func() time.Time { return time.Date(2026, time.February, 19, 12, 0, 0, 0, time.UTC) }
	seq := 0
	archiver.newID = func() string {
		seq++
		return "upload-" + string(rune('0'+seq))
	}
	return archiver
}

type memoryStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	metadata     map[string]map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, contentTypes: map[string]string{}, metadata: map[string]map[string]string{}}
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.contentTypes[key] = opts.ContentType
	m.metadata[key] = opts.Metadata
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
			removed++
		}
	}
	return removed, nil
}
