//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tabletalk/tabletalk/internal/storage"
)

func TestStoreRoundTripAgainstMinIO(t *testing.T) {
	endpoint := envOr("TABLETALK_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("TABLETALK_TEST_S3_ENDPOINT is not set")
	}

	cfg := Config{
		Endpoint:         endpoint,
		Region:           envOr("TABLETALK_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("TABLETALK_TEST_S3_BUCKET", "tabletalk-it"),
		AccessKeyID:      envOr("TABLETALK_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("TABLETALK_TEST_S3_SECRET_KEY", "miniostorage"),
		UseSSL:           false,
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key := "uploads/it_db/orders/date=2026-02-20/roundtrip.parquet"
	payload := []byte("tabletalk-integration")

	if _, err := store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	listed, err := store.List(ctx, "uploads/it_db/orders/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 1 || listed[0].Key != key || listed[0].Size != int64(len(payload)) {
		t.Fatalf("List() = %+v", listed)
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	readPayload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("reader.Close() error = %v", err)
	}
	if !bytes.Equal(readPayload, payload) {
		t.Fatalf("Get() payload = %q, want %q", string(readPayload), string(payload))
	}

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	removed, err := store.DeletePrefix(ctx, "uploads/it_db/")
	if err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("DeletePrefix() removed = %d, want 1", removed)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrObjectNotFound", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
