package storage

import (
	"testing"
	"time"
)

func TestBuildUploadArchivePath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 22, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildUploadArchivePath("sales_db", "orders", ts, "3f1c2b7a-1111-4c1d-9a55-0123456789ab")
	if err != nil {
		t.Fatalf("BuildUploadArchivePath() error = %v", err)
	}
	want := "uploads/sales_db/orders/date=2026-02-20/3f1c2b7a-1111-4c1d-9a55-0123456789ab.parquet"
	if key != want {
		t.Fatalf("BuildUploadArchivePath() = %q, want %q", key, want)
	}
}

func TestBuildUploadArchivePrefix(t *testing.T) {
	prefix, err := BuildUploadArchivePrefix("sales_db", "orders")
	if err != nil {
		t.Fatalf("BuildUploadArchivePrefix() error = %v", err)
	}
	if prefix != "uploads/sales_db/orders/" {
		t.Fatalf("prefix = %q", prefix)
	}

	prefix, err = BuildUploadArchivePrefix("sales_db", "")
	if err != nil {
		t.Fatalf("BuildUploadArchivePrefix() error = %v", err)
	}
	if prefix != "uploads/sales_db/" {
		t.Fatalf("database prefix = %q", prefix)
	}
}

func TestBuildPathsRejectInvalidComponents(t *testing.T) {
	now := time.Now()
	if _, err := BuildUploadArchivePath("../escape", "orders", now, "id"); err == nil {
		t.Fatal("expected database id validation error")
	}
	if _, err := BuildUploadArchivePath("sales_db", "bad/table", now, "id"); err == nil {
		t.Fatal("expected table name validation error")
	}
	if _, err := BuildUploadArchivePath("sales_db", "orders", now, ""); err == nil {
		t.Fatal("expected upload id validation error")
	}
}
