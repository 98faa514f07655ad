package seeder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedUpload struct {
	database string
	table    string
	fileName string
	ifExists string
	body     string
}

type fakeAPI struct {
	mu          sync.Mutex
	readyAfter  int
	readyCalls  int
	uploads     []recordedUpload
	failTable   string
	omitSync    bool
	unavailable bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/ready":
		f.readyCalls++
		if f.unavailable || f.readyCalls <= f.readyAfter {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error_code":"NOT_READY"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v1/databases/") && strings.HasSuffix(r.URL.Path, "/uploads"):
		database := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/databases/"), "/uploads")
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		body, _ := io.ReadAll(file)
		upload := recordedUpload{
			database: database,
			table:    r.FormValue("table_name"),
			fileName: header.Filename,
			ifExists: r.FormValue("if_exists"),
			body:     string(body),
		}
		f.uploads = append(f.uploads, upload)
		if upload.table == f.failTable {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error_code":"TABLE_EXISTS"}`))
			return
		}
		format := "csv"
		if strings.HasSuffix(upload.fileName, ".xlsx") {
			format = "xlsx"
		}
		payload := map[string]any{
			"database_id":  database,
			"table_name":   upload.table,
			"format":       format,
			"rows_written": 3,
			"rows_in_db":   3,
		}
		if !f.omitSync {
			payload["schema_sync"] = map[string]any{"database_id": database}
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(payload)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestService(t *testing.T, api *fakeAPI, mutate func(*Config)) *Service {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.APIBaseURL = server.URL
	cfg.Seed = 5
	cfg.Interval = 5 * time.Millisecond
	cfg.ReadyTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(cfg, nil, server.Client())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestRunUploadsEveryDatasetTable(t *testing.T) {
	api := &fakeAPI{readyAfter: 2}
	svc := newTestService(t, api, nil)

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if api.readyCalls != 3 {
		t.Fatalf("readyCalls = %d, want 3", api.readyCalls)
	}

	wantTables := []string{"retail/customers", "retail/staff", "retail/mobiles", "retail/sales", "cinema/movies", "cinema/ratings", "cinema/moviecast", "apparel/t_shirts", "apparel/discounts"}
	if len(api.uploads) != len(wantTables) {
		t.Fatalf("uploads = %d, want %d", len(api.uploads), len(wantTables))
	}
	for i, upload := range api.uploads {
		if got := upload.database + "/" + upload.table; got != wantTables[i] {
			t.Fatalf("upload %d = %s, want %s", i, got, wantTables[i])
		}
		if upload.ifExists != "replace" {
			t.Fatalf("if_exists = %q", upload.ifExists)
		}
	}
	if api.uploads[0].fileName != "customers.csv" || !strings.HasPrefix(api.uploads[0].body, "customer_id,name,city,email,joined_on\n") {
		t.Fatalf("customers upload = %+v", api.uploads[0])
	}
	if api.uploads[7].fileName != "t_shirts.xlsx" {
		t.Fatalf("t_shirts file = %q", api.uploads[7].fileName)
	}
	if len(report.Tables) != len(wantTables) || report.RowsWritten() != int64(3*len(wantTables)) {
		t.Fatalf("report = %+v", report)
	}
	if report.Tables[8].Format != "xlsx" {
		t.Fatalf("discounts format = %q", report.Tables[8].Format)
	}
}

func TestSeedStopsOnRejectedUpload(t *testing.T) {
	api := &fakeAPI{failTable: "staff"}
	svc := newTestService(t, api, func(cfg *Config) {
		cfg.Datasets = []string{DatasetRetail}
		cfg.IfExists = "fail"
	})

	report, err := svc.Seed(context.Background())
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !strings.Contains(err.Error(), "retail.staff") || !strings.Contains(err.Error(), "409") {
		t.Fatalf("error = %v", err)
	}
	if len(report.Tables) != 1 || report.Tables[0].TableName != "customers" {
		t.Fatalf("report = %+v", report)
	}
	if api.uploads[0].ifExists != "fail" {
		t.Fatalf("if_exists = %q", api.uploads[0].ifExists)
	}
}

func TestSeedToleratesMissingSchemaSync(t *testing.T) {
	api := &fakeAPI{omitSync: true}
	svc := newTestService(t, api, func(cfg *Config) {
		cfg.Datasets = []string{DatasetCinema}
	})
	report, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(report.Tables) != 3 {
		t.Fatalf("tables = %d, want 3", len(report.Tables))
	}
}

func TestRunGivesUpWhenAPINeverReady(t *testing.T) {
	api := &fakeAPI{unavailable: true}
	svc := newTestService(t, api, func(cfg *Config) {
		cfg.ReadyTimeout = 30 * time.Millisecond
	})
	_, err := svc.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "wait for api readiness") {
		t.Fatalf("Run() error = %v", err)
	}
	if len(api.uploads) != 0 {
		t.Fatalf("uploads = %d, want none", len(api.uploads))
	}
}

func TestNewServiceValidatesConfig(t *testing.T) {
	if _, err := NewService(Config{}, nil, nil); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewService(Config{APIBaseURL: "http://localhost"}, nil, nil); err == nil {
		t.Fatal("expected error for empty datasets")
	}
}
