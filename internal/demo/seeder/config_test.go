package seeder

import (
	"reflect"
	"testing"
	"time"

	"github.com/tabletalk/tabletalk/internal/ingest"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if !reflect.DeepEqual(cfg.Datasets, DatasetNames) {
		t.Fatalf("Datasets = %v", cfg.Datasets)
	}
	if cfg.IfExists != ingest.IfExistsReplace {
		t.Fatalf("IfExists = %q", cfg.IfExists)
	}
	if cfg.Scale != 1 {
		t.Fatalf("Scale = %d", cfg.Scale)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"TABLETALK_DEMO_API_URL":       "http://api.internal:9000/",
		"TABLETALK_DEMO_DATASETS":      " Cinema, apparel ,",
		"TABLETALK_DEMO_IF_EXISTS":     "append",
		"TABLETALK_DEMO_SCALE":         "3",
		"TABLETALK_DEMO_SEED":          "99",
		"TABLETALK_DEMO_HTTP_TIMEOUT":  "5s",
		"TABLETALK_DEMO_READY_TIMEOUT": "0s",
		"TABLETALK_DEMO_INTERVAL":      "250ms",
	}))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.APIBaseURL != "http://api.internal:9000" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if !reflect.DeepEqual(cfg.Datasets, []string{"cinema", "apparel"}) {
		t.Fatalf("Datasets = %v", cfg.Datasets)
	}
	if cfg.IfExists != ingest.IfExistsAppend || cfg.Scale != 3 || cfg.Seed != 99 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.HTTPTimeout != 5*time.Second || cfg.ReadyTimeout != 0 || cfg.Interval != 250*time.Millisecond {
		t.Fatalf("timings = %s/%s/%s", cfg.HTTPTimeout, cfg.ReadyTimeout, cfg.Interval)
	}
}

func TestLoadConfigFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"TABLETALK_DEMO_API_URL": " "},
		{"TABLETALK_DEMO_DATASETS": "warehouse"},
		{"TABLETALK_DEMO_DATASETS": ","},
		{"TABLETALK_DEMO_IF_EXISTS": "merge"},
		{"TABLETALK_DEMO_SCALE": "0"},
		{"TABLETALK_DEMO_SEED": "abc"},
		{"TABLETALK_DEMO_HTTP_TIMEOUT": "never"},
		{"TABLETALK_DEMO_INTERVAL": "0s"},
	}
	for _, env := range tests {
		if _, err := LoadConfigFromEnv(mapLookup(env)); err == nil {
			t.Fatalf("expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
