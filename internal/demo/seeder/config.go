package seeder

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/ingest"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	APIBaseURL   string
	Datasets     []string
	Scale        int
	Seed         int64
	IfExists     ingest.IfExists
	HTTPTimeout  time.Duration
	ReadyTimeout time.Duration
	Interval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		APIBaseURL:   "http://localhost:8080",
		Datasets:     slices.Clone(DatasetNames),
		Scale:        1,
		Seed:         time.Now().UTC().UnixNano(),
		IfExists:     ingest.IfExistsReplace,
		HTTPTimeout:  2 * time.Minute,
		ReadyTimeout: 30 * time.Second,
		Interval:     time.Second,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	applyString(lookup, "TABLETALK_DEMO_API_URL", &cfg.APIBaseURL)
	if raw, ok := lookup("TABLETALK_DEMO_DATASETS"); ok {
		cfg.Datasets = splitList(raw)
	}
	if raw, ok := lookup("TABLETALK_DEMO_IF_EXISTS"); ok {
		mode, err := ingest.ParseIfExists(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TABLETALK_DEMO_IF_EXISTS: %w", err)
		}
		cfg.IfExists = mode
	}
	if err := applyInt(lookup, "TABLETALK_DEMO_SCALE", &cfg.Scale); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "TABLETALK_DEMO_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_DEMO_HTTP_TIMEOUT", &cfg.HTTPTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_DEMO_READY_TIMEOUT", &cfg.ReadyTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_DEMO_INTERVAL", &cfg.Interval); err != nil {
		return Config{}, err
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("TABLETALK_DEMO_API_URL is required")
	}
	if len(cfg.Datasets) == 0 {
		return Config{}, fmt.Errorf("TABLETALK_DEMO_DATASETS must name at least one dataset")
	}
	for _, name := range cfg.Datasets {
		if !slices.Contains(DatasetNames, name) {
			return Config{}, fmt.Errorf("unknown dataset %q in TABLETALK_DEMO_DATASETS (want %s)", name, strings.Join(DatasetNames, ", "))
		}
	}
	if cfg.Scale <= 0 {
		return Config{}, fmt.Errorf("TABLETALK_DEMO_SCALE must be > 0")
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("TABLETALK_DEMO_HTTP_TIMEOUT must be > 0")
	}
	if cfg.ReadyTimeout < 0 {
		return Config{}, fmt.Errorf("TABLETALK_DEMO_READY_TIMEOUT must be >= 0")
	}
	if cfg.Interval <= 0 {
		return Config{}, fmt.Errorf("TABLETALK_DEMO_INTERVAL must be > 0")
	}
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) {
	if raw, ok := lookup(key); ok {
		*dst = strings.TrimSpace(raw)
	}
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
