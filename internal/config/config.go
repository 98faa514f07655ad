package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const envPrefix = "TABLETALK_"

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Store         StoreConfig
	Vector        VectorConfig
	Embedding     EmbeddingConfig
	AI            AIConfig
	Examples      ExamplesConfig
	Ingest        IngestConfig
	ObjectStore   ObjectStoreConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the relational store holding uploaded tables.
// Driver is "duckdb" (DSN is a file path, empty for in-memory) or "postgres".
type StoreConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	DefaultRowLimit int
}

// VectorConfig points at the chromem persistence directory. An empty Path
// keeps every collection in memory.
type VectorConfig struct {
	Path     string
	Compress bool
}

type EmbeddingConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type ExamplesConfig struct {
	File string
}

type IngestConfig struct {
	MaxUploadBytes int64
	BatchSize      int
	ArchiveEnabled bool
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type ObservabilityConfig struct {
	LogLevel  slog.Level
	LogFormat string
}

// LoadDotEnv copies variables from the given .env files into the process
// environment. Variables already set win, and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup(envPrefix + "PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid %sPROFILE: %q", envPrefix, profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	steps := []func() error{
		func() error { return applyString(lookup, "SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },

		func() error { return applyString(lookup, "STORE_DRIVER", &cfg.Store.Driver) },
		func() error { return applyString(lookup, "STORE_DSN", &cfg.Store.DSN) },
		func() error { return applyInt(lookup, "STORE_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns) },
		func() error { return applyInt(lookup, "STORE_MAX_IDLE_CONNS", &cfg.Store.MaxIdleConns) },
		func() error { return applyDuration(lookup, "STORE_CONN_MAX_IDLE_TIME", &cfg.Store.ConnMaxIdleTime) },
		func() error { return applyDuration(lookup, "STORE_CONN_MAX_LIFETIME", &cfg.Store.ConnMaxLifetime) },
		func() error { return applyInt(lookup, "STORE_DEFAULT_ROW_LIMIT", &cfg.Store.DefaultRowLimit) },

		func() error { return applyString(lookup, "VECTOR_PATH", &cfg.Vector.Path) },
		func() error { return applyBool(lookup, "VECTOR_COMPRESS", &cfg.Vector.Compress) },

		func() error { return applyString(lookup, "EMBEDDING_PROVIDER", &cfg.Embedding.Provider) },
		func() error { return applyString(lookup, "EMBEDDING_BASE_URL", &cfg.Embedding.BaseURL) },
		func() error { return applyString(lookup, "EMBEDDING_API_KEY", &cfg.Embedding.APIKey) },
		func() error { return applyString(lookup, "EMBEDDING_MODEL", &cfg.Embedding.Model) },

		func() error { return applyString(lookup, "AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyInt(lookup, "AI_MAX_TOKENS", &cfg.AI.MaxTokens) },
		func() error { return applyDuration(lookup, "AI_TIMEOUT", &cfg.AI.Timeout) },

		func() error { return applyString(lookup, "EXAMPLES_FILE", &cfg.Examples.File) },

		func() error { return applyInt64(lookup, "INGEST_MAX_UPLOAD_BYTES", &cfg.Ingest.MaxUploadBytes) },
		func() error { return applyInt(lookup, "INGEST_BATCH_SIZE", &cfg.Ingest.BatchSize) },
		func() error { return applyBool(lookup, "INGEST_ARCHIVE_ENABLED", &cfg.Ingest.ArchiveEnabled) },

		func() error { return applyString(lookup, "OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error { return applyString(lookup, "OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey) },
		func() error { return applyBool(lookup, "OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},

		func() error { return applyStringList(lookup, "CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins) },

		func() error { return applyLogLevel(lookup, "LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyLogFormat(lookup, "LOG_FORMAT", &cfg.Observability.LogFormat) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	switch cfg.Store.Driver {
	case "duckdb":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid %sSTORE_DRIVER: %q", envPrefix, cfg.Store.Driver)
	}
	switch cfg.Embedding.Provider {
	case "openai", "ollama", "hash":
	default:
		return fmt.Errorf("invalid %sEMBEDDING_PROVIDER: %q", envPrefix, cfg.Embedding.Provider)
	}
	switch cfg.AI.Provider {
	case "openai-compatible", "go-openai", "langchain-openai", "ollama", "huggingface":
	default:
		return fmt.Errorf("invalid %sAI_PROVIDER: %q", envPrefix, cfg.AI.Provider)
	}
	if cfg.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest batch size must be > 0")
	}
	if cfg.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("ingest max upload bytes must be > 0")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "tabletalk-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Driver:          "duckdb",
			DSN:             "data/tabletalk.duckdb",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			DefaultRowLimit: 100,
		},
		Vector: VectorConfig{
			Path: "data/vectors",
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "text-embedding-3-small",
		},
		AI: AIConfig{
			Provider:    "openai-compatible",
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-4o-mini",
			Temperature: 0,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
		},
		Ingest: IngestConfig{
			MaxUploadBytes: 32 << 20,
			BatchSize:      500,
			ArchiveEnabled: false,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "tabletalk",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			AutoCreateBucket: true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Observability: ObservabilityConfig{
			LogLevel:  slog.LevelDebug,
			LogFormat: "console",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Store.DSN = ""
		cfg.Vector.Path = ""
		cfg.Embedding.Provider = "hash"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Observability.LogFormat = "json"
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogFormat = "json"
		cfg.Vector.Compress = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
		cfg.CORS.AllowedOrigins = nil
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyStringList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	*dst = values
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s%s: %q", envPrefix, key, raw)
	}
	return nil
}

func applyLogFormat(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	format := strings.ToLower(strings.TrimSpace(raw))
	switch format {
	case "json", "text", "console":
		*dst = format
	default:
		return fmt.Errorf("invalid %s%s: %q", envPrefix, key, raw)
	}
	return nil
}
