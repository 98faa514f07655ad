package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabletalk/tabletalk/internal/api"
	"github.com/tabletalk/tabletalk/internal/archive"
	"github.com/tabletalk/tabletalk/internal/completion"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/embedding"
	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/ingest"
	"github.com/tabletalk/tabletalk/internal/nl2sql"
	"github.com/tabletalk/tabletalk/internal/observability"
	s3store "github.com/tabletalk/tabletalk/internal/storage/s3"
	"github.com/tabletalk/tabletalk/internal/tablestore/sqlstore"
	chromemindex "github.com/tabletalk/tabletalk/internal/vectorindex/chromem"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("tabletalk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := sqlstore.Open(context.Background(), sqlstore.DBConfig{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open table store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store, err := sqlstore.New(db, cfg.Store.Driver)
	if err != nil {
		logger.Error("failed to initialize table store", slog.Any("error", err))
		os.Exit(1)
	}

	embedder, err := embedding.New(embedding.Config{
		Provider: cfg.Embedding.Provider,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
		Model:    cfg.Embedding.Model,
	})
	if err != nil {
		logger.Error("failed to initialize embedder", slog.Any("error", err))
		os.Exit(1)
	}
	vectors, err := chromemindex.New(chromemindex.Config{
		Path:     cfg.Vector.Path,
		Compress: cfg.Vector.Compress,
	}, embedding.Func(embedder))
	if err != nil {
		logger.Error("failed to open vector index", slog.Any("error", err))
		os.Exit(1)
	}

	llm, err := completion.New(completion.Config{
		Provider:    cfg.AI.Provider,
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize text completion", slog.Any("error", err))
		os.Exit(1)
	}

	var exampleSet []examples.Example
	if cfg.Examples.File != "" {
		exampleSet, err = examples.Load(cfg.Examples.File)
		if err != nil {
			logger.Error("failed to load examples", slog.String("path", cfg.Examples.File), slog.Any("error", err))
			os.Exit(1)
		}
	}

	service, err := nl2sql.NewService(nl2sql.Deps{
		Store:      store,
		Vectors:    vectors,
		Completion: llm,
		Examples:   exampleSet,
		Dialect:    store.Dialect(),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to initialize query generator", slog.Any("error", err))
		os.Exit(1)
	}

	ingestCfg := ingest.Config{
		Store:     store,
		Schema:    service,
		BatchSize: cfg.Ingest.BatchSize,
		Logger:    logger,
	}
	deps := api.Dependencies{
		Logger:            logger,
		Store:             store,
		Generator:         service,
		DependencyTimeout: time.Second,
	}
	readiness := []api.ReadinessCheck{api.CheckStore(store), api.CheckObjectStoreConfig(cfg)}
	if cfg.Ingest.ArchiveEnabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver, err := archive.New(objectStore)
		if err != nil {
			logger.Error("failed to initialize upload archive", slog.Any("error", err))
			os.Exit(1)
		}
		ingestCfg.Archiver = archiver
		deps.Archives = archiver
		readiness = append(readiness, api.CheckObjectStore(objectStore))
	}
	deps.Readiness = api.CombineReadinessChecks(readiness...)

	pipeline, err := ingest.New(ingestCfg)
	if err != nil {
		logger.Error("failed to initialize ingest pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	deps.Uploader = pipeline

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		provider, model := llm.Describe()
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("dialect", store.Dialect()),
			slog.String("completion_provider", provider),
			slog.String("completion_model", model),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
