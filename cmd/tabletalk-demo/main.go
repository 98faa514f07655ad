package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/demo/seeder"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := seeder.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo seeder config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	service, err := seeder.NewService(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize demo seeder", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"demo seeder started",
		slog.String("api_url", cfg.APIBaseURL),
		slog.Any("datasets", cfg.Datasets),
		slog.Int("scale", cfg.Scale),
		slog.String("if_exists", string(cfg.IfExists)),
	)

	report, err := service.Run(ctx)
	if err != nil {
		logger.Error("demo seeder failed", slog.Any("error", err), slog.Int("tables_uploaded", len(report.Tables)))
		os.Exit(1)
	}
	logger.Info("demo seeder finished",
		slog.Int("tables_uploaded", len(report.Tables)),
		slog.Int64("rows_written", report.RowsWritten()),
	)
}
