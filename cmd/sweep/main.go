package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/infra/app"
	"github.com/evans-manyala/enxero/internal/infra/config"
)

// sweep deletes expired sessions and stale login attempts once and exits.
// Schedule it externally, e.g. from cron or a Kubernetes CronJob.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	result, err := application.Sweep(ctx)
	if err != nil {
		application.Logger().Error("sweep failed", zap.Error(err))
		application.Close()
		os.Exit(1)
	}

	application.Logger().Info("sweep finished",
		zap.Int64("sessions_removed", result.Sessions),
		zap.Int64("attempts_removed", result.Attempts),
	)
	application.Close()
}
