package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/evans-manyala/enxero/internal/infra/app"
	"github.com/evans-manyala/enxero/internal/infra/config"
	"github.com/evans-manyala/enxero/internal/migrate"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.App.AutoMigrate {
		if err := migrate.Up(ctx, cfg.Postgres.DSN()); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	err = application.Run(ctx)
	application.Close()
	if err != nil {
		log.Printf("application stopped: %v", err)
		os.Exit(1)
	}
}
