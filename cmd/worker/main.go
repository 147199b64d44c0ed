package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/proposalflow/internal/app"
	"github.com/MrJamesThe3rd/proposalflow/internal/config"
	"github.com/MrJamesThe3rd/proposalflow/internal/event/redisqueue"
	"github.com/MrJamesThe3rd/proposalflow/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()})).
		With("app", cfg.App.Name, "component", "worker"))

	if cfg.Queue.Driver != "redis" {
		slog.Error("worker consumes redis queues only", "driver", cfg.Queue.Driver)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.New(redisqueue.NewConsumer(a.Redis, cfg.Queue.Prefix), a.Workflow)

	slog.Info("worker started", "queues", worker.Queues())

	if err := w.Run(ctx); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}

	slog.Info("worker stopped")
}
