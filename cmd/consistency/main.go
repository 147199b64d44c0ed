package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/proposalflow/internal/config"
	"github.com/MrJamesThe3rd/proposalflow/internal/consistency"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
)

// Prints a drift report as JSON. Exits 1 when any proposal has drifted.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := consistency.NewChecker(db, nil).Check(ctx)
	if err != nil {
		slog.Error("consistency check failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		slog.Error("failed to encode report", "error", err)
		os.Exit(1)
	}

	if report.HasDrift() {
		os.Exit(1)
	}
}
