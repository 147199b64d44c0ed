package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/proposalflow/internal/config"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
)

func main() {
	steps := flag.Int("steps", 1, "migrations to revert with down")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-steps n] up|down|version")
	}
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	connStr := cfg.ConnectionString()

	switch flag.Arg(0) {
	case "up":
		err = database.Migrate(connStr)
	case "down":
		err = database.Rollback(connStr, *steps)
	case "version":
		var (
			version uint
			dirty   bool
		)

		version, dirty, err = database.Version(connStr)
		if err == nil {
			fmt.Printf("version %d dirty=%t\n", version, dirty)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}
