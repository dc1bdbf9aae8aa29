// Command loader bulk-imports a historical dataset JSON file into Postgres.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"

	"github.com/vidlake/vidlake/pkg/pg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	fileFlag := flag.String("file", "", "Path to the dataset JSON file")
	flag.Parse()

	if *fileFlag == "" {
		flag.Usage()
		return fmt.Errorf("--file is required")
	}

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(*fileFlag)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	var ds pg.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return fmt.Errorf("failed to decode dataset: %w", err)
	}
	log.Info("dataset decoded", "videos", len(ds.Videos))

	store, err := pg.NewClient(ctx, log, pg.LoadConfigFromEnv())
	if err != nil {
		return fmt.Errorf("failed to create postgres client: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	start := time.Now()
	videos, snapshots, err := store.LoadDataset(ctx, &ds)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	log.Info("dataset loaded", "videos", videos, "snapshots", snapshots, "duration", time.Since(start))
	return nil
}
