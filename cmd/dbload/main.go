package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"claimsledger/internal/config"
	"claimsledger/internal/infrastructure"
	"claimsledger/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	root := flag.String("root", "", "working directory holding the pipeline outputs (overrides config)")
	dsn := flag.String("dsn", "", "PostgreSQL connection string (overrides config)")
	schemaOnly := flag.Bool("schema-only", false, "create the tables and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *root != "" {
		cfg.Paths.Root = *root
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	if err := run(ctx, cfg, *schemaOnly); err != nil {
		slog.Error("database load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, schemaOnly bool) error {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	ctx = infrastructure.EnsureTraceID(ctx)

	paths, err := config.NewPaths(cfg.Paths.Root)
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Provision(ctx, db); err != nil {
		return err
	}
	logger.InfoContext(ctx, "schema provisioned")
	if schemaOnly {
		return nil
	}

	bundle, err := store.ReadBundle(paths)
	if err != nil {
		return err
	}

	plan, err := store.NewLoader(db, logger).Load(ctx, bundle)
	if err != nil {
		return err
	}

	counts := plan.Counts()
	logger.InfoContext(ctx, "Database load finished",
		slog.Any("counts", counts))
	return nil
}
