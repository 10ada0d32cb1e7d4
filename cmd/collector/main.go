package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"claimsledger/internal/collector"
	"claimsledger/internal/config"
	"claimsledger/internal/infrastructure"
	"claimsledger/pkg/contracts"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	root := flag.String("root", "", "working directory holding data/ and docs/ (overrides config)")
	periods := flag.Int("periods", 0, "number of most recent quarters to collect (overrides config)")
	skipDownload := flag.Bool("manifest-only", false, "write the period manifest without downloading")
	skipRegistry := flag.Bool("skip-registry", false, "do not fetch the operator registry")
	refreshRegistry := flag.Bool("refresh-registry", false, "download the registry again even when present")
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
	if *periods > 0 {
		cfg.Collector.Periods = *periods
	}

	opts := collector.Options{
		SkipDownload:    *skipDownload,
		SkipRegistry:    *skipRegistry,
		RefreshRegistry: *refreshRegistry,
	}
	if err := run(ctx, cfg, opts); err != nil {
		slog.Error("collector failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts collector.Options) error {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := config.NewPaths(cfg.Paths.Root)
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return err
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Starting collector",
		slog.String("version", contracts.GetVersionString()),
		slog.String("base_url", cfg.Collector.BaseURL),
		slog.Int("periods", cfg.Collector.Periods),
		slog.Bool("manifest_only", opts.SkipDownload))

	client := collector.NewClient(cfg.Collector, nil, metrics, logger)
	summary, err := collector.New(client, cfg.Collector, paths, logger).Run(ctx, opts)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Collector finished",
		slog.Int("periods", len(summary.Manifest.Periods)),
		slog.Int("archives", summary.Archives),
		slog.Int("extracted_files", summary.ExtractedFiles),
		slog.Int("archive_errors", summary.ArchiveErrors))
	return nil
}
