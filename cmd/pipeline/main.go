package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"claimsledger/internal/config"
	"claimsledger/internal/infrastructure"
	"claimsledger/internal/pipeline"
	"claimsledger/pkg/contracts"
)

// options are the command-line settings of a pipeline run.
type options struct {
	configPath string
	root       string
	stages     []string
	groupBy    string
	strictJoin bool
	strict     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var stageList string
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&opts.root, "root", "", "working directory holding data/ and docs/ (overrides config)")
	fs.StringVar(&stageList, "stage", "", "comma-separated stages to run (default: all)")
	fs.StringVar(&opts.groupBy, "group-by", "", "aggregation grouping: legal_name_region or identifier")
	fs.BoolVar(&opts.strictJoin, "strict-join", false, "drop ledger rows without a registry match")
	fs.BoolVar(&opts.strict, "strict", false, "drop rows with invalid identifiers during validation")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	for _, id := range strings.Split(stageList, ",") {
		if id = strings.TrimSpace(id); id != "" {
			opts.stages = append(opts.stages, id)
		}
	}
	switch opts.groupBy {
	case "", config.GroupByLegalNameRegion, config.GroupByIdentifier:
	default:
		return options{}, fmt.Errorf("invalid -group-by %q", opts.groupBy)
	}
	return opts, nil
}

// apply overlays flags that were set onto cfg.
func (o options) apply(cfg *config.Config) {
	if o.root != "" {
		cfg.Paths.Root = o.root
	}
	if o.groupBy != "" {
		cfg.Pipeline.GroupBy = o.groupBy
	}
	if o.strictJoin {
		cfg.Pipeline.StrictJoin = true
	}
	if o.strict {
		cfg.Pipeline.StrictValidation = true
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("pipeline failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(cfg)

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

	logger.InfoContext(ctx, "Starting claims pipeline",
		slog.String("version", contracts.GetVersionString()),
		slog.String("root", paths.Root),
		slog.Any("stages", opts.stages),
		slog.String("group_by", cfg.Pipeline.GroupBy))

	runner := pipeline.NewRunner(pipeline.NewEnv(cfg, paths, logger), pipeline.DefaultRegistry(), metrics)
	manifest, err := runner.Run(ctx, opts.stages...)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Pipeline finished",
		slog.String("run_id", manifest.ID),
		slog.String("status", manifest.Status),
		slog.String("manifest", paths.RunManifestJSON))
	return nil
}
