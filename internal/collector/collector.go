package collector

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"claimsledger/internal/config"
	"claimsledger/internal/diagnostics"
	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/exporter"
	"claimsledger/internal/files"
	"claimsledger/internal/infrastructure"
	"claimsledger/pkg/contracts/domain"
)

// Collector runs discovery, download and extraction for one working
// directory.
type Collector struct {
	client *Client
	cfg    config.CollectorConfig
	paths  *config.Paths
	writer *exporter.CSVWriter
	files  *files.Manager
	logger *slog.Logger
}

// New creates a collector writing under paths.
func New(client *Client, cfg config.CollectorConfig, paths *config.Paths, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		client: client,
		cfg:    cfg,
		paths:  paths,
		writer: exporter.NewCSVWriter(paths, logger),
		files:  files.NewManager(paths, logger),
		logger: infrastructure.WithComponent(logger, "collector"),
	}
}

// Options selects which collector steps run.
type Options struct {
	SkipDownload bool
	SkipRegistry bool
	// RefreshRegistry re-downloads an existing registry, restoring the
	// previous copy when the download fails.
	RefreshRegistry bool
}

// Summary reports what a run did.
type Summary struct {
	Manifest       *domain.PeriodManifest
	Archives       int
	ExtractedFiles int
	ArchiveErrors  int
}

// Run discovers the latest periods and writes the period manifest. Unless
// disabled it then downloads and extracts every archive and fetches the
// registry. Archive extraction failures are recorded in the error report
// and do not stop the run.
func (c *Collector) Run(ctx context.Context, opts Options) (*Summary, error) {
	ctx = infrastructure.EnsureTraceID(ctx)

	discovered, err := c.client.Discover(ctx, c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	manifest, err := BuildManifest(c.cfg.BaseURL, discovered, c.cfg.Periods)
	if err != nil {
		return nil, err
	}
	if err := SaveManifest(c.paths.PeriodManifestJSON, manifest); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "period manifest written",
		slog.Int("recognized_periods", len(discovered.Periods)),
		slog.Int("ignored", len(manifest.Ignored)),
		slog.Int("selected", len(manifest.Periods)))

	summary := &Summary{Manifest: manifest}
	if opts.SkipDownload {
		return summary, nil
	}

	report := diagnostics.NewReport(nil)
	for _, mp := range manifest.Periods {
		dir := c.paths.RawPeriodDir(mp.Label)
		archives, err := c.client.FetchPeriod(ctx, mp, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", mp.Label, err)
		}
		summary.Archives += len(archives)

		for _, a := range archives {
			n, err := ExtractZip(a, dir)
			summary.ExtractedFiles += n
			if err != nil {
				summary.ArchiveErrors++
				report.AddError(domain.KindArchiveError, mp.Period(), fmt.Sprintf("%s | %v", filepath.Base(a), err))
				c.logger.WarnContext(ctx, "failed to extract archive",
					slog.String("archive", filepath.Base(a)),
					slog.String("error", err.Error()))
			}
		}
		c.logger.InfoContext(ctx, "period collected",
			slog.String("period", mp.Label),
			slog.Int("archives", len(archives)))
	}

	if err := c.writer.WriteSimpleCSV(c.paths.ErrorReportCSV, diagnostics.ErrorReportHeader, report.ErrorRecords()); err != nil {
		return nil, fmt.Errorf("failed to write error report: %w", err)
	}

	if !opts.SkipRegistry {
		if err := c.fetchRegistry(ctx, opts.RefreshRegistry); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// fetchRegistry keeps a present registry unless refresh is set. A refresh
// moves the old file aside and puts it back if the download fails.
func (c *Collector) fetchRegistry(ctx context.Context, refresh bool) error {
	dest := c.paths.RegistryCSV
	if !c.files.FileExists(dest) {
		return c.client.FetchRegistry(ctx, c.cfg.RegistryDirURL, dest)
	}

	size, _ := c.files.GetFileSize(dest)
	if !refresh {
		c.logger.InfoContext(ctx, "registry already present",
			slog.String("path", dest),
			slog.Int64("bytes", size))
		return nil
	}

	backup := dest + ".bak"
	if err := c.files.MoveFile(dest, backup); err != nil {
		return apperrors.NewStorageError("failed to set previous registry aside", err).WithContext("path", dest)
	}
	if err := c.client.FetchRegistry(ctx, c.cfg.RegistryDirURL, dest); err != nil {
		if rerr := c.files.MoveFile(backup, dest); rerr != nil {
			c.logger.ErrorContext(ctx, "failed to restore previous registry",
				slog.String("backup", backup),
				slog.String("error", rerr.Error()))
		}
		return err
	}
	c.logger.InfoContext(ctx, "registry refreshed",
		slog.String("path", dest),
		slog.Int64("previous_bytes", size))
	return nil
}
