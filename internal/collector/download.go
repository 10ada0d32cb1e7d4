package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"claimsledger/internal/config"
	"claimsledger/internal/infrastructure"
	"claimsledger/pkg/contracts/domain"
)

// Download outcomes reported to metrics.
const (
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
)

// Fetch downloads rawURL to dest. An existing dest is kept as is. The body
// is streamed into dest.part and renamed once complete, so dest never
// holds a partial file.
func (c *Client) Fetch(ctx context.Context, rawURL, dest string) (skipped bool, err error) {
	if config.FileExists(dest) {
		infrastructure.RecordDownload(ctx, c.metrics, OutcomeSkipped, 0)
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	part := dest + ".part"
	var written int64
	err = c.retry(ctx, rawURL, func() error {
		resp, err := c.get(ctx, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		f, err := os.Create(part)
		if err != nil {
			return err
		}
		n, copyErr := io.Copy(f, resp.Body)
		closeErr := f.Close()
		if copyErr != nil {
			return copyErr
		}
		if closeErr != nil {
			return closeErr
		}
		written = n
		return nil
	})
	if err != nil {
		os.Remove(part)
		infrastructure.RecordDownload(ctx, c.metrics, OutcomeFailed, 0)
		return false, err
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return false, fmt.Errorf("failed to move download into place: %w", err)
	}

	infrastructure.RecordDownload(ctx, c.metrics, OutcomeDownloaded, written)
	c.logger.InfoContext(ctx, "downloaded",
		slog.String("url", rawURL),
		slog.String("file", filepath.Base(dest)),
		slog.Int64("bytes", written))
	return false, nil
}

// archiveName is the local file name for an archive URL.
func archiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

// FetchPeriod downloads every archive of p into dir, at most Concurrency at
// a time. It returns the local archive paths in URL order.
func (c *Client) FetchPeriod(ctx context.Context, p domain.ManifestPeriod, dir string) ([]string, error) {
	dests := make([]string, len(p.ZipURLs))
	for i, u := range p.ZipURLs {
		dests[i] = filepath.Join(dir, archiveName(u))
	}

	g, ctx := errgroup.WithContext(ctx)
	limit := c.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, u := range p.ZipURLs {
		g.Go(func() error {
			_, err := c.Fetch(ctx, u, dests[i])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dests, nil
}
