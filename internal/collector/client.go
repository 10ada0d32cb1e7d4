// Package collector discovers, downloads and unpacks the regulator's
// quarterly archives and the operator registry.
//
// It is the only part of the system that talks to the network. Every
// request is retried with exponential backoff; archives of one period are
// fetched in parallel up to the configured concurrency.
package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"claimsledger/internal/config"
	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/infrastructure"
)

// Client performs HTTP requests with retry.
type Client struct {
	http      *http.Client
	cfg       config.CollectorConfig
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
	userAgent string
}

// NewClient creates a client for cfg. A nil httpClient gets one with the
// configured timeout; nil metrics record nothing.
func NewClient(cfg config.CollectorConfig, httpClient *http.Client, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Client{
		http:      httpClient,
		cfg:       cfg,
		metrics:   metrics,
		logger:    infrastructure.WithComponent(logger, "collector"),
		userAgent: cfg.UserAgent,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxInterval = c.cfg.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)
}

// retry runs op until it succeeds, returns a permanent error or the
// attempts are exhausted.
func (c *Client) retry(ctx context.Context, what string, op func() error) error {
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return op()
	}, c.newBackOff(ctx), func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "request failed, retrying",
			slog.String("target", what),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	})
	if err != nil {
		return apperrors.NewNetworkError(fmt.Sprintf("failed to fetch %s after %d attempt(s)", what, attempt), err)
	}
	return nil
}

// get issues one GET. Client errors other than 408 and 429 are permanent.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		serr := &StatusError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(serr)
		}
		return nil, serr
	}
	return resp, nil
}

// GetText fetches url and returns its body.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	var body string
	err := c.retry(ctx, url, func() error {
		resp, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = string(data)
		return nil
	})
	return body, err
}
