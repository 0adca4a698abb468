// Package sheets fetches raw subject attendance sheets over HTTP. Each
// refresh cycle fetches every configured source concurrently and fails fast:
// one unreachable sheet fails the whole cycle, and the next scheduled cycle
// retries naturally.
package sheets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"rollcall/pkg/contracts/domain"
)

// Source identifies one subject's fetchable sheet.
type Source struct {
	Subject string `yaml:"subject" validate:"required"`
	URL     string `yaml:"url" validate:"required,url"`
}

// FetchError reports that a subject's sheet could not be retrieved.
type FetchError struct {
	Subject string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch sheet for %s: %v", e.Subject, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves sheet text with a bounded per-request timeout.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a fetcher. A zero timeout defaults to 15s.
func NewFetcher(logger *slog.Logger, timeout time.Duration) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// FetchAll retrieves every source concurrently and returns the sheets in
// source order. The first failure cancels the remaining fetches and is
// returned as a *FetchError; no partial results survive a failed cycle.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]domain.Sheet, error) {
	results := make([]domain.Sheet, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			text, err := f.fetch(ctx, src)
			if err != nil {
				return &FetchError{Subject: src.Subject, Err: err}
			}
			results[i] = domain.Sheet{Subject: src.Subject, RawText: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "fetched all sheets",
		slog.Int("sheet_count", len(results)))
	return results, nil
}

func (f *Fetcher) fetch(ctx context.Context, src Source) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
