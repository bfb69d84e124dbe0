// Package fetcher downloads article HTML, reusing a disk cache when one is set.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dtnitsch/quote-origin/pkg/caching"
)

const (
	DefaultUserAgent = "quote-origin/1.0 (+https://github.com/dtnitsch/quote-origin)"
	DefaultTimeout   = 30 * time.Second

	// maxBodyBytes caps a single article download.
	maxBodyBytes = 10 << 20
)

// StatusError is a non-200 response from the article host.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s, status code: %d", e.URL, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the article host.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Cache may be nil to always download.
	Cache  *caching.Cache
	Logger *slog.Logger
}

type Fetcher struct {
	client    *http.Client
	userAgent string
	cache     *caching.Cache
	logger    *slog.Logger
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		cache:     opts.Cache,
		logger:    opts.Logger,
	}
}

// GetHTML returns the page at url, from the cache when a fresh copy exists.
// The boolean reports a cache hit.
func (f *Fetcher) GetHTML(ctx context.Context, url string) ([]byte, bool, error) {
	if f.cache != nil {
		if data, ok := f.cache.Get(url); ok {
			f.logger.Debug("Article cache hit", "url", url)
			return data, true, nil
		}
	}

	start := time.Now()
	data, err := f.download(ctx, url)
	if err != nil {
		if f.cache != nil && IsNotFound(err) {
			// Drop the expired copy of a page that no longer exists.
			if derr := f.cache.Delete(url); derr != nil {
				f.logger.Warn("Failed to drop cached article", "url", url, "error", derr)
			}
		}
		return nil, false, err
	}
	f.logger.Info("Fetched article", "url", url, "bytes", len(data), "duration", time.Since(start))

	if f.cache != nil {
		if err := f.cache.Set(url, data); err != nil {
			f.logger.Warn("Failed to cache article", "url", url, "error", err)
		}
	}
	return data, false, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, nil
}
