// Package common holds helpers shared by the command actions.
package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/backend"
	"github.com/dtnitsch/quote-origin/pkg/caching"
	"github.com/dtnitsch/quote-origin/pkg/db"
	"github.com/dtnitsch/quote-origin/pkg/fetcher"
	"github.com/dtnitsch/quote-origin/pkg/orchestrator"
	"github.com/dtnitsch/quote-origin/pkg/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// NewLogger writes JSON logs to stderr; --quiet keeps only errors and
// --verbose adds debug output.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	switch {
	case c.Bool("quiet"):
		logLevel = slog.LevelError
	case c.Bool("verbose"):
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// WriteOutput encodes v to w as json or yaml.
func WriteOutput(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}

// Source is one document to process: a URL to fetch or a local file.
// A file may carry the URL it was saved from.
type Source struct {
	URL  string
	File string
}

func (s Source) String() string {
	if s.File != "" {
		return s.File
	}
	return s.URL
}

// Sources reads --url and --file. With a single --file, --url names the
// page the file was saved from instead of a page to fetch.
func Sources(c *cli.Context) ([]Source, error) {
	urls := c.StringSlice("url")
	files := c.StringSlice("file")

	valid, invalid := SanitizeAndValidateURLs(urls)
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid URLs: %v", invalid)
	}

	if len(files) == 1 && len(valid) <= 1 {
		src := Source{File: files[0]}
		if len(valid) == 1 {
			src.URL = valid[0]
		}
		return []Source{src}, nil
	}

	var sources []Source
	for _, u := range valid {
		sources = append(sources, Source{URL: u})
	}
	for _, f := range files {
		sources = append(sources, Source{File: f})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("nothing to process: pass --url or --file")
	}
	return sources, nil
}

// ErrSourceNotFound marks a --file that does not exist.
var ErrSourceNotFound = errors.New("source file not found")

// Error types reported for documents that could not be loaded.
const (
	ErrorTypeNotFound = "not_found"
	ErrorTypeFetch    = "fetch_error"
)

// LoadHTML reads a local file or fetches the URL.
func LoadHTML(ctx context.Context, src Source, f *fetcher.Fetcher, s *storage.Storage) ([]byte, error) {
	if src.File != "" {
		if !s.HasFile(src.File) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src.File)
		}
		return s.ReadFile(src.File)
	}
	data, _, err := f.GetHTML(ctx, src.URL)
	return data, err
}

// LoadErrorType classifies a LoadHTML error.
func LoadErrorType(err error) string {
	if errors.Is(err, ErrSourceNotFound) || fetcher.IsNotFound(err) {
		return ErrorTypeNotFound
	}
	return ErrorTypeFetch
}

// NewFetcher builds the article fetcher, with the disk cache unless
// --no-cache is set.
func NewFetcher(c *cli.Context, logger *slog.Logger) (*fetcher.Fetcher, error) {
	opts := fetcher.Options{Logger: logger}
	if !c.Bool("no-cache") {
		ttl := c.Duration("cache-ttl")
		cache, err := caching.NewCache(c.String("cache-dir"), ttl)
		if err != nil {
			return nil, err
		}
		opts.Cache = cache
	}
	return fetcher.NewFetcher(opts), nil
}

// OpenHistory opens the history database unless --no-history is set.
// A nil DB with a nil error means history is off.
func OpenHistory(c *cli.Context, cfg models.Config) (*db.DB, error) {
	if c.Bool("no-history") {
		return nil, nil
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// NewCoordinator wires the backend client, and the history recorder when
// database is not nil.
func NewCoordinator(cfg models.Config, database *db.DB, logger *slog.Logger) *orchestrator.Coordinator {
	opts := orchestrator.Options{Logger: logger, SweepDelay: cfg.SweepDelay}
	if database != nil {
		opts.Recorder = db.Recorder{DB: database, Logger: logger}
	}
	return orchestrator.New(backend.NewClient(cfg.BackendURL, cfg.HTTPTimeout), opts)
}

// Elapsed formats a duration for human-readable summaries.
func Elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
