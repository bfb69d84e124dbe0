package detect

import (
	"fmt"

	"github.com/dtnitsch/quote-origin/internal/common"
	"github.com/dtnitsch/quote-origin/internal/config"
	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/annotator"
	"github.com/dtnitsch/quote-origin/pkg/session"
	"github.com/dtnitsch/quote-origin/pkg/storage"
	"github.com/urfave/cli/v2"
)

// Output is what detect prints per document.
type Output struct {
	SessionID  string            `json:"session_id" yaml:"session_id"`
	Source     string            `json:"source" yaml:"source"`
	Title      string            `json:"title,omitempty" yaml:"title,omitempty"`
	Language   string            `json:"language,omitempty" yaml:"language,omitempty"`
	Keywords   []string          `json:"keywords" yaml:"keywords"`
	Quotes     []models.Quote    `json:"quotes" yaml:"quotes"`
	Annotation *annotator.Report `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType  string            `json:"error_type,omitempty" yaml:"error_type,omitempty"`
}

// DetectAction extracts quotes from every source and prints them.
func DetectAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := config.FromCLI(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	detector, err := session.NewDetectorFromConfig(cfg, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	sources, err := common.Sources(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	f, err := common.NewFetcher(c, logger)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	database, err := common.OpenHistory(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if database != nil {
		defer database.Close()
	}

	store := &storage.Storage{}
	outputs := make([]Output, 0, len(sources))
	failed := 0
	for _, src := range sources {
		out := Output{Source: src.String(), Quotes: []models.Quote{}, Keywords: []string{}}

		raw, err := common.LoadHTML(c.Context, src, f, store)
		if err != nil {
			logger.Error("Failed to load document", "source", src.String(), "error", err)
			out.Error, out.ErrorType = err.Error(), common.LoadErrorType(err)
			outputs = append(outputs, out)
			failed++
			continue
		}

		s, err := detector.Detect(src.URL, raw)
		if err != nil {
			logger.Error("Failed to parse document", "source", src.String(), "error", err)
			out.Error, out.ErrorType = err.Error(), "parse_error"
			outputs = append(outputs, out)
			failed++
			continue
		}
		if c.Bool("annotate") {
			detector.Annotate(s)
		}

		if database != nil {
			if err := database.RecordSession(c.Context, s); err != nil {
				logger.Warn("Failed to record session", "session_id", s.ID, "error", err)
			}
		}

		out.SessionID = s.ID
		out.Title = s.Document.Article.Title
		out.Language = s.Document.Article.Language
		out.Keywords = s.Keywords
		out.Quotes = s.Quotes()
		out.Annotation = s.Annotation
		outputs = append(outputs, out)
	}

	var payload any = outputs
	if len(outputs) == 1 {
		payload = outputs[0]
	}
	if err := common.WriteOutput(c.App.Writer, c.String("format"), payload); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if failed == len(sources) {
		return cli.Exit("", 1)
	}
	return nil
}

// AnnotateAction detects and marks the quotes of one document and writes
// the annotated HTML to --out.
func AnnotateAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := config.FromCLI(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	detector, err := session.NewDetectorFromConfig(cfg, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	sources, err := common.Sources(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(sources) != 1 {
		return cli.Exit("annotate takes exactly one --url or --file", 1)
	}
	src := sources[0]

	f, err := common.NewFetcher(c, logger)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	store := &storage.Storage{}

	raw, err := common.LoadHTML(c.Context, src, f, store)
	if err != nil {
		logger.Error("Failed to load document", "source", src.String(), "error", err)
		return cli.Exit("", 1)
	}

	passes := c.Int("passes")
	if passes < 1 {
		passes = 1
	}
	s, err := detector.Detect(src.URL, raw)
	if err != nil {
		logger.Error("Failed to parse document", "source", src.String(), "error", err)
		return cli.Exit("", 1)
	}
	var report *annotator.Report
	for i := 0; i < passes; i++ {
		report = detector.Annotate(s)
	}

	html, err := s.Document.HTML()
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	out := c.String("out")
	if err := store.SaveAnnotated(out, html); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	logger.Info("Annotated document written",
		"source", src.String(),
		"out", out,
		"quotes", len(s.Quotes()),
		"placed", len(report.Placed),
		"existing", report.Existing,
		"unresolved", report.Unresolved,
		"unplaced", report.Unplaced)
	return nil
}
