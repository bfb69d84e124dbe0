package trace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dtnitsch/quote-origin/internal/common"
	"github.com/dtnitsch/quote-origin/internal/config"
	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/backend"
	"github.com/dtnitsch/quote-origin/pkg/orchestrator"
	"github.com/dtnitsch/quote-origin/pkg/projector"
	"github.com/dtnitsch/quote-origin/pkg/session"
	"github.com/dtnitsch/quote-origin/pkg/storage"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// QuoteOutput is the traced origin of one quote.
type QuoteOutput struct {
	Quote     models.Quote            `json:"quote" yaml:"quote"`
	Status    string                  `json:"status" yaml:"status"`
	Verdict   *models.Verdict         `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Results   []models.AnalysisResult `json:"results" yaml:"results"`
	Error     string                  `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType string                  `json:"error_type,omitempty" yaml:"error_type,omitempty"`
}

// Output is what trace prints per document.
type Output struct {
	SessionID string                    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Source    string                    `json:"source" yaml:"source"`
	Title     string                    `json:"title,omitempty" yaml:"title,omitempty"`
	Quotes    []QuoteOutput             `json:"quotes" yaml:"quotes"`
	Report    *orchestrator.SweepReport `json:"report,omitempty" yaml:"report,omitempty"`
	Error     string                    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType string                    `json:"error_type,omitempty" yaml:"error_type,omitempty"`
}

type loaded struct {
	src     common.Source
	session *session.Session
	err     error
	errType string
}

// TraceAction detects the quotes of every source and traces each quote's
// origin. Documents are loaded concurrently; each document's quotes are
// then swept one request at a time, one document after another.
func TraceAction(c *cli.Context) error {
	start := time.Now()
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
	docs := make([]loaded, len(sources))

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(max(1, c.Int("workers")))
	var mu sync.Mutex
	for i, src := range sources {
		g.Go(func() error {
			doc := loaded{src: src}
			raw, err := common.LoadHTML(ctx, src, f, store)
			if err != nil {
				doc.err, doc.errType = err, common.LoadErrorType(err)
			} else if doc.session, err = detector.DetectAndAnnotate(src.URL, raw); err != nil {
				doc.err, doc.errType = err, "parse_error"
			}
			if doc.err != nil {
				logger.Error("Failed to prepare document", "source", src.String(), "error_type", doc.errType, "error", doc.err)
			}
			mu.Lock()
			docs[i] = doc
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	only := c.String("quote")
	outputs := make([]Output, 0, len(docs))
	failed := 0
	for _, doc := range docs {
		out := Output{Source: doc.src.String(), Quotes: []QuoteOutput{}}
		if doc.err != nil {
			out.Error, out.ErrorType = doc.err.Error(), doc.errType
			outputs = append(outputs, out)
			failed++
			continue
		}
		s := doc.session
		out.SessionID = s.ID
		out.Title = s.Document.Article.Title

		if database != nil {
			if err := database.RecordSession(c.Context, s); err != nil {
				logger.Warn("Failed to record session", "session_id", s.ID, "error", err)
			}
		}

		// One coordinator per detection pass.
		coord := common.NewCoordinator(cfg, database, logger)
		if only != "" {
			out.Quotes = traceOne(c.Context, coord, s, only)
		} else {
			report := coord.SubmitAll(c.Context, s.Quotes(), s.Payloads())
			out.Report = &report
			out.Quotes = collect(coord, s, report)
		}
		outputs = append(outputs, out)
	}

	logger.Info("Trace complete", "documents", len(docs), "failed", failed, "elapsed", common.Elapsed(time.Since(start)))

	var payload any = outputs
	if len(outputs) == 1 {
		payload = outputs[0]
	}
	if err := common.WriteOutput(c.App.Writer, c.String("format"), payload); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if failed == len(docs) {
		return cli.Exit("", 1)
	}
	return nil
}

// traceOne submits a single quote, like a click on its marker.
func traceOne(ctx context.Context, coord *orchestrator.Coordinator, s *session.Session, id string) []QuoteOutput {
	q, ok := s.Quote(id)
	if !ok {
		return []QuoteOutput{{Quote: models.Quote{ID: id}, Status: orchestrator.StatusSkipped, Results: []models.AnalysisResult{}, Error: "no such quote in this document"}}
	}
	results, err := coord.SubmitOne(ctx, q.ID, s.Payloads()(q))
	out := QuoteOutput{Quote: q, Status: orchestrator.StatusAnalyzed, Results: results}
	if err != nil {
		out.Status = orchestrator.StatusFailed
		out.Error, out.ErrorType = err.Error(), backend.ErrorType(err)
		out.Results = []models.AnalysisResult{}
	} else {
		v := projector.Summarize(q.ID, results)
		out.Verdict = &v
	}
	return []QuoteOutput{out}
}

// collect pairs each sweep item with its quote and cached results, by id.
func collect(coord *orchestrator.Coordinator, s *session.Session, report orchestrator.SweepReport) []QuoteOutput {
	outs := make([]QuoteOutput, 0, len(report.Items))
	for _, item := range report.Items {
		q, ok := s.Quote(item.QuoteID)
		if !ok {
			q = models.Quote{ID: item.QuoteID}
		}
		out := QuoteOutput{Quote: q, Status: item.Status, Results: []models.AnalysisResult{}, Error: item.Error, ErrorType: item.ErrorType}
		if results, ok := coord.Cached(item.QuoteID); ok {
			out.Results = results
			v := projector.Summarize(item.QuoteID, results)
			out.Verdict = &v
		}
		outs = append(outs, out)
	}
	return outs
}
