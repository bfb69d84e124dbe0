package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/backend"
)

// PayloadBuilder builds the backend request for one quote.
type PayloadBuilder func(q models.Quote) models.OriginRequest

// Sweep item statuses.
const (
	StatusAnalyzed = "analyzed"
	StatusCached   = "cached"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// SweepItem is the outcome for one quote of a sweep.
type SweepItem struct {
	QuoteID    string `json:"quote_id" yaml:"quote_id"`
	Status     string `json:"status" yaml:"status"`
	Candidates int    `json:"candidates" yaml:"candidates"`
	ErrorType  string `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SweepReport summarizes a sweep.
type SweepReport struct {
	Total    int           `json:"total" yaml:"total"`
	Analyzed int           `json:"analyzed" yaml:"analyzed"`
	Cached   int           `json:"cached" yaml:"cached"`
	Failed   int           `json:"failed" yaml:"failed"`
	Skipped  int           `json:"skipped" yaml:"skipped"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Items    []SweepItem   `json:"items" yaml:"items"`
}

// SubmitAll submits every quote in detection order, one at a time: each
// request completes before the next starts. A failed quote is logged and the
// sweep moves on. Cancelling ctx or resetting the coordinator stops the sweep
// before the next quote; quotes never started are reported as skipped.
func (c *Coordinator) SubmitAll(ctx context.Context, quotes []models.Quote, build PayloadBuilder) SweepReport {
	start := time.Now()
	gen := c.currentGeneration()
	report := SweepReport{Total: len(quotes), Items: make([]SweepItem, 0, len(quotes))}
	c.logger.Info("Starting sequential sweep", "quotes", len(quotes), "delay", c.sweepDelay)

	skipRest := func(rest []models.Quote, reason error) {
		for _, q := range rest {
			report.Items = append(report.Items, SweepItem{QuoteID: q.ID, Status: StatusSkipped})
			report.Skipped++
		}
		c.logger.Warn("Sweep stopped", "remaining", len(rest), "error", reason)
	}

	calledBackend := false
	for i, q := range quotes {
		_, wasCached := c.Cached(q.ID)
		if !wasCached && calledBackend && c.sweepDelay > 0 {
			sleep(ctx, c.sweepDelay)
		}

		if ctx.Err() != nil {
			skipRest(quotes[i:], ctx.Err())
			break
		}

		item := SweepItem{QuoteID: q.ID}
		results, err := c.submit(ctx, gen, q.ID, build(q))
		switch {
		case errors.Is(err, ErrReset):
			skipRest(quotes[i:], err)
		case err != nil:
			item.Status = StatusFailed
			item.ErrorType = backend.ErrorType(err)
			item.Error = err.Error()
			report.Failed++
			c.logger.Warn("Sweep item failed, continuing", "quote_id", q.ID, "error", err)
		case wasCached:
			item.Status = StatusCached
			item.Candidates = len(results)
			report.Cached++
		default:
			item.Status = StatusAnalyzed
			item.Candidates = len(results)
			report.Analyzed++
		}
		if errors.Is(err, ErrReset) {
			break
		}
		if !wasCached {
			calledBackend = true
		}
		report.Items = append(report.Items, item)
	}

	report.Duration = time.Since(start)
	c.logger.Info("Sweep finished",
		"analyzed", report.Analyzed,
		"cached", report.Cached,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", report.Duration)
	return report
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
