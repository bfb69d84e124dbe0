// Package orchestrator owns the per-session result cache and loading state
// and dispatches quote analysis requests to the backend.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/backend"
	"github.com/dtnitsch/quote-origin/pkg/projector"
)

// ErrReset is returned for sweep items reached after the coordinator was
// reset: their quote ids belong to a detection pass that has ended.
var ErrReset = errors.New("coordinator reset since the sweep started")

// Backend is the analysis service contract.
type Backend interface {
	FindOrigin(ctx context.Context, req models.OriginRequest) (*models.OriginResponse, error)
}

// Recorder receives every completed backend call. Cache hits are not recorded.
type Recorder interface {
	RecordResult(ctx context.Context, req models.OriginRequest, results []models.AnalysisResult, err error)
}

// Options configures a Coordinator.
type Options struct {
	Logger *slog.Logger
	// SweepDelay pauses between backend calls of a sweep. Cache hits do not wait.
	SweepDelay time.Duration
	Recorder   Recorder
}

// Coordinator is the single writer of Cache, LoadingState and LatestResults
// for one session. Its lock is never held across a backend call, so a direct
// submit may run while a sweep is waiting on the backend; both write the
// latest results and whichever finishes last wins.
type Coordinator struct {
	backend    Backend
	logger     *slog.Logger
	recorder   Recorder
	sweepDelay time.Duration

	mu          sync.Mutex
	cache       map[string][]models.AnalysisResult
	latest      []models.AnalysisResult
	loading     bool
	generation  int // bumped by Reset
	subscribers map[int]chan models.Snapshot
	nextSub     int
}

func New(b Backend, opts Options) *Coordinator {
	c := &Coordinator{
		backend:     b,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
		sweepDelay:  opts.SweepDelay,
		cache:       make(map[string][]models.AnalysisResult),
		latest:      []models.AnalysisResult{},
		subscribers: make(map[int]chan models.Snapshot),
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// SubmitOne returns the cached results for quoteID, or calls the backend,
// caches the projected results and makes them the latest results. Failures
// are not cached, so a later call retries.
func (c *Coordinator) SubmitOne(ctx context.Context, quoteID string, payload models.OriginRequest) ([]models.AnalysisResult, error) {
	return c.submit(ctx, -1, quoteID, payload)
}

// submit is SubmitOne pinned to generation gen. A negative gen means the
// current one; otherwise the call fails with ErrReset once Reset has run.
func (c *Coordinator) submit(ctx context.Context, gen int, quoteID string, payload models.OriginRequest) ([]models.AnalysisResult, error) {
	c.mu.Lock()
	if gen < 0 {
		gen = c.generation
	} else if gen != c.generation {
		c.mu.Unlock()
		return nil, ErrReset
	}
	if cached, ok := c.cache[quoteID]; ok {
		c.mu.Unlock()
		c.logger.Debug("Cache hit", "quote_id", quoteID)
		return cached, nil
	}
	c.loading = true
	c.publishLocked()
	c.mu.Unlock()

	if payload.QuoteID == "" {
		payload.QuoteID = quoteID
	}

	start := time.Now()
	c.logger.Info("Submitting quote", "quote_id", quoteID)
	resp, err := c.backend.FindOrigin(ctx, payload)
	if err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.loading = false
			c.publishLocked()
		}
		c.mu.Unlock()

		c.logger.Error("Quote analysis failed", "quote_id", quoteID, "error_type", backend.ErrorType(err), "error", err, "duration", time.Since(start))
		c.record(ctx, payload, nil, err)
		return nil, fmt.Errorf("failed to analyze %s: %w", quoteID, err)
	}

	results := projector.Project(quoteID, payload.QuoteContent, resp)

	c.mu.Lock()
	stale := c.generation != gen
	if !stale {
		c.cache[quoteID] = results
		c.latest = results
		c.loading = false
		c.publishLocked()
	}
	c.mu.Unlock()

	if stale {
		// Ids restart every detection pass; this quote-N is not the current one.
		c.logger.Warn("Discarding result from a previous detection pass", "quote_id", quoteID)
		c.record(ctx, payload, results, nil)
		return results, nil
	}

	c.logger.Info("Quote analyzed", "quote_id", quoteID, "candidates", len(results), "duration", time.Since(start))
	c.record(ctx, payload, results, nil)
	return results, nil
}

func (c *Coordinator) currentGeneration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Cached returns the cached results for quoteID without side effects.
func (c *Coordinator) Cached(quoteID string) ([]models.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.cache[quoteID]
	return r, ok
}

// Snapshot returns the latest results and the loading flag.
func (c *Coordinator) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SetLoading sets the loading flag directly.
func (c *Coordinator) SetLoading(loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = loading
	c.publishLocked()
}

// StartLoading marks a request as about to be submitted.
func (c *Coordinator) StartLoading() {
	c.SetLoading(true)
}

// DisplayResults replaces the latest results and clears the loading flag.
func (c *Coordinator) DisplayResults(results []models.AnalysisResult) {
	if results == nil {
		results = []models.AnalysisResult{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = results
	c.loading = false
	c.publishLocked()
}

// Reset ends the session: cache and latest results are discarded. Quote ids
// restart at every detection pass, so a new pass must start from a reset
// coordinator. Requests still in flight from before the reset complete but
// no longer touch the cache or the latest results.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cache = make(map[string][]models.AnalysisResult)
	c.latest = []models.AnalysisResult{}
	c.loading = false
	c.publishLocked()
}

// Subscribe returns a channel receiving a snapshot after every state change,
// and a function that stops the subscription. A subscriber that falls behind
// only sees the most recent snapshot.
func (c *Coordinator) Subscribe() (<-chan models.Snapshot, func()) {
	ch := make(chan models.Snapshot, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Coordinator) snapshotLocked() models.Snapshot {
	results := make([]models.AnalysisResult, len(c.latest))
	copy(results, c.latest)
	return models.Snapshot{Results: results, IsLoading: c.loading}
}

func (c *Coordinator) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			// Replace the stale snapshot nobody has read yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Coordinator) record(ctx context.Context, req models.OriginRequest, results []models.AnalysisResult, err error) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordResult(ctx, req, results, err)
}
