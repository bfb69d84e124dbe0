package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/annotator"
	"github.com/dtnitsch/quote-origin/pkg/orchestrator"
	"github.com/dtnitsch/quote-origin/pkg/session"
)

var (
	ErrStopped    = errors.New("engine stopped")
	ErrNoSession  = errors.New("no detection pass yet; send detect_quotes first")
	ErrSuperseded = errors.New("detection superseded by a newer detect_quotes")
)

// Fetcher loads article HTML for detect_quotes messages that carry only a URL.
type Fetcher interface {
	GetHTML(ctx context.Context, url string) ([]byte, bool, error)
}

// SessionRecorder is told about every completed detection pass.
type SessionRecorder interface {
	RecordSession(ctx context.Context, s *session.Session) error
}

type Options struct {
	Detector    *session.Detector
	Coordinator *orchestrator.Coordinator
	// Fetcher may be nil when callers always send HTML.
	Fetcher  Fetcher
	Sessions SessionRecorder
	Logger   *slog.Logger
}

// Detection is the reply data of detect_quotes.
type Detection struct {
	SessionID  string            `json:"session_id"`
	Article    models.Article    `json:"article"`
	Quotes     []models.Quote    `json:"quotes"`
	Keywords   []string          `json:"keywords"`
	Annotation *annotator.Report `json:"annotation"`
	HTML       string            `json:"html,omitempty"`
}

type request struct {
	msg   Message
	reply chan Reply
}

// Engine serializes messages on one goroutine. Backend calls and page loads
// run on their own goroutines, so a find_origin sent during a sweep is
// answered without waiting for the sweep.
type Engine struct {
	detector *session.Detector
	coord    *orchestrator.Coordinator
	fetcher  Fetcher
	sessions SessionRecorder
	logger   *slog.Logger

	requests chan request
	internal chan func()
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Owned by the Run goroutine.
	runCtx    context.Context
	current   *session.Session
	detectSeq int
	// sessionCtx is cancelled when current is replaced; sweeps of the
	// current pass run on it.
	sessionCtx context.Context
	endSession context.CancelFunc
}

func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		detector: opts.Detector,
		coord:    opts.Coordinator,
		fetcher:  opts.Fetcher,
		sessions: opts.Sessions,
		logger:   opts.Logger,
		requests: make(chan request),
		internal: make(chan func()),
		done:     make(chan struct{}),
	}
}

// Coordinator exposes the session state for observers.
func (e *Engine) Coordinator() *orchestrator.Coordinator {
	return e.coord
}

// Run handles messages until ctx is done, then waits for outstanding work.
// Sweeps stop at the next quote; single submits run to completion.
func (e *Engine) Run(ctx context.Context) error {
	e.runCtx = ctx
	e.logger.Info("Engine started")

	defer func() {
		if e.endSession != nil {
			e.endSession()
		}
		e.stopOnce.Do(func() { close(e.done) })
		e.wg.Wait()
		e.logger.Info("Engine stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-e.requests:
			e.handle(req)
		case fn := <-e.internal:
			fn()
		}
	}
}

// Send delivers msg to the engine and waits for its reply.
func (e *Engine) Send(ctx context.Context, msg Message) (Reply, error) {
	reply := make(chan Reply, 1)
	select {
	case e.requests <- request{msg: msg, reply: reply}:
	case <-e.done:
		return Reply{}, ErrStopped
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func (e *Engine) handle(req request) {
	e.logger.Debug("Handling message", "action", req.msg.Action())

	switch m := req.msg.(type) {
	case DetectQuotes:
		e.detect(m, req.reply)
	case FindOrigin:
		e.findOrigin(m, req.reply)
	case DisplayResults:
		e.coord.DisplayResults(m.Results)
		req.reply <- ok(nil)
	case GetLatestResults:
		req.reply <- ok(e.coord.Snapshot())
	case SetLoadingState:
		e.coord.SetLoading(m.IsLoading)
		req.reply <- ok(nil)
	case StartLoading:
		e.coord.StartLoading()
		req.reply <- ok(nil)
	case AnalyzeAll:
		e.analyzeAll(req.reply)
	default:
		req.reply <- fail(fmt.Errorf("unsupported message %T", m))
	}
}

// detect loads and annotates off the loop, then installs the new pass on
// the loop. Only the most recent detect_quotes is installed.
func (e *Engine) detect(m DetectQuotes, reply chan Reply) {
	e.detectSeq++
	seq := e.detectSeq
	ctx := e.runCtx

	e.spawn(func() {
		s, err := e.load(ctx, m)
		if err != nil {
			e.logger.Error("Detection failed", "url", m.URL, "error", err)
			reply <- fail(err)
			return
		}
		data, err := detectionData(s)
		if err != nil {
			reply <- fail(err)
			return
		}

		e.post(reply, func() {
			if seq != e.detectSeq {
				reply <- fail(ErrSuperseded)
				return
			}
			e.install(s)
			reply <- ok(data)
		})

		if e.sessions != nil {
			if err := e.sessions.RecordSession(context.WithoutCancel(ctx), s); err != nil {
				e.logger.Warn("Failed to record session", "session_id", s.ID, "error", err)
			}
		}
	})
}

func (e *Engine) load(ctx context.Context, m DetectQuotes) (*session.Session, error) {
	raw := []byte(m.HTML)
	if len(raw) == 0 {
		if m.URL == "" {
			return nil, errors.New("detect_quotes needs html or url")
		}
		if e.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured to load %s", m.URL)
		}
		data, _, err := e.fetcher.GetHTML(ctx, m.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", m.URL, err)
		}
		raw = data
	}
	return e.detector.DetectAndAnnotate(m.URL, raw)
}

func detectionData(s *session.Session) (Detection, error) {
	out, err := s.Document.HTML()
	if err != nil {
		return Detection{}, err
	}
	return Detection{
		SessionID:  s.ID,
		Article:    s.Document.Article,
		Quotes:     s.Quotes(),
		Keywords:   s.Keywords,
		Annotation: s.Annotation,
		HTML:       out,
	}, nil
}

// findOrigin fills missing request fields from the current pass and submits
// off the loop.
func (e *Engine) findOrigin(m FindOrigin, reply chan Reply) {
	req := m.OriginRequest
	if e.current != nil {
		if q, found := e.current.Quote(req.QuoteID); found {
			req = merge(req, e.current.Payloads()(q))
		}
	}
	if req.QuoteContent == "" {
		reply <- fail(fmt.Errorf("no quote content for %s", req.QuoteID))
		return
	}

	ctx := context.WithoutCancel(e.runCtx)
	e.spawn(func() {
		results, err := e.coord.SubmitOne(ctx, req.QuoteID, req)
		if err != nil {
			reply <- fail(err)
			return
		}
		reply <- ok(results)
	})
}

// merge keeps every field the caller set and takes the rest from base.
func merge(req, base models.OriginRequest) models.OriginRequest {
	if req.QuoteContent == "" {
		req.QuoteContent = base.QuoteContent
	}
	if req.ArticleText == "" {
		req.ArticleText = base.ArticleText
	}
	if req.ArticleURL == "" {
		req.ArticleURL = base.ArticleURL
	}
	if req.ArticleTitle == "" {
		req.ArticleTitle = base.ArticleTitle
	}
	if req.Keywords == nil {
		req.Keywords = base.Keywords
	}
	return req
}

func (e *Engine) analyzeAll(reply chan Reply) {
	if e.current == nil {
		reply <- fail(ErrNoSession)
		return
	}
	s := e.current
	ctx := e.sessionCtx
	e.spawn(func() {
		reply <- ok(e.coord.SubmitAll(ctx, s.Quotes(), s.Payloads()))
	})
}

// install makes s the current pass. A sweep of the previous pass is
// stopped before the coordinator is reset.
func (e *Engine) install(s *session.Session) {
	if e.endSession != nil {
		e.endSession()
	}
	e.sessionCtx, e.endSession = context.WithCancel(e.runCtx)
	e.current = s
	e.coord.Reset()
}

// spawn must only be called from the Run goroutine.
func (e *Engine) spawn(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// post runs fn on the loop, or replies ErrStopped when the loop is gone.
func (e *Engine) post(reply chan Reply, fn func()) {
	select {
	case e.internal <- fn:
	case <-e.done:
		reply <- fail(ErrStopped)
	}
}
