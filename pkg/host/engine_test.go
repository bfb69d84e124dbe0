package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/backend"
	"github.com/dtnitsch/quote-origin/pkg/orchestrator"
	"github.com/dtnitsch/quote-origin/pkg/session"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const pageHTML = `<html><body><article>
<h1>Mayor defends plan</h1>
<p>The mayor said “the new transit plan will pay for itself” at the hearing.</p>
<p>Opponents replied "this plan has never been costed properly" later.</p>
</article></body></html>`

// stubBackend answers every quote, optionally blocking until released.
type stubBackend struct {
	mu      sync.Mutex
	reqs    []models.OriginRequest
	block   map[string]chan struct{}
	entered chan string
	fail    map[string]error
}

func (b *stubBackend) FindOrigin(ctx context.Context, req models.OriginRequest) (*models.OriginResponse, error) {
	b.mu.Lock()
	b.reqs = append(b.reqs, req)
	wait := b.block[req.QuoteID]
	err := b.fail[req.QuoteID]
	b.mu.Unlock()

	if b.entered != nil {
		b.entered <- req.QuoteID
	}
	if wait != nil {
		<-wait
	}
	if err != nil {
		return nil, err
	}
	return &models.OriginResponse{
		QuoteID: req.QuoteID,
		Candidates: []models.Candidate{{
			OriginalSpan:    "origin of " + req.QuoteID,
			SimilarityScore: 0.8234,
			SourceURL:       "https://source.example",
		}},
	}, nil
}

func (b *stubBackend) requests() []models.OriginRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.OriginRequest(nil), b.reqs...)
}

type recordedSessions struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordedSessions) RecordSession(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, s.ID)
	return nil
}

type stubFetcher map[string]string

func (f stubFetcher) GetHTML(_ context.Context, url string) ([]byte, bool, error) {
	page, ok := f[url]
	if !ok {
		return nil, false, errors.New("not found")
	}
	return []byte(page), false, nil
}

func startEngine(t *testing.T, b orchestrator.Backend, opts Options) *Engine {
	t.Helper()
	opts.Detector = session.NewDetector(session.Options{})
	opts.Coordinator = orchestrator.New(b, orchestrator.Options{})
	e := NewEngine(opts)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	return e
}

func send(t *testing.T, e *Engine, msg Message) Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := e.Send(ctx, msg)
	if err != nil {
		t.Fatalf("Send(%s) error = %v", msg.Action(), err)
	}
	return r
}

func TestEngine_DetectThenFindOrigin(t *testing.T) {
	b := &stubBackend{}
	rec := &recordedSessions{}
	e := startEngine(t, b, Options{Sessions: rec})

	r := send(t, e, DetectQuotes{URL: "https://city.example/plan", HTML: pageHTML})
	if !r.Success {
		t.Fatalf("detect_quotes failed: %s", r.Error)
	}
	det := r.Data.(Detection)
	if len(det.Quotes) != 2 || det.Quotes[0].ID != "quote-0" {
		t.Fatalf("quotes = %+v", det.Quotes)
	}
	if det.Annotation == nil || len(det.Annotation.Placed) != 2 {
		t.Errorf("annotation = %+v", det.Annotation)
	}

	// Only the id is sent; content and article context come from the pass.
	r = send(t, e, FindOrigin{models.OriginRequest{QuoteID: "quote-1"}})
	if !r.Success {
		t.Fatalf("find_origin failed: %s", r.Error)
	}
	results := r.Data.([]models.AnalysisResult)
	if len(results) != 1 || results[0].SimilarityScore != 82 {
		t.Errorf("results = %+v", results)
	}

	reqs := b.requests()
	if len(reqs) != 1 {
		t.Fatalf("backend requests = %d, want 1", len(reqs))
	}
	if reqs[0].QuoteContent != "this plan has never been costed properly" || reqs[0].ArticleURL != "https://city.example/plan" {
		t.Errorf("request = %+v", reqs[0])
	}

	snap := send(t, e, GetLatestResults{}).Data.(models.Snapshot)
	if snap.IsLoading || len(snap.Results) != 1 || snap.Results[0].QuoteID != "quote-1" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestEngine_FetchesWhenOnlyURLGiven(t *testing.T) {
	rec := &recordedSessions{}
	e := startEngine(t, &stubBackend{}, Options{
		Fetcher:  stubFetcher{"https://city.example/plan": pageHTML},
		Sessions: rec,
	})

	r := send(t, e, DetectQuotes{URL: "https://city.example/plan"})
	if !r.Success {
		t.Fatalf("detect_quotes failed: %s", r.Error)
	}
	if r := send(t, e, DetectQuotes{URL: "https://city.example/missing"}); r.Success {
		t.Error("detect_quotes succeeded for an unfetchable page")
	}
}

func TestEngine_FindOriginFailure(t *testing.T) {
	b := &stubBackend{fail: map[string]error{"quote-0": &backend.HTTPError{StatusCode: 500, Body: "boom"}}}
	e := startEngine(t, b, Options{})

	send(t, e, DetectQuotes{HTML: pageHTML})
	r := send(t, e, FindOrigin{models.OriginRequest{QuoteID: "quote-0"}})
	if r.Success {
		t.Fatal("find_origin succeeded on a backend error")
	}
	if r.Error == "" {
		t.Error("failure reply has no error message")
	}
	if snap := send(t, e, GetLatestResults{}).Data.(models.Snapshot); snap.IsLoading {
		t.Error("loading flag stuck after failure")
	}
}

func TestEngine_UnknownQuoteWithoutContent(t *testing.T) {
	e := startEngine(t, &stubBackend{}, Options{})
	if r := send(t, e, FindOrigin{models.OriginRequest{QuoteID: "quote-7"}}); r.Success {
		t.Error("find_origin succeeded without any quote content")
	}
}

func TestEngine_AnalyzeAllNeedsSession(t *testing.T) {
	e := startEngine(t, &stubBackend{}, Options{})
	r := send(t, e, AnalyzeAll{})
	if r.Success || r.Error != ErrNoSession.Error() {
		t.Errorf("reply = %+v, want ErrNoSession", r)
	}
}

func TestEngine_ClickDuringSweepIsAnswered(t *testing.T) {
	release := make(chan struct{})
	b := &stubBackend{
		block:   map[string]chan struct{}{"quote-0": release},
		entered: make(chan string, 8),
	}
	e := startEngine(t, b, Options{})
	send(t, e, DetectQuotes{HTML: pageHTML})

	sweepDone := make(chan Reply, 1)
	go func() {
		r, _ := e.Send(context.Background(), AnalyzeAll{})
		sweepDone <- r
	}()
	if id := <-b.entered; id != "quote-0" {
		t.Fatalf("sweep started with %s", id)
	}

	// The sweep is blocked on quote-0; the loop still answers.
	if snap := send(t, e, GetLatestResults{}).Data.(models.Snapshot); !snap.IsLoading {
		t.Error("isLoading = false during sweep")
	}
	r := send(t, e, FindOrigin{models.OriginRequest{QuoteID: "quote-1"}})
	if !r.Success {
		t.Fatalf("direct find_origin failed: %s", r.Error)
	}
	<-b.entered

	close(release)
	report := (<-sweepDone).Data.(orchestrator.SweepReport)
	if report.Analyzed != 1 || report.Cached != 1 {
		t.Errorf("sweep report = %+v, want quote-0 analyzed and quote-1 cached", report)
	}

	// quote-0 finished last, so it is the visible result.
	snap := send(t, e, GetLatestResults{}).Data.(models.Snapshot)
	if len(snap.Results) != 1 || snap.Results[0].QuoteID != "quote-0" {
		t.Errorf("latest = %+v, want quote-0", snap.Results)
	}
}

func TestEngine_LoadingMessages(t *testing.T) {
	e := startEngine(t, &stubBackend{}, Options{})

	send(t, e, StartLoading{})
	if !send(t, e, GetLatestResults{}).Data.(models.Snapshot).IsLoading {
		t.Error("start_loading did not set loading")
	}
	send(t, e, SetLoadingState{IsLoading: false})
	if send(t, e, GetLatestResults{}).Data.(models.Snapshot).IsLoading {
		t.Error("set_loading_state false did not clear loading")
	}

	send(t, e, StartLoading{})
	send(t, e, DisplayResults{Results: []models.AnalysisResult{{QuoteID: "quote-3"}}})
	snap := send(t, e, GetLatestResults{}).Data.(models.Snapshot)
	if snap.IsLoading || len(snap.Results) != 1 {
		t.Errorf("after display_results snapshot = %+v", snap)
	}
}

func TestEngine_NewDetectionResetsCache(t *testing.T) {
	b := &stubBackend{}
	e := startEngine(t, b, Options{})

	send(t, e, DetectQuotes{HTML: pageHTML})
	send(t, e, FindOrigin{models.OriginRequest{QuoteID: "quote-0"}})
	send(t, e, DetectQuotes{HTML: pageHTML})
	send(t, e, FindOrigin{models.OriginRequest{QuoteID: "quote-0"}})

	if n := len(b.requests()); n != 2 {
		t.Errorf("backend requests = %d, want 2 (cache cleared by new pass)", n)
	}
}

func TestEngine_SendAfterStop(t *testing.T) {
	e := NewEngine(Options{
		Detector:    session.NewDetector(session.Options{}),
		Coordinator: orchestrator.New(&stubBackend{}, orchestrator.Options{}),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := e.Send(context.Background(), GetLatestResults{}); !errors.Is(err, ErrStopped) {
		t.Errorf("Send() after stop error = %v, want ErrStopped", err)
	}
}

const otherPageHTML = `<html><body><article>
<h1>Library hours cut</h1>
<p>The director said “the branch will close on Sundays from May” in a statement.</p>
<p>Patrons answered "we were never asked about any of this" at the meeting.</p>
</article></body></html>`

func TestEngine_NewDetectionStopsRunningSweep(t *testing.T) {
	release := make(chan struct{})
	b := &stubBackend{
		block:   map[string]chan struct{}{"quote-0": release},
		entered: make(chan string, 8),
	}
	e := startEngine(t, b, Options{})
	send(t, e, DetectQuotes{URL: "https://city.example/plan", HTML: pageHTML})

	sweepDone := make(chan Reply, 1)
	go func() {
		r, _ := e.Send(context.Background(), AnalyzeAll{})
		sweepDone <- r
	}()
	if id := <-b.entered; id != "quote-0" {
		t.Fatalf("sweep started with %s", id)
	}

	// A new page arrives while the old page's sweep is waiting on quote-0.
	if r := send(t, e, DetectQuotes{URL: "https://city.example/library", HTML: otherPageHTML}); !r.Success {
		t.Fatalf("second detect_quotes failed: %s", r.Error)
	}
	close(release)

	report := (<-sweepDone).Data.(orchestrator.SweepReport)
	if report.Skipped != 1 || report.Items[1].Status != orchestrator.StatusSkipped {
		t.Errorf("sweep report = %+v, want quote-1 of the old page skipped", report)
	}
	if n := len(b.requests()); n != 1 {
		t.Fatalf("backend requests after sweep = %d, want 1", n)
	}

	r := send(t, e, FindOrigin{models.OriginRequest{QuoteID: "quote-1"}})
	if !r.Success {
		t.Fatalf("find_origin failed: %s", r.Error)
	}
	<-b.entered
	results := r.Data.([]models.AnalysisResult)
	want := "we were never asked about any of this"
	if len(results) != 1 || results[0].QuoteText != want {
		t.Errorf("results = %+v, want the new page's quote-1", results)
	}
	reqs := b.requests()
	if len(reqs) != 2 || reqs[1].ArticleURL != "https://city.example/library" {
		t.Errorf("requests = %+v, want a backend call for the new page", reqs)
	}
}
