package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/quote-origin/pkg/caching"
)

func TestGetHTML_UsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte("<html><body><p>hi</p></body></html>"))
	}))
	defer srv.Close()

	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	f := NewFetcher(Options{Cache: cache})

	_, cached, err := f.GetHTML(context.Background(), srv.URL)
	if err != nil || cached {
		t.Fatalf("first GetHTML() cached = %v, error = %v", cached, err)
	}
	data, cached, err := f.GetHTML(context.Background(), srv.URL)
	if err != nil || !cached {
		t.Fatalf("second GetHTML() cached = %v, error = %v", cached, err)
	}
	if string(data) != "<html><body><p>hi</p></body></html>" {
		t.Errorf("body = %q", data)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestGetHTML_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, _, err := NewFetcher(Options{}).GetHTML(context.Background(), srv.URL)
	if !IsNotFound(err) {
		t.Errorf("GetHTML() error = %v, want 404 StatusError", err)
	}
}

func TestGetHTML_NotFoundDropsExpiredCopy(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	cache, err := caching.NewCache(dir, time.Millisecond)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	if err := cache.Set(srv.URL, []byte("<html>old</html>")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	_, _, err = NewFetcher(Options{Cache: cache}).GetHTML(context.Background(), srv.URL)
	if !IsNotFound(err) {
		t.Fatalf("GetHTML() error = %v, want 404 StatusError", err)
	}

	// A cache that never expires would still see a surviving copy.
	forever, err := caching.NewCache(dir, 0)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	if _, ok := forever.Get(srv.URL); ok {
		t.Error("expired copy of a missing page is still cached")
	}
}
