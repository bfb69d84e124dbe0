package parser

import (
	"strings"
	"testing"
)

func TestParse_Regions(t *testing.T) {
	tests := []struct {
		name         string
		html         string
		wantHeadline string
		wantBody     string
	}{
		{
			name:         "headline inside article counted once",
			html:         `<article><h1>Head “line”</h1><p>Body text.</p></article>`,
			wantHeadline: "Head “line”",
			wantBody:     "Body text.",
		},
		{
			name:         "falls back to body",
			html:         `<html><body><div>Just <b>some</b> text</div></body></html>`,
			wantHeadline: "",
			wantBody:     "Just some text",
		},
		{
			name:         "scripts and styles skipped",
			html:         `<main><script>var x = "not text";</script><style>p{}</style><p>Visible</p></main>`,
			wantHeadline: "",
			wantBody:     "Visible",
		},
		{
			name:         "existing labels skipped",
			html:         `<main><p><span class="quote-marker" data-quote-id="quote-0">"quoted text here"</span><sup class="quote-index">1</sup> after</p></main>`,
			wantHeadline: "",
			wantBody:     `"quoted text here" after`,
		},
	}

	p := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := p.Parse("https://example.com/a", tt.html)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if doc.Article.Headline != tt.wantHeadline {
				t.Errorf("Headline = %q, want %q", doc.Article.Headline, tt.wantHeadline)
			}
			if doc.Article.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", doc.Article.Body, tt.wantBody)
			}
		})
	}
}

func TestParse_TitleFallsBackToTitleElement(t *testing.T) {
	doc, err := New(Options{}).Parse("", `<html><head><title> Page  title </title></head><body><p>x</p></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Article.Title == "" {
		t.Error("Title is empty")
	}
}

func TestParse_PlainTextJoinsHeadlineFirst(t *testing.T) {
	doc, err := New(Options{}).Parse("", `<body><p>Body first in source</p><h1>Headline</h1></body>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := doc.PlainText(); got != "Headline Body first in source" {
		t.Errorf("PlainText() = %q", got)
	}
}

func TestDocument_HTMLRoundTrip(t *testing.T) {
	doc, err := New(Options{}).Parse("", `<html><body><p>Hello</p></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	out, err := doc.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if !strings.Contains(out, "<p>Hello</p>") {
		t.Errorf("HTML() = %q", out)
	}
}

func TestReadMetadata(t *testing.T) {
	raw := `<html><head><title>Budget vote delayed</title>
<meta property="og:site_name" content="City Ledger"></head>
<body><article><p>` + strings.Repeat("The council met for hours and argued about the budget. ", 20) + `</p></article></body></html>`

	tests := []struct {
		name   string
		rawURL string
	}{
		{"absolute URL", "https://ledger.example/budget"},
		{"no URL", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, ok := readMetadata(tt.rawURL, raw)
			if !ok {
				t.Fatal("readMetadata() reported failure")
			}
			if meta.SiteName != "City Ledger" {
				t.Errorf("SiteName = %q, want %q", meta.SiteName, "City Ledger")
			}
		})
	}
}
