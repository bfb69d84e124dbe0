package annotator

import (
	"strings"
	"testing"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/extractor"
	"github.com/dtnitsch/quote-origin/pkg/parser"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

// concatText returns all text under n, skipping inserted index labels.
func concatText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if parser.IsLabel(n) {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func markerIDs(t *testing.T, doc *parser.Document) []string {
	t.Helper()
	var ids []string
	for _, n := range doc.Doc.Find(models.MarkerSelector).Nodes {
		id, _ := parser.Attr(n, models.MarkerIDAttr)
		ids = append(ids, id)
	}
	return ids
}

// detect parses html and runs the extractor over its flattened text.
func detect(t *testing.T, rawHTML string) (*parser.Document, []models.Quote) {
	t.Helper()
	doc, err := parser.New(parser.Options{}).Parse("https://example.com/news/1", rawHTML)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return doc, extractor.New(extractor.Options{}).Extract(doc.PlainText()).Quotes
}

const articleHTML = `<html><head><title>Example</title></head><body>
<h1>Minister: “we will not raise taxes this year”</h1>
<article>
  <p>The minister said "the budget is balanced for the first time" on Monday.</p>
  <p>Critics replied “that claim ignores the pension fund entirely” and left.</p>
  <p>She added <b>"short"</b> and 「괄호로 된 인용문은 색인되지 않습니다」.</p>
</article>
</body></html>`

func TestAnnotate_MarksQuotesInPlace(t *testing.T) {
	doc, quotes := detect(t, articleHTML)
	if len(quotes) != 3 {
		t.Fatalf("extractor found %d quotes, want 3: %+v", len(quotes), quotes)
	}

	report := New(Options{}).Annotate(doc, quotes)

	if len(report.Placed) != 3 {
		t.Fatalf("placed %d quotes, want 3: %+v", len(report.Placed), report)
	}
	if report.Unplaced != 0 {
		t.Errorf("Unplaced = %d, want 0", report.Unplaced)
	}
	// "short" and the bracket quote are found in the tree but never indexed.
	if report.Unresolved != 2 {
		t.Errorf("Unresolved = %d, want 2", report.Unresolved)
	}

	// Curly quotes are numbered before straight ones; the headline comes first in the tree.
	want := []string{"quote-0", "quote-2", "quote-1"}
	if diff := cmp.Diff(want, markerIDs(t, doc)); diff != "" {
		t.Errorf("marker ids mismatch (-want +got):\n%s", diff)
	}

	marker := doc.Doc.Find(`span.quote-marker[data-quote-id="quote-2"]`)
	if got := marker.Text(); got != `"the budget is balanced for the first time"` {
		t.Errorf("marker text = %q", got)
	}
	if label := marker.Next(); !label.Is(models.LabelSelector) || label.Text() != "3" {
		t.Errorf("label after quote-2 = %q, want sup with 3", label.Text())
	}
}

func TestAnnotate_PreservesText(t *testing.T) {
	docs := []string{
		articleHTML,
		`<html><body><article><p>No quotes at all here.</p></article></body></html>`,
		`<html><body><article><p>"first quoted sentence here" middle "second quoted sentence here"</p></article></body></html>`,
		`<html><body><article><p>&quot;escaped entity quotes work&quot; &amp; more</p></article></body></html>`,
		`<html><body><p>“나는 절대로 세금을 올리지 않겠다” 라고 말했다</p></body></html>`,
	}

	for i, rawHTML := range docs {
		doc, quotes := detect(t, rawHTML)
		before := concatText(doc.Doc.Get(0))

		New(Options{}).Annotate(doc, quotes)

		if after := concatText(doc.Doc.Get(0)); after != before {
			t.Errorf("doc %d: text changed by annotation\nbefore: %q\nafter:  %q", i, before, after)
		}
	}
}

func TestAnnotate_Idempotent(t *testing.T) {
	doc, quotes := detect(t, articleHTML)
	a := New(Options{})

	a.Annotate(doc, quotes)
	first := markerIDs(t, doc)
	htmlAfterFirst, err := doc.HTML()
	if err != nil {
		t.Fatalf("HTML() failed: %v", err)
	}

	report := a.Annotate(doc, quotes)
	if len(report.Placed) != 0 {
		t.Errorf("second run placed %d markers, want 0", len(report.Placed))
	}
	if report.Existing != len(first) {
		t.Errorf("Existing = %d, want %d", report.Existing, len(first))
	}
	if diff := cmp.Diff(first, markerIDs(t, doc)); diff != "" {
		t.Errorf("markers changed on second run (-first +second):\n%s", diff)
	}
	htmlAfterSecond, _ := doc.HTML()
	if htmlAfterFirst != htmlAfterSecond {
		t.Error("second run modified the document")
	}
}

func TestAnnotate_ReextractionAfterAnnotationIsStable(t *testing.T) {
	doc, quotes := detect(t, articleHTML)
	New(Options{}).Annotate(doc, quotes)

	doc.Refresh()
	again := extractor.New(extractor.Options{}).Extract(doc.PlainText()).Quotes
	if diff := cmp.Diff(quotes, again); diff != "" {
		t.Errorf("labels leaked into flattened text (-before +after):\n%s", diff)
	}
}

func TestAnnotate_RepeatedQuotesFollowDocumentOrder(t *testing.T) {
	rawHTML := `<html><body><article>
<p>He said "same text here for matching" once.</p>
<p>Later he said "same text here for matching" again.</p>
</article></body></html>`

	doc, quotes := detect(t, rawHTML)
	if len(quotes) != 2 || quotes[0].ID == quotes[1].ID {
		t.Fatalf("want two distinct quotes, got %+v", quotes)
	}

	New(Options{}).Annotate(doc, quotes)

	paragraphs := doc.Doc.Find("article p")
	for i, wantID := range []string{"quote-0", "quote-1"} {
		id, _ := paragraphs.Eq(i).Find(models.MarkerSelector).Attr(models.MarkerIDAttr)
		if id != wantID {
			t.Errorf("paragraph %d marker = %q, want %q", i, id, wantID)
		}
	}
}

func TestAnnotate_MultipleQuotesInOneLeaf(t *testing.T) {
	rawHTML := `<html><body><article><p>A "first quoted sentence here" B "second quoted sentence here" C</p></article></body></html>`
	doc, quotes := detect(t, rawHTML)

	report := New(Options{}).Annotate(doc, quotes)
	if len(report.Placed) != 2 {
		t.Fatalf("placed %d, want 2", len(report.Placed))
	}

	p := doc.Doc.Find("article p").Get(0)
	var kinds []string
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case parser.IsMarker(c):
			kinds = append(kinds, "marker")
		case parser.IsLabel(c):
			kinds = append(kinds, "label")
		case c.Type == html.TextNode:
			kinds = append(kinds, "text:"+c.Data)
		}
	}
	want := []string{"text:A ", "marker", "label", "text: B ", "marker", "label", "text: C"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnotate_NoQuotes(t *testing.T) {
	doc, quotes := detect(t, `<html><body><p>nothing quoted</p></body></html>`)
	report := New(Options{}).Annotate(doc, quotes)
	if len(report.Placed) != 0 || report.Unresolved != 0 || report.Unplaced != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}
