package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/detector"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	DefaultHeadlineSelector = "h1, [itemprop=headline], .headline"
	DefaultBodySelector     = "article, [itemprop=articleBody], main"
)

// Options selects the headline and body regions of a document.
type Options struct {
	HeadlineSelector string
	BodySelector     string
}

// Document is a parsed, mutable HTML tree together with the text the
// extractor scans. Either root may be nil.
type Document struct {
	Doc      *goquery.Document
	Article  models.Article
	Headline *html.Node
	Body     *html.Node
}

type Parser struct {
	opts Options
}

func New(opts Options) *Parser {
	if opts.HeadlineSelector == "" {
		opts.HeadlineSelector = DefaultHeadlineSelector
	}
	if opts.BodySelector == "" {
		opts.BodySelector = DefaultBodySelector
	}
	return &Parser{opts: opts}
}

// Parse builds a Document from raw HTML. Readability is only consulted for
// metadata; the tree that gets annotated is the original one.
func (p *Parser) Parse(rawURL, rawHTML string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	d := &Document{
		Doc:     doc,
		Article: models.Article{URL: rawURL},
	}

	if headline := doc.Find(p.opts.HeadlineSelector).First(); headline.Length() > 0 {
		d.Headline = headline.Get(0)
	}
	body := doc.Find(p.opts.BodySelector).First()
	if body.Length() == 0 {
		body = doc.Find("body").First()
	}
	if body.Length() > 0 {
		d.Body = body.Get(0)
	}

	d.Refresh()

	d.Article.Title = d.Article.Headline
	if meta, ok := readMetadata(rawURL, rawHTML); ok {
		if d.Article.Title == "" {
			d.Article.Title = normalizeText(meta.Title)
		}
		d.Article.Byline = normalizeText(meta.Byline)
		d.Article.SiteName = meta.SiteName
	}
	if d.Article.Title == "" {
		d.Article.Title = normalizeText(doc.Find("title").First().Text())
	}

	d.Article.Language = detector.DetectLanguage(d.Article.Body)

	return d, nil
}

// Roots returns the non-nil regions, headline first.
func (d *Document) Roots() []*html.Node {
	var roots []*html.Node
	if d.Headline != nil {
		roots = append(roots, d.Headline)
	}
	if d.Body != nil {
		roots = append(roots, d.Body)
	}
	return roots
}

// Refresh recomputes the article's Headline and Body text from the tree.
// A headline nested inside the body is counted once, as headline.
func (d *Document) Refresh() {
	var headline, body strings.Builder
	seen := make(map[*html.Node]struct{})

	WalkText(d.Headline, seen, func(n *html.Node) {
		headline.WriteString(n.Data)
	})
	WalkText(d.Body, seen, func(n *html.Node) {
		body.WriteString(n.Data)
	})

	d.Article.Headline = normalizeText(headline.String())
	d.Article.Body = normalizeText(body.String())
}

// PlainText is the flattened headline + body text the extractor scans.
func (d *Document) PlainText() string {
	return d.Article.ToPlainText()
}

// HTML renders the current tree.
func (d *Document) HTML() (string, error) {
	out, err := goquery.OuterHtml(d.Doc.Selection)
	if err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return out, nil
}

func readMetadata(rawURL, rawHTML string) (readability.Article, bool) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Host == "" {
		parsedURL = &url.URL{Scheme: "http", Host: "localhost"}
	}

	rp := readability.NewParser()
	article, err := rp.Parse(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return readability.Article{}, false
	}
	return article, true
}

// normalizeText collapses every run of whitespace into one space and trims.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
