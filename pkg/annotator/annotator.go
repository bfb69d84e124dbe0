// Package annotator places extracted quotes back into a live HTML tree.
//
// Text nodes are split around each quoted span and the span is wrapped in a
// marker element carrying the quote id, followed by a numeric label. Only
// nodes are inserted; no character of the original text is removed or
// duplicated.
package annotator

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// spanAlternatives is wider than the extractor's pattern set: bracket
// quotation marks used in CJK text are also recognized.
var spanAlternatives = []string{
	`\x{201C}[^\x{201D}]+\x{201D}`,
	`"[^"]+"`,
	`\x{300C}[^\x{300D}]+\x{300D}`, // 「」
	`\x{300E}[^\x{300F}]+\x{300F}`, // 『』
	`\x{300A}[^\x{300B}]+\x{300B}`, // 《》
	`\x{3008}[^\x{3009}]+\x{3009}`, // 〈〉
}

const singleQuoteAlternative = `\x{2018}[^\x{2019}]+\x{2019}`

// Options configures an Annotator.
type Options struct {
	// SingleQuotes also recognizes curly single quotes. Enable it together
	// with the extractor's "single" pattern.
	SingleQuotes bool
	// Strategies overrides DefaultStrategies.
	Strategies []Strategy
	Logger     *slog.Logger
}

type Annotator struct {
	span       *regexp.Regexp
	strategies []Strategy
	logger     *slog.Logger
}

// Placement records one quote marked in the tree.
type Placement struct {
	QuoteID  string `json:"quote_id" yaml:"quote_id"`
	Index    int    `json:"index" yaml:"index"`
	Strategy string `json:"strategy" yaml:"strategy"`
}

// Report summarizes one annotation run. Unresolved spans are expected and
// are not errors.
type Report struct {
	Placed     []Placement `json:"placed" yaml:"placed"`
	Existing   int         `json:"existing" yaml:"existing"`     // markers already in the tree
	Unresolved int         `json:"unresolved" yaml:"unresolved"` // spans with no waiting quote
	Unplaced   int         `json:"unplaced" yaml:"unplaced"`     // quotes with no span
}

func New(opts Options) *Annotator {
	alts := spanAlternatives
	if opts.SingleQuotes {
		alts = append(append([]string{}, spanAlternatives...), singleQuoteAlternative)
	}
	a := &Annotator{
		span:       regexp.MustCompile(strings.Join(alts, "|")),
		strategies: opts.Strategies,
		logger:     opts.Logger,
	}
	if len(a.strategies) == 0 {
		a.strategies = DefaultStrategies()
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// Annotate marks every quote of one detection pass inside doc. Headline
// leaves are visited before body leaves, mirroring how the extractor's text
// was flattened, so repeated quotes are consumed in document order. Running
// it again on an annotated document adds nothing.
func (a *Annotator) Annotate(doc *parser.Document, quotes []models.Quote) *Report {
	report := &Report{}
	queue := NewMatchQueue(quotes)

	doc.Doc.Find(models.MarkerSelector).Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr(models.MarkerIDAttr); ok && queue.Remove(id) {
			report.Existing++
		}
	})

	for _, leaf := range parser.TextLeaves(doc.Roots()...) {
		if parser.InsideMarker(leaf) || leaf.Parent == nil {
			continue
		}
		a.annotateLeaf(leaf, queue, report)
	}

	report.Unplaced = queue.Len()
	a.logger.Debug("Annotation finished",
		"placed", len(report.Placed),
		"existing", report.Existing,
		"unresolved", report.Unresolved,
		"unplaced", report.Unplaced)

	return report
}

func (a *Annotator) annotateLeaf(leaf *html.Node, queue *MatchQueue, report *Report) {
	text := leaf.Data
	locs := a.span.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return
	}

	var replacement []*html.Node
	last := 0
	for _, loc := range locs {
		spanText := text[loc[0]:loc[1]]
		entry, strategy, ok := resolve(a.strategies, NormalizeKey(spanText), queue)
		if !ok {
			report.Unresolved++
			continue
		}

		if loc[0] > last {
			replacement = append(replacement, textNode(text[last:loc[0]]))
		}
		replacement = append(replacement, markerNode(entry.ID, spanText), labelNode(entry.Index))
		last = loc[1]

		report.Placed = append(report.Placed, Placement{QuoteID: entry.ID, Index: entry.Index, Strategy: strategy})
	}

	if len(replacement) == 0 {
		return
	}
	if last < len(text) {
		replacement = append(replacement, textNode(text[last:]))
	}

	parent := leaf.Parent
	for _, n := range replacement {
		parent.InsertBefore(n, leaf)
	}
	parent.RemoveChild(leaf)
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func markerNode(id, spanText string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     models.MarkerTag,
		Attr: []html.Attribute{
			{Key: "class", Val: models.MarkerClass},
			{Key: models.MarkerIDAttr, Val: id},
		},
	}
	n.AppendChild(textNode(spanText))
	return n
}

func labelNode(index int) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Sup,
		Data:     models.LabelTag,
		Attr:     []html.Attribute{{Key: "class", Val: models.LabelClass}},
	}
	n.AppendChild(textNode(strconv.Itoa(index)))
	return n
}
