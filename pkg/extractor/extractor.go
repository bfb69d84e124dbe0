package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/dtnitsch/quote-origin/models"
)

const (
	DefaultMinLength     = 10
	DefaultMaxLength     = 500
	DefaultPreviewLength = 100
)

// Options configures an Extractor. Zero values fall back to the defaults.
type Options struct {
	Patterns      []Pattern
	MinLength     int
	MaxLength     int
	PreviewLength int
}

// Extractor finds quote-delimited spans in flattened document text.
type Extractor struct {
	patterns      []Pattern
	minLength     int
	maxLength     int
	previewLength int
}

// Extraction is the result of one detection pass: the ordered quotes plus a
// side table of full texts keyed by quote id.
type Extraction struct {
	Quotes   []models.Quote
	fullText map[string]string
}

// FullText returns the untruncated text of a quote from this pass.
func (e *Extraction) FullText(id string) (string, bool) {
	if e == nil {
		return "", false
	}
	text, ok := e.fullText[id]
	return text, ok
}

// Len returns the number of quotes found.
func (e *Extraction) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Quotes)
}

func New(opts Options) *Extractor {
	x := &Extractor{
		patterns:      opts.Patterns,
		minLength:     opts.MinLength,
		maxLength:     opts.MaxLength,
		previewLength: opts.PreviewLength,
	}
	if len(x.patterns) == 0 {
		x.patterns = DefaultPatterns()
	}
	if x.minLength <= 0 {
		x.minLength = DefaultMinLength
	}
	if x.maxLength <= 0 {
		x.maxLength = DefaultMaxLength
	}
	if x.previewLength <= 0 {
		x.previewLength = DefaultPreviewLength
	}
	return x
}

// Extract scans text with each pattern in turn. Ids come from one counter
// shared by all patterns, so every match of a later pattern is numbered after
// every match of an earlier one even when it occurs earlier in the text.
func (x *Extractor) Extract(text string) *Extraction {
	result := &Extraction{fullText: make(map[string]string)}
	if strings.TrimSpace(text) == "" {
		return result
	}

	counter := 0
	for _, p := range x.patterns {
		for _, loc := range p.Re.FindAllStringSubmatchIndex(text, -1) {
			inner := strings.TrimSpace(text[loc[2]:loc[3]])
			n := utf8.RuneCountInString(inner)
			if n < x.minLength || n > x.maxLength {
				continue
			}

			id := models.QuoteID(counter)
			counter++

			result.fullText[id] = inner
			result.Quotes = append(result.Quotes, models.Quote{
				ID:             id,
				Text:           inner,
				PreviewText:    truncateRunes(inner, x.previewLength),
				SourcePosition: utf8.RuneCountInString(text[:loc[0]]),
			})
		}
	}

	return result
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
