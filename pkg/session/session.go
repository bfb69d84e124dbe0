// Package session runs one detection pass over a document: parse, extract,
// annotate, and the article context every backend request of the pass shares.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/analytics"
	"github.com/dtnitsch/quote-origin/pkg/annotator"
	"github.com/dtnitsch/quote-origin/pkg/extractor"
	"github.com/dtnitsch/quote-origin/pkg/mapreduce"
	"github.com/dtnitsch/quote-origin/pkg/orchestrator"
	"github.com/dtnitsch/quote-origin/pkg/parser"
)

// Session is one detection pass. Quote ids are only meaningful within it.
type Session struct {
	ID         string
	Created    time.Time
	Document   *parser.Document
	Extraction *extractor.Extraction
	// Annotation is nil until Annotate runs.
	Annotation *annotator.Report
	Keywords   []string
}

type Options struct {
	Parser      parser.Options
	Extractor   extractor.Options
	Annotator   annotator.Options
	KeywordsMax int
	Logger      *slog.Logger
}

// Detector builds sessions. It holds no per-document state and may be shared.
type Detector struct {
	parser      *parser.Parser
	extractor   *extractor.Extractor
	annotator   *annotator.Annotator
	keywordsMax int
	logger      *slog.Logger
}

func NewDetector(opts Options) *Detector {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Annotator.Logger == nil {
		opts.Annotator.Logger = opts.Logger
	}
	return &Detector{
		parser:      parser.New(opts.Parser),
		extractor:   extractor.New(opts.Extractor),
		annotator:   annotator.New(opts.Annotator),
		keywordsMax: opts.KeywordsMax,
		logger:      opts.Logger,
	}
}

// NewDetectorFromConfig wires a Detector from the runtime configuration.
func NewDetectorFromConfig(cfg models.Config, logger *slog.Logger) (*Detector, error) {
	patterns, err := extractor.ParsePatterns(cfg.Extraction.Patterns)
	if err != nil {
		return nil, err
	}
	single := false
	for _, p := range patterns {
		if p.Name == extractor.PatternSingle {
			single = true
		}
	}
	return NewDetector(Options{
		Parser: parser.Options{
			HeadlineSelector: cfg.Annotation.HeadlineSelector,
			BodySelector:     cfg.Annotation.BodySelector,
		},
		Extractor: extractor.Options{
			Patterns:      patterns,
			MinLength:     cfg.Extraction.MinLength,
			MaxLength:     cfg.Extraction.MaxLength,
			PreviewLength: cfg.Extraction.PreviewLength,
		},
		Annotator:   annotator.Options{SingleQuotes: single},
		KeywordsMax: cfg.KeywordsMax,
		Logger:      logger,
	}), nil
}

// Detect parses rawHTML and extracts its quotes. The tree is not modified.
func (d *Detector) Detect(rawURL string, rawHTML []byte) (*Session, error) {
	start := time.Now()
	doc, err := d.parser.Parse(rawURL, string(rawHTML))
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         GenerateSessionID(rawURL, start),
		Created:    start,
		Document:   doc,
		Extraction: d.extractor.Extract(doc.PlainText()),
		Keywords:   []string{},
	}
	if d.keywordsMax > 0 {
		a := analytics.ForLanguage(doc.Article.Language)
		s.Keywords = mapreduce.Keywords(a, d.keywordsMax, doc.Article.Headline, doc.Article.Body)
	}

	d.logger.Info("Quotes detected",
		"url", rawURL,
		"session_id", s.ID,
		"quotes", s.Extraction.Len(),
		"language", doc.Article.Language,
		"duration", time.Since(start))
	return s, nil
}

// Annotate marks the session's quotes in its document.
func (d *Detector) Annotate(s *Session) *annotator.Report {
	s.Annotation = d.annotator.Annotate(s.Document, s.Quotes())
	return s.Annotation
}

// DetectAndAnnotate runs Detect then Annotate.
func (d *Detector) DetectAndAnnotate(rawURL string, rawHTML []byte) (*Session, error) {
	s, err := d.Detect(rawURL, rawHTML)
	if err != nil {
		return nil, err
	}
	d.Annotate(s)
	return s, nil
}

// Quotes returns the detected quotes, never nil.
func (s *Session) Quotes() []models.Quote {
	if s == nil || s.Extraction == nil || s.Extraction.Quotes == nil {
		return []models.Quote{}
	}
	return s.Extraction.Quotes
}

// Quote looks up a quote of this pass by id.
func (s *Session) Quote(id string) (models.Quote, bool) {
	for _, q := range s.Quotes() {
		if q.ID == id {
			return q, true
		}
	}
	return models.Quote{}, false
}

// Payloads builds backend requests carrying this session's article context.
func (s *Session) Payloads() orchestrator.PayloadBuilder {
	return orchestrator.NewPayloadBuilder(s.Document.Article, s.Extraction, s.Keywords)
}

// GenerateSessionID creates a timestamp-first session ID for a document.
// Format: YYYY-MM-DDTHH-MM-SS-{hash}, hash derived from the URL.
func GenerateSessionID(rawURL string, now time.Time) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("%s-%s", now.UTC().Format("2006-01-02T15-04-05"), hex.EncodeToString(sum[:6]))
}
