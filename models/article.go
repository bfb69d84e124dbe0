package models

import "strings"

// Article holds the text of a loaded document as the extractor sees it.
// Headline and Body are whitespace-collapsed; Title may come from readability
// metadata when the page has no visible headline.
type Article struct {
	URL      string `json:"url" yaml:"url"`
	Title    string `json:"title" yaml:"title"`
	Headline string `json:"headline" yaml:"headline"`
	Body     string `json:"body" yaml:"body"`
	Byline   string `json:"byline,omitempty" yaml:"byline,omitempty"`
	SiteName string `json:"site_name,omitempty" yaml:"site_name,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"` // ISO-639-1 if detected
}

// ToPlainText concatenates the headline before the body, separated by one
// space, the same flattening the extractor scans.
func (a *Article) ToPlainText() string {
	var sb strings.Builder
	sb.Grow(len(a.Headline) + len(a.Body) + 1)

	if a.Headline != "" {
		sb.WriteString(a.Headline)
	}
	if a.Body != "" {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(a.Body)
	}

	return sb.String()
}
