// Package models defines data structures shared by detection, annotation and analysis.
package models

import (
	"strconv"
	"strings"
)

// QuoteIDPrefix is prepended to the sequential counter of a detection pass.
const QuoteIDPrefix = "quote-"

// Quote is a directly-quoted span found in a document's flattened text.
// PreviewText is bounded; the full text lives in the extraction side table.
type Quote struct {
	ID             string `json:"id" yaml:"id"`
	Text           string `json:"text" yaml:"text"`
	PreviewText    string `json:"preview_text" yaml:"preview_text"`
	SourcePosition int    `json:"source_position" yaml:"source_position"`
}

// QuoteID formats the identifier for the n-th accepted quote of a pass.
func QuoteID(n int) string {
	return QuoteIDPrefix + strconv.Itoa(n)
}

// Index returns the 1-based display number of the quote within its pass,
// or 0 when the id was not produced by QuoteID.
func (q Quote) Index() int {
	return QuoteIndex(q.ID)
}

// QuoteIndex parses the 1-based display number out of a quote id.
func QuoteIndex(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, QuoteIDPrefix))
	if err != nil || !strings.HasPrefix(id, QuoteIDPrefix) || n < 0 {
		return 0
	}
	return n + 1
}
