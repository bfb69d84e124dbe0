package models

// OriginRequest is the body POSTed to the analysis backend for one quote.
type OriginRequest struct {
	QuoteID      string   `json:"quote_id"`
	QuoteContent string   `json:"quote_content"`
	ArticleText  string   `json:"article_text"`
	ArticleURL   string   `json:"article_url"`
	ArticleTitle string   `json:"article_title"`
	Keywords     []string `json:"keywords"`
}

// Candidate is a single probable source returned by the backend.
// Scores are kept as raw JSON numbers so non-numeric values can be rejected
// during projection instead of failing the whole decode.
type Candidate struct {
	CandidateIndex  int      `json:"candidate_index"`
	OriginalSpan    string   `json:"original_span"`
	SimilarityScore float64  `json:"similarity_score"`
	SourceURL       string   `json:"source_url"`
	BestSentence    string   `json:"best_sentence,omitempty"`
	DistortionScore RawScore `json:"distortion_score,omitempty"`
	IsDistorted     *bool    `json:"is_distorted,omitempty"`
}

// OriginResponse is the backend's success body.
type OriginResponse struct {
	QuoteID       string      `json:"quote_id"`
	QuoteContent  string      `json:"quote_content"`
	Candidates    []Candidate `json:"candidates"`
	BestCandidate *Candidate  `json:"best_candidate"`
	Error         *string     `json:"error"`
}
