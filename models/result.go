package models

// AnalysisResult is one source candidate for one quote, in the shape the
// presentation layer consumes.
type AnalysisResult struct {
	QuoteID               string   `json:"quote_id" yaml:"quote_id"`
	QuoteText             string   `json:"quote_text" yaml:"quote_text"`
	OriginalSpan          string   `json:"original_span" yaml:"original_span"`
	SimilarityScore       int      `json:"similarity_score" yaml:"similarity_score"` // 0-100
	DistortionProbability *float64 `json:"distortion_probability" yaml:"distortion_probability"`
	IsDistorted           *bool    `json:"is_distorted" yaml:"is_distorted"`
	SourceURL             string   `json:"source_url" yaml:"source_url"`
}

// Snapshot is the externally observable orchestrator state.
type Snapshot struct {
	Results   []AnalysisResult `json:"results"`
	IsLoading bool             `json:"isLoading"`
}

// Verdict summarizes the candidates of a single quote.
type Verdict struct {
	QuoteID            string   `json:"quote_id" yaml:"quote_id"`
	MaxDistortionScore *float64 `json:"max_distortion_score,omitempty" yaml:"max_distortion_score,omitempty"` // 0-100
	Label              string   `json:"label,omitempty" yaml:"label,omitempty"`                               // "distorted" | "normal"
}
