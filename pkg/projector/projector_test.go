package projector

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/dtnitsch/quote-origin/models"
)

func decode(t *testing.T, body string) *models.OriginResponse {
	t.Helper()
	var resp models.OriginResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return &resp
}

func TestProject_ScalesSimilarity(t *testing.T) {
	resp := decode(t, `{
		"quote_id": "quote-0",
		"quote_content": "the economy matters most",
		"candidates": [
			{"candidate_index": 0, "original_span": "The economy matters.", "similarity_score": 0.8234, "source_url": "https://a.example", "distortion_score": 0.12, "is_distorted": false},
			{"candidate_index": 1, "original_span": "Other span", "similarity_score": 0.5, "source_url": "https://b.example"}
		],
		"error": null
	}`)

	got := Project("quote-0", "the economy matters most", resp)
	if len(got) != 2 {
		t.Fatalf("Project() returned %d results, want 2", len(got))
	}

	if got[0].SimilarityScore != 82 {
		t.Errorf("SimilarityScore = %d, want 82", got[0].SimilarityScore)
	}
	if got[1].SimilarityScore != 50 {
		t.Errorf("SimilarityScore = %d, want 50", got[1].SimilarityScore)
	}
	if got[0].DistortionProbability == nil || *got[0].DistortionProbability != 0.12 {
		t.Errorf("DistortionProbability = %v, want 0.12", got[0].DistortionProbability)
	}
	if got[0].IsDistorted == nil || *got[0].IsDistorted {
		t.Errorf("IsDistorted = %v, want false", got[0].IsDistorted)
	}
	if got[1].DistortionProbability != nil || got[1].IsDistorted != nil {
		t.Errorf("missing distortion fields should stay nil, got %+v", got[1])
	}
	if got[0].QuoteID != "quote-0" || got[0].SourceURL != "https://a.example" {
		t.Errorf("unexpected projection %+v", got[0])
	}
}

func TestProject_NonNumericDistortion(t *testing.T) {
	resp := decode(t, `{"candidates": [
		{"similarity_score": 0.1, "distortion_score": "high"},
		{"similarity_score": 0.1, "distortion_score": null}
	]}`)

	for i, r := range Project("quote-3", "q", resp) {
		if r.DistortionProbability != nil {
			t.Errorf("result %d: DistortionProbability = %v, want nil", i, *r.DistortionProbability)
		}
	}
}

func TestProject_NilAndEmpty(t *testing.T) {
	if got := Project("quote-0", "q", nil); got == nil || len(got) != 0 {
		t.Errorf("Project(nil) = %v, want empty slice", got)
	}
	if got := Project("quote-0", "q", &models.OriginResponse{}); len(got) != 0 {
		t.Errorf("Project(empty) = %v, want empty slice", got)
	}
}

func TestScaleScore(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{1, 100},
		{0.8234, 82},
		{0.826, 83},
		{0.004, 0},
		{1.7, 100},
		{1e300, 100},
		{-0.3, 0},
		{math.Inf(1), 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ScaleScore(tt.in); got != tt.want {
			t.Errorf("ScaleScore(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	p := func(f float64) *float64 { return &f }

	tests := []struct {
		name      string
		results   []models.AnalysisResult
		wantScore *float64
		wantLabel string
	}{
		{name: "no scores", results: []models.AnalysisResult{{}}, wantScore: nil, wantLabel: ""},
		{
			name:      "max wins and is distorted",
			results:   []models.AnalysisResult{{DistortionProbability: p(0.2)}, {DistortionProbability: p(0.71234)}},
			wantScore: p(71.23),
			wantLabel: "distorted",
		},
		{
			name:      "below threshold",
			results:   []models.AnalysisResult{{DistortionProbability: p(0.4999)}},
			wantScore: p(49.99),
			wantLabel: "normal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Summarize("quote-0", tt.results)
			if v.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", v.Label, tt.wantLabel)
			}
			if (v.MaxDistortionScore == nil) != (tt.wantScore == nil) {
				t.Fatalf("MaxDistortionScore = %v, want %v", v.MaxDistortionScore, tt.wantScore)
			}
			if tt.wantScore != nil && *v.MaxDistortionScore != *tt.wantScore {
				t.Errorf("MaxDistortionScore = %v, want %v", *v.MaxDistortionScore, *tt.wantScore)
			}
		})
	}
}
