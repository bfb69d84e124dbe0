// Package projector maps backend responses into the presentation result shape.
package projector

import (
	"math"

	"github.com/dtnitsch/quote-origin/models"
)

// distortedThreshold is the 0-100 score at or above which a quote is labeled distorted.
const distortedThreshold = 50.0

// Project converts every candidate of resp into an AnalysisResult. Similarity
// is scaled to 0-100 and rounded; distortion probability is passed through
// unscaled, or nil when missing or not a number.
func Project(quoteID, quoteText string, resp *models.OriginResponse) []models.AnalysisResult {
	if resp == nil {
		return []models.AnalysisResult{}
	}

	results := make([]models.AnalysisResult, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		r := models.AnalysisResult{
			QuoteID:         quoteID,
			QuoteText:       quoteText,
			OriginalSpan:    c.OriginalSpan,
			SimilarityScore: ScaleScore(c.SimilarityScore),
			SourceURL:       c.SourceURL,
			IsDistorted:     c.IsDistorted,
		}
		if p, ok := c.DistortionScore.Float(); ok {
			r.DistortionProbability = &p
		}
		results = append(results, r)
	}
	return results
}

// ScaleScore turns a 0-1 similarity into a rounded 0-100 integer. Values
// outside 0-1 are clamped.
func ScaleScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(1, score)) * 100))
}

// Summarize derives the per-quote verdict: the highest distortion probability
// as a 0-100 score with two decimals, labeled "distorted" at 50 or above.
// A quote without any distortion probability gets no score and no label.
func Summarize(quoteID string, results []models.AnalysisResult) models.Verdict {
	v := models.Verdict{QuoteID: quoteID}

	var maxProb *float64
	for _, r := range results {
		if r.DistortionProbability == nil {
			continue
		}
		if maxProb == nil || *r.DistortionProbability > *maxProb {
			p := *r.DistortionProbability
			maxProb = &p
		}
	}
	if maxProb == nil {
		return v
	}

	score := math.Round(*maxProb*100*100) / 100
	v.MaxDistortionScore = &score
	v.Label = "normal"
	if score >= distortedThreshold {
		v.Label = "distorted"
	}
	return v
}
