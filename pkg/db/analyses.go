package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/backend"
	"github.com/dtnitsch/quote-origin/pkg/projector"
)

// Analysis is one stored backend call.
type Analysis struct {
	AnalysisID     int64                   `json:"analysis_id" yaml:"analysis_id"`
	URL            string                  `json:"url,omitempty" yaml:"url,omitempty"`
	QuoteID        string                  `json:"quote_id" yaml:"quote_id"`
	QuoteContent   string                  `json:"quote_content" yaml:"quote_content"`
	Success        bool                    `json:"success" yaml:"success"`
	ErrorType      string                  `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	ErrorMessage   string                  `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	CandidateCount int                     `json:"candidate_count" yaml:"candidate_count"`
	BestSimilarity *int                    `json:"best_similarity,omitempty" yaml:"best_similarity,omitempty"`
	MaxDistortion  *float64                `json:"max_distortion,omitempty" yaml:"max_distortion,omitempty"`
	Verdict        string                  `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Results        []models.AnalysisResult `json:"results,omitempty" yaml:"results,omitempty"`
	CreatedAt      time.Time               `json:"created_at" yaml:"created_at"`
}

// InsertAnalysis stores the outcome of one backend call. err is the call's
// error, nil on success.
func (db *DB) InsertAnalysis(ctx context.Context, req models.OriginRequest, results []models.AnalysisResult, callErr error) (int64, error) {
	urlID, err := db.optionalURLID(ctx, req.ArticleURL)
	if err != nil {
		return 0, err
	}

	var (
		bestSimilarity sql.NullInt64
		maxDistortion  sql.NullFloat64
		verdict        sql.NullString
		resultsJSON    sql.NullString
		errorType      sql.NullString
		errorMessage   sql.NullString
	)
	if callErr != nil {
		errorType = NewNullString(backend.ErrorType(callErr))
		errorMessage = NewNullString(callErr.Error())
	} else {
		for _, r := range results {
			if !bestSimilarity.Valid || int64(r.SimilarityScore) > bestSimilarity.Int64 {
				bestSimilarity = sql.NullInt64{Int64: int64(r.SimilarityScore), Valid: true}
			}
		}
		v := projector.Summarize(req.QuoteID, results)
		if v.MaxDistortionScore != nil {
			maxDistortion = sql.NullFloat64{Float64: *v.MaxDistortionScore, Valid: true}
		}
		verdict = NewNullString(v.Label)

		data, err := json.Marshal(results)
		if err != nil {
			return 0, fmt.Errorf("failed to encode results: %w", err)
		}
		resultsJSON = sql.NullString{String: string(data), Valid: true}
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO analyses (url_id, quote_id, quote_content, success, error_type, error_message,
			candidate_count, best_similarity, max_distortion, verdict, results, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, urlID, req.QuoteID, req.QuoteContent, callErr == nil, errorType, errorMessage,
		len(results), bestSimilarity, maxDistortion, verdict, resultsJSON, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get analysis ID: %w", err)
	}
	return id, nil
}

// AnalysisFilter narrows ListAnalyses. Zero values match everything.
type AnalysisFilter struct {
	URLPattern string
	FailedOnly bool
	Limit      int
}

// ListAnalyses returns stored backend calls, newest first.
func (db *DB) ListAnalyses(ctx context.Context, f AnalysisFilter) ([]Analysis, error) {
	query := `
		SELECT a.analysis_id, COALESCE(u.original_url, ''), a.quote_id, a.quote_content, a.success,
			COALESCE(a.error_type, ''), COALESCE(a.error_message, ''), a.candidate_count,
			a.best_similarity, a.max_distortion, COALESCE(a.verdict, ''), a.results, a.created_at
		FROM analyses a LEFT JOIN urls u ON a.url_id = u.url_id
		WHERE 1=1`
	args := []any{}
	if f.URLPattern != "" {
		query += " AND u.original_url LIKE ?"
		args = append(args, "%"+f.URLPattern+"%")
	}
	if f.FailedOnly {
		query += " AND a.success = 0"
	}
	query += " ORDER BY a.created_at DESC, a.analysis_id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []Analysis{}
	for rows.Next() {
		var (
			a              Analysis
			bestSimilarity sql.NullInt64
			maxDistortion  sql.NullFloat64
			results        sql.NullString
		)
		err := rows.Scan(&a.AnalysisID, &a.URL, &a.QuoteID, &a.QuoteContent, &a.Success,
			&a.ErrorType, &a.ErrorMessage, &a.CandidateCount,
			&bestSimilarity, &maxDistortion, &a.Verdict, &results, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		if bestSimilarity.Valid {
			v := int(bestSimilarity.Int64)
			a.BestSimilarity = &v
		}
		if maxDistortion.Valid {
			v := maxDistortion.Float64
			a.MaxDistortion = &v
		}
		if results.Valid {
			if err := json.Unmarshal([]byte(results.String), &a.Results); err != nil {
				return nil, fmt.Errorf("failed to decode results of analysis %d: %w", a.AnalysisID, err)
			}
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// Recorder adapts DB to the orchestrator's recorder hook. Storage failures
// are logged; they never fail an analysis.
type Recorder struct {
	DB     *DB
	Logger *slog.Logger
}

func (r Recorder) RecordResult(ctx context.Context, req models.OriginRequest, results []models.AnalysisResult, err error) {
	if _, dbErr := r.DB.InsertAnalysis(context.WithoutCancel(ctx), req, results, err); dbErr != nil && r.Logger != nil {
		r.Logger.Warn("Failed to record analysis", "quote_id", req.QuoteID, "error", dbErr)
	}
}
