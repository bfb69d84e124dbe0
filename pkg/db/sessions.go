package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/dtnitsch/quote-origin/pkg/session"
)

// Session is a stored detection pass.
type Session struct {
	SessionID       int64     `json:"session_id" yaml:"session_id"`
	SessionKey      string    `json:"session_key" yaml:"session_key"`
	URL             string    `json:"url,omitempty" yaml:"url,omitempty"`
	Title           string    `json:"title,omitempty" yaml:"title,omitempty"`
	Language        string    `json:"language,omitempty" yaml:"language,omitempty"`
	QuoteCount      int       `json:"quote_count" yaml:"quote_count"`
	PlacedCount     int       `json:"placed_count" yaml:"placed_count"`
	UnresolvedCount int       `json:"unresolved_count" yaml:"unresolved_count"`
	Keywords        []string  `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// RecordSession stores a detection pass and its quotes in one transaction.
// Recording the same session twice is an error.
func (db *DB) RecordSession(ctx context.Context, s *session.Session) error {
	article := s.Document.Article
	urlID, err := db.optionalURLID(ctx, article.URL)
	if err != nil {
		return err
	}

	keywords, err := json.Marshal(s.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	placed, unresolved := 0, 0
	if s.Annotation != nil {
		placed = len(s.Annotation.Placed)
		unresolved = s.Annotation.Unresolved
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (session_key, url_id, title, language, quote_count, placed_count, unresolved_count, keywords, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, urlID, NewNullString(article.Title), NewNullString(article.Language),
		len(s.Quotes()), placed, unresolved, string(keywords), s.Created.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	sessionID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get session ID: %w", err)
	}

	for _, q := range s.Quotes() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quotes (session_id, quote_id, text, preview_text, source_position)
			VALUES (?, ?, ?, ?, ?)
		`, sessionID, q.ID, q.Text, q.PreviewText, q.SourcePosition)
		if err != nil {
			return fmt.Errorf("failed to insert quote %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

const sessionColumns = `
	s.session_id, s.session_key, COALESCE(u.original_url, ''), COALESCE(s.title, ''),
	COALESCE(s.language, ''), s.quote_count, s.placed_count, s.unresolved_count,
	COALESCE(s.keywords, '[]'), s.created_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	var keywords string
	err := row.Scan(&s.SessionID, &s.SessionKey, &s.URL, &s.Title, &s.Language,
		&s.QuoteCount, &s.PlacedCount, &s.UnresolvedCount, &keywords, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(keywords), &s.Keywords); err != nil {
		return s, fmt.Errorf("failed to decode keywords of session %s: %w", s.SessionKey, err)
	}
	return s, nil
}

// GetSessionByKey returns the session with the given key.
func (db *DB) GetSessionByKey(ctx context.Context, key string) (*Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+`
		FROM sessions s LEFT JOIN urls u ON s.url_id = u.url_id
		WHERE s.session_key = ?`, key)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// LatestSessionForURL returns the most recent session recorded for rawURL.
func (db *DB) LatestSessionForURL(ctx context.Context, rawURL string) (*Session, error) {
	urlID, err := db.GetURLID(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+`
		FROM sessions s LEFT JOIN urls u ON s.url_id = u.url_id
		WHERE s.url_id = ?
		ORDER BY s.created_at DESC, s.session_id DESC
		LIMIT 1`, urlID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no sessions for URL: %s", rawURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// ListSessions returns the most recent sessions, newest first. A non-empty
// urlPattern is matched with SQL LIKE against the article URL.
func (db *DB) ListSessions(ctx context.Context, limit int, urlPattern string) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions s LEFT JOIN urls u ON s.url_id = u.url_id`
	args := []any{}
	if urlPattern != "" {
		query += " WHERE u.original_url LIKE ?"
		args = append(args, "%"+urlPattern+"%")
	}
	query += " ORDER BY s.created_at DESC, s.session_id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetSessionQuotes returns the quotes of a session in detection order.
func (db *DB) GetSessionQuotes(ctx context.Context, sessionID int64) ([]models.Quote, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT quote_id, text, preview_text, source_position
		FROM quotes
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session quotes: %w", err)
	}
	defer rows.Close()

	quotes := []models.Quote{}
	for rows.Next() {
		var q models.Quote
		if err := rows.Scan(&q.ID, &q.Text, &q.PreviewText, &q.SourcePosition); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
