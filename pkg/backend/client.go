// Package backend is the HTTP client for the quote-origin analysis service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dtnitsch/quote-origin/models"
)

const (
	FindOriginPath = "/api/find-origin"
	DefaultTimeout = 120 * time.Second

	// maxErrorBody bounds how much of a failed response is kept.
	maxErrorBody = 4096
)

// ErrUnreachable wraps transport-level failures (DNS, refused, timeout).
var ErrUnreachable = errors.New("analysis backend unreachable")

// HTTPError is a non-2xx response. Body holds the response text.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analysis backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("analysis backend returned status %d: %s", e.StatusCode, e.Body)
}

// AnalysisError is a 2xx response whose body reports a failure.
type AnalysisError struct {
	QuoteID string
	Message string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed for %s: %s", e.QuoteID, e.Message)
}

// ErrorType classifies err for logs and stored records.
func ErrorType(err error) string {
	var httpErr *HTTPError
	var analysisErr *AnalysisError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreachable):
		return "backend_unreachable"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.As(err, &analysisErr):
		return "analysis_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "backend_error"
	}
}

type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client for the service at baseURL. A zero timeout
// means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FindOrigin posts one quote and decodes the candidates. It never retries.
func (c *Client) FindOrigin(ctx context.Context, req models.OriginRequest) (*models.OriginResponse, error) {
	if req.Keywords == nil {
		req.Keywords = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+FindOriginPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	var out models.OriginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil && *out.Error != "" {
		return nil, &AnalysisError{QuoteID: req.QuoteID, Message: *out.Error}
	}
	return &out, nil
}
