// Package tmdb fetches movie lists from The Movie Database v3 API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

const (
	DefaultBaseURL    = "https://api.themoviedb.org/3/"
	DefaultLanguage   = "en-US"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	baseRetryDelay    = 500 * time.Millisecond
)

// Config for a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL    string
	APIKey     string
	Language   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration // first backoff step, doubled per attempt
}

// Client implements domain.MovieCatalog against TMDB
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new TMDB API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = baseRetryDelay
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// FetchTopRated returns the first page of top rated movies
func (c *Client) FetchTopRated(ctx context.Context) ([]domain.Movie, error) {
	return c.fetchMovies(ctx, "fetch top rated", "/movie/top_rated", nil)
}

// FetchByGenre returns the first page of movies discovered for genreID
func (c *Client) FetchByGenre(ctx context.Context, genreID string) ([]domain.Movie, error) {
	query := url.Values{}
	query.Set("with_genres", genreID)
	return c.fetchMovies(ctx, "fetch genre "+genreID, "/discover/movie", query)
}

func (c *Client) fetchMovies(ctx context.Context, op, path string, query url.Values) ([]domain.Movie, error) {
	body, err := c.doRequest(ctx, op, path, query)
	if err != nil {
		return nil, err
	}

	var result MovieResults
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%s: failed to parse response: %w", op, err)
	}

	movies := mapMovies(result.Results)
	c.logger.Debug("fetched movies", "op", op, "count", len(movies))
	return movies, nil
}

// doRequest performs a GET against the API with the key and language attached.
// 5xx and 429 responses are retried with exponential backoff.
func (c *Client) doRequest(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	query.Set("language", c.language)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "path", path)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		c.logger.Debug("tmdb request", "path", path, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Error("tmdb request failed", "path", path, "error", err)
			return nil, &domain.TransportError{Op: op, Err: err}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(statusMessage(body))}
			c.logger.Warn("tmdb server error, will retry",
				"status", resp.StatusCode,
				"attempt", attempt,
				"maxRetries", c.maxRetries,
				"path", path,
			)
			continue

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			c.logger.Error("tmdb rejected api key", "status", resp.StatusCode, "path", path)
			return nil, fmt.Errorf("%s: %w", op, domain.ErrAuthFailed)

		default:
			c.logger.Error("tmdb request error", "status", resp.StatusCode, "body", string(body))
			return nil, fmt.Errorf("%s: %w: status %d: %s", op, domain.ErrRejected, resp.StatusCode, statusMessage(body))
		}
	}

	c.logger.Error("tmdb request failed after retries", "error", lastErr, "path", path)
	return nil, lastErr
}

// statusMessage extracts status_message from an error body, falling back to the raw text
func statusMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.StatusMessage != "" {
		return apiErr.StatusMessage
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return "empty response"
	}
	return msg
}
