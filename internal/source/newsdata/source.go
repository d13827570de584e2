package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"news_digest/internal/domain"
)

const SourceID = "newsdata"

// Config holds news provider configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Language       string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches articles from a newsdata.io style search API.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	language       string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		language:       cfg.Language,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// BuildQuery composes the provider search query from topic preferences.
// Each term is quoted and terms are joined with the provider's OR operator.
func BuildQuery(preferences []string) string {
	terms := make([]string, len(preferences))
	for i, p := range preferences {
		terms[i] = fmt.Sprintf("%q", p)
	}
	return strings.Join(terms, " OR ")
}

func (s *Source) BuildQuery(preferences []string) string {
	return BuildQuery(preferences)
}

// Fetch retrieves articles matching the composed query. Any non-200 response
// or malformed payload is an error after the retry budget is exhausted.
func (s *Source) Fetch(ctx context.Context, query string) ([]domain.Article, error) {
	params := url.Values{}
	params.Set("apikey", s.apiKey)
	params.Set("language", s.language)
	params.Set("q", query)

	reqURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())

	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, reqURL)
		if err == nil {
			return s.transform(resp.Results), nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, url string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsDigest/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(results []Result) []domain.Article {
	articles := make([]domain.Article, 0, len(results))
	for _, r := range results {
		articles = append(articles, domain.Article{
			Title:       r.Title,
			Description: r.Description,
		})
	}
	return articles
}
