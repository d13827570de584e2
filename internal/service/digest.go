package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"news_digest/internal/config"
	"news_digest/internal/domain"
)

// DigestService runs the news-request pipeline: resolve preferences, fetch
// articles (through the per-user cache), fan out summarization, aggregate
// and notify. Only an unknown user or a failed fetch is request-fatal;
// per-article summarization failures and delivery errors are absorbed.
type DigestService struct {
	prefs      PreferenceStore
	cache      NewsCache
	source     NewsSource
	summarizer Summarizer
	notifier   Notifier
	logger     *slog.Logger
	config     config.PipelineConfig
}

func NewDigestService(
	prefs PreferenceStore,
	cache NewsCache,
	source NewsSource,
	summarizer Summarizer,
	notifier Notifier,
	logger *slog.Logger,
	cfg config.PipelineConfig,
) *DigestService {
	return &DigestService{
		prefs:      prefs,
		cache:      cache,
		source:     source,
		summarizer: summarizer,
		notifier:   notifier,
		logger:     logger,
		config:     cfg,
	}
}

// Handle adapts Process to the queue consumer's handler signature.
func (s *DigestService) Handle(ctx context.Context, req domain.NewsRequest) error {
	_, err := s.Process(ctx, req)
	return err
}

// Process handles one news request to completion. The returned error is
// either domain.ErrUserNotFound or wraps domain.ErrFetchFailed; stats are
// returned for every terminal outcome that got past preference resolution.
func (s *DigestService) Process(ctx context.Context, req domain.NewsRequest) (*domain.ProcessStats, error) {
	startTime := time.Now()
	logger := s.logger.With("username", req.Username)
	logger.Info("processing news request", "preferences", len(req.Preferences))

	profile, err := s.prefs.GetProfile(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	// Preferences embedded in the message win over the stored ones.
	preferences := req.Preferences
	if len(preferences) == 0 {
		preferences = profile.Preferences
	}

	stats := &domain.ProcessStats{Username: req.Username}

	articles, err := s.resolveArticles(ctx, req.Username, preferences, stats)
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(articles)

	filtered := filterSummarizable(articles)
	stats.Filtered = len(filtered)

	digest := s.summarizeAll(ctx, preferences, filtered, stats)

	s.notify(ctx, logger, profile, digest, stats)

	stats.Duration = time.Since(startTime)

	logger.Info("news request processed",
		"cache_hit", stats.CacheHit,
		"fetched", stats.Fetched,
		"filtered", stats.Filtered,
		"summarized", stats.Summarized,
		"dropped", stats.Dropped,
		"notified", stats.Notified,
		"duration", stats.Duration,
	)

	return stats, nil
}

// resolveArticles returns the cached payload when present, otherwise
// fetches fresh articles and populates the cache.
func (s *DigestService) resolveArticles(ctx context.Context, username string, preferences []string, stats *domain.ProcessStats) ([]domain.Article, error) {
	cached, err := s.cache.Get(ctx, username)
	if err != nil {
		// A broken cache degrades to a fetch, it does not fail the request.
		s.logger.Warn("cache lookup failed", "username", username, "error", err)
	}
	if cached != nil {
		stats.CacheHit = true
		return cached.Articles, nil
	}

	query := s.source.BuildQuery(preferences)
	articles, err := s.source.Fetch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	if err := s.cache.Set(ctx, username, articles, s.config.CacheTTL); err != nil {
		s.logger.Warn("cache store failed", "username", username, "error", err)
	}

	return articles, nil
}

func filterSummarizable(articles []domain.Article) []domain.Article {
	filtered := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if a.HasDescription() {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// summarizeAll fans out one summarization call per article, bounded by the
// configured concurrency. Results keep source order; a failed call drops
// that article only.
func (s *DigestService) summarizeAll(ctx context.Context, preferences []string, articles []domain.Article, stats *domain.ProcessStats) domain.Digest {
	if len(articles) == 0 {
		return nil
	}

	category := strings.Join(preferences, ", ")
	results := make([]*domain.Summary, len(articles))

	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrentSummaries)

	for i, article := range articles {
		g.Go(func() error {
			text, err := s.summarizer.Summarize(ctx, category, *article.Description)
			if err != nil {
				s.logger.Warn("summarization dropped",
					"title", article.Title,
					"error", err,
				)
				return nil
			}
			results[i] = &domain.Summary{Article: article, Text: text}
			return nil
		})
	}
	_ = g.Wait()

	digest := make(domain.Digest, 0, len(articles))
	for _, r := range results {
		if r == nil {
			stats.Dropped++
			continue
		}
		digest = append(digest, *r)
	}
	stats.Summarized = len(digest)

	if stats.Dropped > 0 {
		s.logger.Warn("summaries dropped", "count", stats.Dropped, "total", len(articles))
	}

	return digest
}

// notify dispatches the digest email. Delivery failures are logged and
// swallowed; an empty digest skips dispatch entirely.
func (s *DigestService) notify(ctx context.Context, logger *slog.Logger, profile *domain.UserProfile, digest domain.Digest, stats *domain.ProcessStats) {
	if len(digest) == 0 {
		logger.Warn("empty digest, skipping notification")
		return
	}

	recipient := profile.Email
	if recipient == "" {
		recipient = profile.Username
	}

	if err := s.notifier.Notify(ctx, recipient, digest); err != nil {
		logger.Error("notification failed", "error", err)
		return
	}

	stats.Notified = true
}
