package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"news_digest/internal/domain"
)

type PreferenceStore interface {
	GetProfile(ctx context.Context, username string) (*domain.UserProfile, error)
}

type NewsCache interface {
	Get(ctx context.Context, username string) (*domain.CachedNews, error)
	Set(ctx context.Context, username string, articles []domain.Article, ttl time.Duration) error
}

type NewsSource interface {
	BuildQuery(preferences []string) string
	Fetch(ctx context.Context, query string) ([]domain.Article, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, category, description string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipient string, digest domain.Digest) error
}
