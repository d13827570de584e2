package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"news_digest/internal/domain"
)

const newsKeyPrefix = "news:"

// NewsCache stores the last fetched raw news payload per username with a TTL.
// Writers for the same username race; last write wins.
type NewsCache struct {
	client *redis.Client
	logger *slog.Logger
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect dials redis and verifies the connection with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func NewNewsCache(client *redis.Client, logger *slog.Logger) *NewsCache {
	return &NewsCache{
		client: client,
		logger: logger,
	}
}

// Get returns the cached payload for username, or nil on a miss.
func (c *NewsCache) Get(ctx context.Context, username string) (*domain.CachedNews, error) {
	val, err := c.client.Get(ctx, newsKeyPrefix+username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached news: %w", err)
	}

	var cached domain.CachedNews
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, fmt.Errorf("unmarshal cached news: %w", err)
	}

	return &cached, nil
}

// Set stores the payload under the username key with the given TTL.
func (c *NewsCache) Set(ctx context.Context, username string, articles []domain.Article, ttl time.Duration) error {
	cached := domain.CachedNews{
		Username: username,
		Articles: articles,
		CachedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal cached news: %w", err)
	}

	if err := c.client.Set(ctx, newsKeyPrefix+username, data, ttl).Err(); err != nil {
		return fmt.Errorf("set cached news: %w", err)
	}

	c.logger.Debug("cached news payload",
		"username", username,
		"articles", len(articles),
		"ttl", ttl,
	)

	return nil
}
