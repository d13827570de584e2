package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"news_digest/internal/cache"
	"news_digest/internal/config"
	"news_digest/internal/notifier"
	"news_digest/internal/queue"
	"news_digest/internal/service"
	"news_digest/internal/source/newsdata"
	"news_digest/internal/storage/postgres"
	"news_digest/internal/summarizer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	redisClient, err := cache.Connect(ctx, cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to redis")

	consumer, err := queue.NewConsumer(queue.Config{
		URL:            cfg.RabbitMQ.URL,
		Exchange:       cfg.RabbitMQ.Exchange,
		RoutingKey:     cfg.RabbitMQ.RoutingKey,
		QueueName:      cfg.RabbitMQ.QueueName,
		DeadLetterName: cfg.RabbitMQ.DeadLetterName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	// Initialize pipeline collaborators
	prefStore := postgres.NewPreferenceStore(db)
	newsCache := cache.NewNewsCache(redisClient, logger)

	newsSource := newsdata.New(newsdata.Config{
		BaseURL:        cfg.NewsAPI.BaseURL,
		APIKey:         cfg.NewsAPI.APIKey,
		Language:       cfg.NewsAPI.Language,
		Timeout:        cfg.NewsAPI.Timeout,
		MaxAttempts:    cfg.NewsAPI.Retry.MaxAttempts,
		InitialBackoff: cfg.NewsAPI.Retry.InitialBackoff,
		MaxBackoff:     cfg.NewsAPI.Retry.MaxBackoff,
	}, logger)

	aiSummarizer := summarizer.New(summarizer.Config{
		BaseURL:   cfg.AI.BaseURL,
		APIKey:    cfg.AI.APIKey,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.Timeout,
	}, logger)

	emailNotifier := notifier.NewEmail(notifier.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)

	digestService := service.NewDigestService(
		prefStore,
		newsCache,
		newsSource,
		aiSummarizer,
		emailNotifier,
		logger,
		cfg.Pipeline,
	)

	consumer.Register(cfg.RabbitMQ.RoutingKey, digestService.Handle)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting news digester",
		"queue", cfg.RabbitMQ.QueueName,
		"cache_ttl", cfg.Pipeline.CacheTTL,
		"max_concurrent_summaries", cfg.Pipeline.MaxConcurrentSummaries,
	)

	if err := consumer.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
