package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"

	"news_digest/internal/config"
	"news_digest/internal/domain"
	"news_digest/internal/queue"
)

// requester enqueues a news request the way the manager-facing API would,
// useful for local runs and smoke tests.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	username := flag.String("user", "", "username to request news for")
	prefs := flag.String("prefs", "", "comma-separated topic preferences (optional, stored preferences used when empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *username == "" {
		logger.Error("missing required -user flag")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pub, err := queue.NewPublisher(queue.Config{
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
	defer pub.Close()

	req := domain.NewsRequest{Username: *username}
	if *prefs != "" {
		for _, p := range strings.Split(*prefs, ",") {
			if p = strings.TrimSpace(p); p != "" {
				req.Preferences = append(req.Preferences, p)
			}
		}
	}

	if err := pub.Publish(context.Background(), req); err != nil {
		logger.Error("failed to publish request", "error", err)
		os.Exit(1)
	}

	logger.Info("news request enqueued",
		"username", req.Username,
		"preferences", len(req.Preferences),
	)
}
