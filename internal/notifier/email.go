package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"news_digest/internal/domain"
)

const subject = "Your News Summary"

// Config holds SMTP submission settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Email delivers digests over SMTP with STARTTLS. Delivery is at-most-once;
// callers log failures and move on.
type Email struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

func NewEmail(cfg Config, logger *slog.Logger) *Email {
	return &Email{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger.With("component", "notifier"),
	}
}

// Notify sends one email listing each summary's text, one per line.
func (e *Email) Notify(ctx context.Context, recipient string, digest domain.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", formatBody(digest))

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	e.logger.Debug("sent digest email",
		"recipient", recipient,
		"summaries", len(digest),
	)

	return nil
}

func formatBody(digest domain.Digest) string {
	lines := make([]string, len(digest))
	for i, s := range digest {
		lines[i] = s.Text
	}
	return strings.Join(lines, "\n")
}
