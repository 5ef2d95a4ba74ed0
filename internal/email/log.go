package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender for environments without a provider.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, email *Email) (string, error) {
	if len(email.To) == 0 {
		return "", ErrInvalidToAddress
	}
	id := fmt.Sprintf("log-%d", time.Now().UnixNano())
	s.logger.InfoContext(ctx, "email: not delivered, no provider configured",
		"message_id", id,
		"to", email.To,
		"subject", email.Subject,
		"attachments", len(email.Attachments),
	)
	return id, nil
}
