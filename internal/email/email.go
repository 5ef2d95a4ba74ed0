package email

import (
	"context"
	"log/slog"
	"net/http"
)

// Email represents an email message to be sent.
type Email struct {
	To          []string          // Recipient email addresses
	From        string            // Sender email address
	Subject     string            // Email subject
	TextBody    string            // Plain text body
	HTMLBody    string            // HTML body (optional)
	Attachments []Attachment      // File attachments (optional)
	Headers     map[string]string // Custom headers (optional)
}

// Attachment represents a file attachment for an email.
type Attachment struct {
	Filename    string // Name of the file
	ContentType string // MIME type
	Content     []byte // File content
}

// Sender defines the interface for sending emails.
type Sender interface {
	// Send sends an email message and returns the provider's message ID
	// when one is available.
	Send(ctx context.Context, email *Email) (string, error)
}

// Config selects and configures the outbound provider.
type Config struct {
	PostmarkServerToken string
	PostmarkBaseURL     string
	HTTPClient          *http.Client

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	FromAddress string
	FromName    string
}

// NewSender picks Postmark when a server token is configured, then SMTP,
// and falls back to a sender that only logs.
func NewSender(cfg Config, logger *slog.Logger) Sender {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case cfg.PostmarkServerToken != "":
		logger.Info("email: using postmark")
		opts := []PostmarkOption{WithPostmarkLogger(logger)}
		if cfg.PostmarkBaseURL != "" {
			opts = append(opts, WithPostmarkBaseURL(cfg.PostmarkBaseURL))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, WithPostmarkHTTPClient(cfg.HTTPClient))
		}
		return NewPostmarkSender(cfg.PostmarkServerToken, opts...)
	case cfg.SMTPHost != "":
		logger.Info("email: using smtp", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.FromAddress,
			FromName: cfg.FromName,
		}, logger)
	default:
		logger.Warn("email: no provider configured, messages will only be logged")
		return NewLogSender(logger)
	}
}
