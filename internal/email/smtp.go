package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

const smtpTimeout = 30 * time.Second

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // empty for relays that accept unauthenticated mail
	Password string
	From     string
	FromName string
}

// SMTPSender delivers through an SMTP relay, opening one connection per
// message.
type SMTPSender struct {
	config SMTPConfig
	logger *slog.Logger
}

func NewSMTPSender(config SMTPConfig, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{config: config, logger: logger.With("provider", "smtp")}
}

// Send returns the Message-ID header it generated, since relays do not
// report an ID of their own.
func (s *SMTPSender) Send(ctx context.Context, email *Email) (string, error) {
	msg, err := s.buildMessage(email)
	if err != nil {
		return "", err
	}

	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return "", ProviderError("smtp", 0, "", fmt.Errorf("create client: %w", err))
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "send failed", "error", err, "to", email.To)
		return "", ProviderError("smtp", 0, err.Error(), err)
	}

	id := msg.GetMessageID()
	s.logger.InfoContext(ctx, "email sent", "to", email.To, "subject", email.Subject, "message_id", id)
	return id, nil
}

func (s *SMTPSender) buildMessage(email *Email) (*mail.Msg, error) {
	if len(email.To) == 0 {
		return nil, ErrInvalidToAddress
	}

	msg := mail.NewMsg()

	var err error
	switch {
	case email.From != "":
		err = msg.From(email.From)
	case s.config.FromName != "":
		err = msg.FromFormat(s.config.FromName, s.config.From)
	default:
		err = msg.From(s.config.From)
	}
	if err != nil {
		return nil, ErrInvalidFromAddress
	}
	if err := msg.To(email.To...); err != nil {
		return nil, ErrInvalidToAddress
	}

	msg.Subject(email.Subject)
	msg.SetMessageID()
	msg.SetDate()

	if email.TextBody != "" || email.HTMLBody == "" {
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
		if email.HTMLBody != "" {
			msg.AddAlternativeString(mail.TypeTextHTML, email.HTMLBody)
		}
	} else {
		msg.SetBodyString(mail.TypeTextHTML, email.HTMLBody)
	}

	for key, value := range email.Headers {
		msg.SetGenHeader(mail.Header(key), value)
	}
	for _, att := range email.Attachments {
		err := msg.AttachReader(att.Filename, bytes.NewReader(att.Content),
			mail.WithFileContentType(mail.ContentType(att.ContentType)))
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", att.Filename, err)
		}
	}
	return msg, nil
}

// clientOptions picks TLS from the port: implicit on 465, STARTTLS required
// on 587, opportunistic elsewhere (25, or Mailpit on 1025).
func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTimeout(smtpTimeout),
	}
	switch s.config.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}
	return opts
}
