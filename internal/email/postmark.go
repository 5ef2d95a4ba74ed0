package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	defaultPostmarkBaseURL = "https://api.postmarkapp.com"
	postmarkTimeout        = 30 * time.Second
	// Postmark error responses are small; anything larger is not worth
	// keeping on an invoice.
	maxPostmarkResponse = 64 << 10
)

// PostmarkSender sends through the Postmark single-message API.
type PostmarkSender struct {
	token   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

type PostmarkOption func(*PostmarkSender)

func WithPostmarkBaseURL(u string) PostmarkOption {
	return func(p *PostmarkSender) { p.baseURL = strings.TrimRight(u, "/") }
}

func WithPostmarkHTTPClient(c *http.Client) PostmarkOption {
	return func(p *PostmarkSender) { p.client = c }
}

func WithPostmarkLogger(l *slog.Logger) PostmarkOption {
	return func(p *PostmarkSender) { p.logger = l }
}

func NewPostmarkSender(token string, opts ...PostmarkOption) *PostmarkSender {
	p := &PostmarkSender{
		token:   token,
		baseURL: defaultPostmarkBaseURL,
		client:  &http.Client{Timeout: postmarkTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("provider", "postmark")
	return p
}

// Wire format of POST /email.
type postmarkEmail struct {
	From        string           `json:"From"`
	To          string           `json:"To"`
	Subject     string           `json:"Subject"`
	HtmlBody    string           `json:"HtmlBody,omitempty"`
	TextBody    string           `json:"TextBody,omitempty"`
	Headers     []postmarkHeader `json:"Headers,omitempty"`
	Attachments []postmarkAttach `json:"Attachments,omitempty"`
}

type postmarkHeader struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type postmarkAttach struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"`
	ContentType string `json:"ContentType"`
}

type postmarkResult struct {
	MessageID string `json:"MessageID"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

func toPostmark(e *Email) postmarkEmail {
	out := postmarkEmail{
		From:     e.From,
		To:       strings.Join(e.To, ","),
		Subject:  e.Subject,
		HtmlBody: e.HTMLBody,
		TextBody: e.TextBody,
	}
	for _, name := range slices.Sorted(maps.Keys(e.Headers)) {
		out.Headers = append(out.Headers, postmarkHeader{Name: name, Value: e.Headers[name]})
	}
	for _, a := range e.Attachments {
		out.Attachments = append(out.Attachments, postmarkAttach{
			Name:        a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	return out
}

// Send posts one message. A non-2xx status, an unparseable body, or a
// non-zero ErrorCode all come back as *EmailError carrying Postmark's text.
func (p *PostmarkSender) Send(ctx context.Context, email *Email) (string, error) {
	switch {
	case len(email.To) == 0:
		return "", ErrInvalidToAddress
	case email.From == "":
		return "", ErrInvalidFromAddress
	}

	payload, err := json.Marshal(toPostmark(email))
	if err != nil {
		return "", fmt.Errorf("postmark: encode message: %w", err)
	}

	status, body, err := p.post(ctx, "/email", payload)
	if err != nil {
		return "", ProviderError("postmark", status, "", err)
	}
	if status/100 != 2 {
		p.logger.WarnContext(ctx, "send rejected", "status", status, "to", email.To)
		return "", ProviderError("postmark", status, string(body), nil)
	}

	var res postmarkResult
	if err := json.Unmarshal(body, &res); err != nil {
		return "", ProviderError("postmark", status, string(body), err)
	}
	if res.ErrorCode != 0 {
		p.logger.WarnContext(ctx, "send rejected", "postmark_code", res.ErrorCode, "to", email.To)
		return "", ProviderError("postmark", status, res.Message, nil)
	}

	p.logger.InfoContext(ctx, "email sent", "to", email.To, "message_id", res.MessageID)
	return res.MessageID, nil
}

func (p *PostmarkSender) post(ctx context.Context, path string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPostmarkResponse))
	return resp.StatusCode, body, err
}
