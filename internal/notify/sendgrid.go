package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SendGridClient calls the transactional-email provider's send endpoint.
type SendGridClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
}

// SendGridConfig holds email gateway configuration.
type SendGridConfig struct {
	BaseURL     string
	APIKey      string
	SenderEmail string
	Timeout     time.Duration
}

// NewSendGrid creates an email client, or nil when no API key is configured.
func NewSendGrid(cfg SendGridConfig, logger *slog.Logger) *SendGridClient {
	if cfg.APIKey == "" {
		return nil
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.sendgrid.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SendGridClient{
		logger:  logger.With("component", "sendgrid"),
		baseURL: base,
		apiKey:  cfg.APIKey,
		from:    cfg.SenderEmail,
		http:    &http.Client{Timeout: timeout},
	}
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridPayload struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendGridAddress  `json:"from"`
	ReplyTo *sendGridAddress `json:"reply_to,omitempty"`
	Subject string           `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

// SendEmail delivers one plain-text email.
func (c *SendGridClient) SendEmail(ctx context.Context, to, replyTo, subject, body string) error {
	payload := sendGridPayload{
		From:    sendGridAddress{Email: c.from},
		Subject: subject,
	}
	payload.Personalizations = []struct {
		To []sendGridAddress `json:"to"`
	}{{To: []sendGridAddress{{Email: to}}}}
	if replyTo != "" {
		payload.ReplyTo = &sendGridAddress{Email: replyTo}
	}
	payload.Content = []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{{Type: "text/plain", Value: body}}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
