package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioClient posts to the SMS provider's messages resource.
type TwilioClient struct {
	logger     *slog.Logger
	baseURL    string
	accountSID string
	authToken  string
	from       string
	http       *http.Client
}

// TwilioConfig holds SMS gateway configuration.
type TwilioConfig struct {
	BaseURL     string
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	Timeout     time.Duration
}

// NewTwilio creates an SMS client, or nil when credentials are missing.
func NewTwilio(cfg TwilioConfig, logger *slog.Logger) *TwilioClient {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.twilio.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TwilioClient{
		logger:     logger.With("component", "twilio"),
		baseURL:    base,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.PhoneNumber,
		http:       &http.Client{Timeout: timeout},
	}
}

// SendSMS delivers one text message.
func (c *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send sms: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
