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

// OneSignalClient posts to the push provider's notifications resource.
type OneSignalClient struct {
	logger  *slog.Logger
	baseURL string
	appID   string
	apiKey  string
	http    *http.Client
}

// OneSignalConfig holds push gateway configuration.
type OneSignalConfig struct {
	BaseURL    string
	AppID      string
	RESTAPIKey string
	Timeout    time.Duration
}

// NewOneSignal creates a push client, or nil when credentials are missing.
func NewOneSignal(cfg OneSignalConfig, logger *slog.Logger) *OneSignalClient {
	if cfg.AppID == "" || cfg.RESTAPIKey == "" {
		return nil
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://onesignal.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OneSignalClient{
		logger:  logger.With("component", "onesignal"),
		baseURL: base,
		appID:   cfg.AppID,
		apiKey:  cfg.RESTAPIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type oneSignalPayload struct {
	AppID           string            `json:"app_id"`
	ExternalUserIDs []string          `json:"include_external_user_ids"`
	Headings        map[string]string `json:"headings"`
	Contents        map[string]string `json:"contents"`
}

// SendPush delivers a push notification addressed by external user ID
// (tenant email).
func (c *OneSignalClient) SendPush(ctx context.Context, externalUserID, title, message string) error {
	data, err := json.Marshal(oneSignalPayload{
		AppID:           c.appID,
		ExternalUserIDs: []string{externalUserID},
		Headings:        map[string]string{"en": title},
		Contents:        map[string]string{"en": message},
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send push: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
