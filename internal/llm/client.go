package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"zyberfy/internal/metrics"
	"zyberfy/internal/repo"
)

var (
	// ErrGenerationFailed indicates the completion provider rejected or
	// failed the request. The underlying reason is preserved in the chain.
	ErrGenerationFailed = errors.New("llm: generation failed")
	// ErrUpstreamTimeout indicates the provider did not answer within the
	// configured deadline. The proposal keeps its empty text for retry.
	ErrUpstreamTimeout = errors.New("llm: upstream timeout")
)

const completionTemperature = 0.8

// Client calls the chat-completions endpoint of the LLM provider.
type Client struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
	metrics *metrics.Metrics
}

// Config holds completion client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// New creates a new completion client.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:  logger.With("component", "llm"),
		baseURL: base,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate builds the prompt for the proposal and returns the first message
// of the completion.
func (c *Client) Generate(ctx context.Context, settings repo.AutomationSettings, p repo.Proposal) (string, error) {
	prompt := BuildPrompt(settings, p)

	start := time.Now()
	text, err := c.complete(ctx, prompt)
	elapsed := time.Since(start).Seconds()

	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrUpstreamTimeout) {
			status = "timeout"
		}
	}
	if c.metrics != nil {
		c.metrics.GenerationRuns.WithLabelValues(status).Inc()
		c.metrics.GenerationLatency.WithLabelValues(status).Observe(elapsed)
	}
	return text, err
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: completionTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrGenerationFailed, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response (status %d): %v", ErrGenerationFailed, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		reason := strings.TrimSpace(string(body))
		if parsed.Error != nil {
			reason = parsed.Error.Message
		}
		c.logger.Warn("completion request rejected", "status", resp.StatusCode, "reason", reason)
		return "", fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, reason)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrGenerationFailed)
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	return text, nil
}
