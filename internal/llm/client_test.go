package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zyberfy/internal/repo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateReturnsFirstChoice(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  Dear Jordan, ...  "}},
				{"message": map[string]any{"role": "assistant", "content": "second choice"}},
			},
		})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"}, testLogger(), nil)
	text, err := client.Generate(context.Background(), repo.AutomationSettings{}, repo.Proposal{LeadName: "Jordan"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Dear Jordan, ..." {
		t.Fatalf("expected trimmed first choice, got %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", gotReq.Model)
	}
	if gotReq.Temperature != completionTemperature {
		t.Fatalf("unexpected temperature %v", gotReq.Temperature)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit_error"},
		})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"}, testLogger(), nil)
	_, err := client.Generate(context.Background(), repo.AutomationSettings{}, repo.Proposal{})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"}, testLogger(), nil)
	_, err := client.Generate(context.Background(), repo.AutomationSettings{}, repo.Proposal{})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: 50 * time.Millisecond},
		testLogger(), nil)
	_, err := client.Generate(context.Background(), repo.AutomationSettings{}, repo.Proposal{})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}
