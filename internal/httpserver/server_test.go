package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"zyberfy/internal/analytics"
	"zyberfy/internal/offer"
	"zyberfy/internal/proposal"
	"zyberfy/internal/repo"
	"zyberfy/internal/settings"
	"zyberfy/migrations"
)

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, repo.AutomationSettings, repo.Proposal) (string, error) {
	return "Generated text", nil
}

func newTestHandler(t *testing.T) (http.Handler, repo.Store) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repo.NewSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	events := analytics.NewLogger(analytics.NewStoreSink(store), logger, nil)
	settingsSvc := settings.New(store, nil, logger)
	proposalSvc := proposal.New(store, settingsSvc, stubGenerator{}, nil, events, nil, logger)
	offerSvc := offer.New(store, settingsSvc, events, nil, logger)

	srv := New(":0", logger, nil, Dependencies{
		Proposals: proposalSvc,
		Offers:    offerSvc,
		Settings:  settingsSvc,
		Events:    events,
	})
	return srv.httpServer.Handler, store
}

func seedUser(t *testing.T, store repo.Store, email, plan string) {
	t.Helper()
	_, err := store.UpsertUser(context.Background(), repo.UserProfile{Email: email, PlanStatus: &plan})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateProposal(t *testing.T) {
	handler, store := newTestHandler(t)
	seedUser(t, store, "amira@example.com", repo.PlanFree)

	rec := doJSON(t, handler, http.MethodPost, "/api/proposals", map[string]any{
		"email": "amira@example.com",
		"lead": map[string]any{
			"name":    "Jordan",
			"email":   "jordan@example.com",
			"message": "We need a brand refresh.",
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pid, _ := got["public_id"].(string); pid == "" {
		t.Fatal("missing public_id in response")
	}
	if got["lead_name"] != "Jordan" {
		t.Fatalf("unexpected lead_name %v", got["lead_name"])
	}
}

func TestCreateProposalUnknownTenant(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/proposals", map[string]any{
		"email": "ghost@example.com",
		"lead":  map[string]any{"name": "Jordan"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateProposalQuotaExceeded(t *testing.T) {
	handler, store := newTestHandler(t)
	seedUser(t, store, "amira@example.com", repo.PlanFree)

	for i := 0; i < 3; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/proposals", map[string]any{
			"email": "amira@example.com",
			"lead":  map[string]any{"name": fmt.Sprintf("Lead %d", i)},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d: expected 201, got %d", i, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/proposals", map[string]any{
		"email": "amira@example.com",
		"lead":  map[string]any{"name": "One too many"},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGetProposalLogsView(t *testing.T) {
	handler, store := newTestHandler(t)
	seedUser(t, store, "amira@example.com", repo.PlanFree)

	created := doJSON(t, handler, http.MethodPost, "/api/proposals", map[string]any{
		"email": "amira@example.com",
		"lead":  map[string]any{"name": "Jordan"},
	})
	var proposalBody map[string]any
	if err := json.Unmarshal(created.Body.Bytes(), &proposalBody); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	publicID, _ := proposalBody["public_id"].(string)

	rec := doJSON(t, handler, http.MethodGet, "/proposal/"+publicID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/proposal/ghost-aaaaaa", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown public id, got %d", rec.Code)
	}
}

func TestSubmitOffer(t *testing.T) {
	handler, store := newTestHandler(t)
	seedUser(t, store, "amira@example.com", repo.PlanFree)

	created := doJSON(t, handler, http.MethodPost, "/api/proposals", map[string]any{
		"email": "amira@example.com",
		"lead":  map[string]any{"name": "Jordan"},
	})
	var proposalBody map[string]any
	if err := json.Unmarshal(created.Body.Bytes(), &proposalBody); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	publicID, _ := proposalBody["public_id"].(string)

	rec := doJSON(t, handler, http.MethodPost, "/proposal/"+publicID+"/offers", map[string]any{"amount": 5000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/proposal/"+publicID+"/offers", map[string]any{"amount": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/proposal/"+publicID+"/offers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing offers, got %d", rec.Code)
	}
}

func TestPutSettingsValidation(t *testing.T) {
	handler, store := newTestHandler(t)
	seedUser(t, store, "amira@example.com", repo.PlanFree)

	rec := doJSON(t, handler, http.MethodPut, "/api/settings", map[string]any{
		"email":       "amira@example.com",
		"custom_slug": "Not A Slug",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad slug, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/settings", map[string]any{
		"email":    "amira@example.com",
		"timezone": "Mars/Olympus_Mons",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timezone, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/settings", map[string]any{
		"email":       "amira@example.com",
		"tone":        "friendly",
		"custom_slug": "acme-studio",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/settings?email=amira@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading settings, got %d", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if got["tone"] != "friendly" {
		t.Fatalf("unexpected tone %v", got["tone"])
	}
}

func TestPutUserValidatesPlan(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/users", map[string]any{
		"email":       "amira@example.com",
		"plan_status": "platinum",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown plan, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/users", map[string]any{
		"email":       "amira@example.com",
		"plan_status": "elite",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
