package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"zyberfy/internal/repo"
	"zyberfy/migrations"
)

func newTestService(t *testing.T) (*Service, repo.Store) {
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

	if _, err := store.UpsertUser(ctx, repo.UserProfile{Email: "amira@example.com"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return New(store, nil, logger), store
}

func strPtr(s string) *string { return &s }

func TestUpsertAutomationRejectsBadSlug(t *testing.T) {
	svc, _ := newTestService(t)

	for _, slug := range []string{"Acme", "acme studio", "-acme", "acme-", "acme--studio", "café"} {
		_, err := svc.UpsertAutomation(context.Background(), "amira@example.com", repo.SettingsPatch{
			CustomSlug: strPtr(slug),
		})
		if !errors.Is(err, ErrInvalidSlug) {
			t.Fatalf("slug %q: expected ErrInvalidSlug, got %v", slug, err)
		}
	}
}

func TestUpsertAutomationAcceptsValidSlug(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.UpsertAutomation(context.Background(), "amira@example.com", repo.SettingsPatch{
		CustomSlug: strPtr("acme-studio-2"),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got.CustomSlug != "acme-studio-2" {
		t.Fatalf("slug not stored, got %q", got.CustomSlug)
	}
}

func TestUpsertAutomationRejectsBadTimezone(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpsertAutomation(context.Background(), "amira@example.com", repo.SettingsPatch{
		Timezone: strPtr("Mars/Olympus_Mons"),
	})
	if !errors.Is(err, ErrInvalidTimezone) {
		t.Fatalf("expected ErrInvalidTimezone, got %v", err)
	}
}

func TestUpsertAutomationPreservesAbsentKeys(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.UpsertAutomation(ctx, "amira@example.com", repo.SettingsPatch{
		Tone:    strPtr("playful"),
		Subject: strPtr("Hello"),
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	got, err := svc.UpsertAutomation(ctx, "amira@example.com", repo.SettingsPatch{
		Subject: strPtr("Your proposal"),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if got.Tone != "playful" {
		t.Fatalf("tone lost, got %q", got.Tone)
	}
	if got.Subject != "Your proposal" {
		t.Fatalf("subject not updated, got %q", got.Subject)
	}
}

func TestGetAutomationUnknownTenant(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetAutomation(context.Background(), "ghost@example.com"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected repo.ErrNotFound, got %v", err)
	}
}
