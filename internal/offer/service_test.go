package offer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"zyberfy/internal/analytics"
	"zyberfy/internal/repo"
	"zyberfy/internal/settings"
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

	events := analytics.NewLogger(analytics.NewStoreSink(store), logger, nil)
	settingsSvc := settings.New(store, nil, logger)
	return New(store, settingsSvc, events, nil, logger), store
}

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(v int64) *int64 { return &v }

// seedProposal creates a tenant with the given offer automation and one
// proposal to bid against.
func seedProposal(t *testing.T, store repo.Store, acceptOffers, rejectOffers bool, minimum int64) string {
	t.Helper()
	ctx := context.Background()

	if _, err := store.UpsertUser(ctx, repo.UserProfile{Email: "amira@example.com"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := store.UpsertAutomationSettings(ctx, "amira@example.com", repo.SettingsPatch{
		AcceptOffers: boolPtr(acceptOffers),
		RejectOffers: boolPtr(rejectOffers),
		MinimumOffer: int64Ptr(minimum),
	}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	if _, err := store.InsertProposal(ctx, repo.Proposal{
		PublicID:  "acme-aaaaaa",
		UserEmail: "amira@example.com",
	}, 0); err != nil {
		t.Fatalf("seed proposal: %v", err)
	}
	return "acme-aaaaaa"
}

func TestSubmitAutoAcceptsAboveMinimum(t *testing.T) {
	svc, store := newTestService(t)
	publicID := seedProposal(t, store, true, true, 5000)

	inserted, err := svc.Submit(context.Background(), publicID, 6000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if inserted.Status != repo.OfferAccepted {
		t.Fatalf("expected accepted, got %s", inserted.Status)
	}
}

func TestSubmitAutoAcceptsExactMinimum(t *testing.T) {
	svc, store := newTestService(t)
	publicID := seedProposal(t, store, true, false, 5000)

	inserted, err := svc.Submit(context.Background(), publicID, 5000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if inserted.Status != repo.OfferAccepted {
		t.Fatalf("expected accepted at exact minimum, got %s", inserted.Status)
	}
}

func TestSubmitAutoDeclinesBelowMinimum(t *testing.T) {
	svc, store := newTestService(t)
	publicID := seedProposal(t, store, false, true, 5000)

	inserted, err := svc.Submit(context.Background(), publicID, 4000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if inserted.Status != repo.OfferDeclined {
		t.Fatalf("expected declined, got %s", inserted.Status)
	}
}

func TestSubmitStaysPendingWithoutAutomation(t *testing.T) {
	svc, store := newTestService(t)
	publicID := seedProposal(t, store, false, false, 5000)

	inserted, err := svc.Submit(context.Background(), publicID, 4000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if inserted.Status != repo.OfferPending {
		t.Fatalf("expected pending, got %s", inserted.Status)
	}
}

func TestSubmitBelowMinimumWithOnlyAcceptStaysPending(t *testing.T) {
	svc, store := newTestService(t)
	publicID := seedProposal(t, store, true, false, 5000)

	inserted, err := svc.Submit(context.Background(), publicID, 4000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if inserted.Status != repo.OfferPending {
		t.Fatalf("expected pending, got %s", inserted.Status)
	}
}

func TestSubmitRejectsNonPositiveAmount(t *testing.T) {
	svc, store := newTestService(t)
	publicID := seedProposal(t, store, false, false, 0)

	for _, amount := range []int64{0, -100} {
		if _, err := svc.Submit(context.Background(), publicID, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestSubmitUnknownProposal(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Submit(context.Background(), "ghost-aaaaaa", 1000); !errors.Is(err, ErrUnknownProposal) {
		t.Fatalf("expected ErrUnknownProposal, got %v", err)
	}
}

func TestUpdateStatusIsOneWay(t *testing.T) {
	svc, store := newTestService(t)
	publicID := seedProposal(t, store, false, false, 0)

	inserted, err := svc.Submit(context.Background(), publicID, 1000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), inserted.ID, repo.OfferAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), inserted.ID, repo.OfferDeclined); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus on re-transition, got %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), inserted.ID, "pending"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus for pending target, got %v", err)
	}
}
