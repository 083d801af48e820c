// Package offer accepts counter-offers submitted against a proposal's
// public ID.
package offer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zyberfy/internal/analytics"
	"zyberfy/internal/metrics"
	"zyberfy/internal/repo"
	"zyberfy/internal/settings"
)

var (
	// ErrUnknownProposal indicates the public ID matches no proposal.
	ErrUnknownProposal = errors.New("offer: unknown proposal")
	// ErrInvalidAmount indicates a non-positive offer amount.
	ErrInvalidAmount = errors.New("offer: invalid amount")
	// ErrInvalidStatus indicates a status outside accepted/declined, or a
	// transition away from a non-pending offer.
	ErrInvalidStatus = errors.New("offer: invalid status transition")
)

// Service implements offer submission and status transitions.
type Service struct {
	store    repo.Store
	settings *settings.Service
	events   *analytics.Logger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates the offer service.
func New(store repo.Store, settingsSvc *settings.Service, events *analytics.Logger,
	m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		settings: settingsSvc,
		events:   events,
		metrics:  m,
		logger:   logger.With("component", "offer"),
	}
}

// Submit records a counter-offer. The initial status is routed off the
// tenant's automation settings: auto-accept when accept_offers is on and the
// amount clears minimum_offer, auto-decline when reject_offers is on and it
// does not, pending otherwise.
func (s *Service) Submit(ctx context.Context, publicID string, amount int64) (*repo.Offer, error) {
	if amount < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	p, err := s.store.GetProposalByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnknownProposal
		}
		return nil, fmt.Errorf("look up proposal: %w", err)
	}

	status := repo.OfferPending
	auto, err := s.settings.GetAutomation(ctx, p.UserEmail)
	switch {
	case err == nil:
		if auto.AcceptOffers && amount >= auto.MinimumOffer {
			status = repo.OfferAccepted
		} else if auto.RejectOffers && amount < auto.MinimumOffer {
			status = repo.OfferDeclined
		}
	case errors.Is(err, repo.ErrNotFound):
		// No settings, no routing.
	default:
		return nil, fmt.Errorf("read automation settings: %w", err)
	}

	inserted, err := s.store.InsertOffer(ctx, repo.Offer{
		PublicID:    publicID,
		OfferAmount: amount,
		Status:      status,
	})
	if err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}

	if s.metrics != nil {
		s.metrics.OffersSubmitted.WithLabelValues(status).Inc()
	}
	s.events.Log(ctx, analytics.EventOfferSubmitted, p.UserEmail, map[string]any{
		"public_id": publicID,
		"amount":    amount,
		"status":    status,
	})
	return inserted, nil
}

// List returns all offers on the proposal, oldest first.
func (s *Service) List(ctx context.Context, publicID string) ([]repo.Offer, error) {
	return s.store.ListOffers(ctx, publicID)
}

// UpdateStatus moves a pending offer to accepted or declined. Transitions
// are one-way.
func (s *Service) UpdateStatus(ctx context.Context, offerID, status string) error {
	if status != repo.OfferAccepted && status != repo.OfferDeclined {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	err := s.store.UpdateOfferStatus(ctx, offerID, status)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvalidStatus
	}
	return err
}
