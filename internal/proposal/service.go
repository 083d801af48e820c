// Package proposal owns admission control, persistence and retrieval of
// proposals, including the free-plan quota and public-ID assignment.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zyberfy/internal/analytics"
	"zyberfy/internal/metrics"
	"zyberfy/internal/publicid"
	"zyberfy/internal/repo"
	"zyberfy/internal/settings"
)

var (
	// ErrUnknownTenant indicates the tenant email has no user row.
	ErrUnknownTenant = errors.New("proposal: unknown tenant")
	// ErrLimitReached indicates a non-elite tenant already holds the
	// maximum number of proposals.
	ErrLimitReached = errors.New("proposal: limit reached")
	// ErrPublicIDCollision indicates minting kept hitting the unique
	// constraint after all retries.
	ErrPublicIDCollision = errors.New("proposal: public id collision")
	// ErrAlreadyGenerated indicates text was already attached with
	// different content.
	ErrAlreadyGenerated = errors.New("proposal: already generated")
	// ErrUnknownProposal indicates no proposal exists under the public ID.
	ErrUnknownProposal = errors.New("proposal: unknown proposal")
)

const (
	// Non-elite tenants are capped at three proposals.
	freePlanLimit = 3
	// Collision retry budget for public-ID minting.
	mintAttempts = 5
)

// Lead carries an inbound prospect inquiry.
type Lead struct {
	Name     string
	Email    string
	Company  string
	Services string
	Budget   string
	Timeline string
	Message  string
}

// Generator produces proposal text from settings and the lead fields held on
// the proposal row.
type Generator interface {
	Generate(ctx context.Context, settings repo.AutomationSettings, p repo.Proposal) (string, error)
}

// Notifier dispatches the finished proposal to the configured channels.
// Implementations are fire-and-log: they never return an error.
type Notifier interface {
	ProposalReady(ctx context.Context, settings repo.AutomationSettings, p repo.Proposal)
}

// Service implements the proposal lifecycle.
type Service struct {
	store     repo.Store
	settings  *settings.Service
	generator Generator
	notifier  Notifier
	events    *analytics.Logger
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tasks     chan string
}

// New creates the proposal service. notifier may be nil when no delivery
// channels are configured.
func New(store repo.Store, settingsSvc *settings.Service, generator Generator, notifier Notifier,
	events *analytics.Logger, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		settings:  settingsSvc,
		generator: generator,
		notifier:  notifier,
		events:    events,
		metrics:   m,
		logger:    logger.With("component", "proposal"),
		tasks:     make(chan string, 64),
	}
}

// Create admits and persists a proposal for the tenant, mints its public ID
// and enqueues text generation. The public ID is returned synchronously;
// generation completes on the worker.
func (s *Service) Create(ctx context.Context, tenantEmail string, lead Lead) (*repo.Proposal, error) {
	user, err := s.store.GetUser(ctx, tenantEmail)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.count("unknown_tenant")
			return nil, ErrUnknownTenant
		}
		return nil, fmt.Errorf("look up tenant: %w", err)
	}

	limit := freePlanLimit
	if user.PlanStatus == repo.PlanElite {
		limit = 0
	}

	companyName, customSlug := "", ""
	auto, err := s.settings.GetAutomation(ctx, tenantEmail)
	switch {
	case err == nil:
		companyName = auto.CompanyName
		customSlug = auto.CustomSlug
	case errors.Is(err, repo.ErrNotFound):
		// No settings yet; minting falls back to the default base.
	default:
		return nil, fmt.Errorf("read automation settings: %w", err)
	}

	row := repo.Proposal{
		UserEmail:   tenantEmail,
		LeadName:    lead.Name,
		LeadEmail:   lead.Email,
		LeadCompany: lead.Company,
		Services:    lead.Services,
		Budget:      lead.Budget,
		Timeline:    lead.Timeline,
		Message:     lead.Message,
		CustomSlug:  customSlug,
	}

	var inserted *repo.Proposal
	for attempt := 0; attempt < mintAttempts; attempt++ {
		row.PublicID, err = publicid.Mint(companyName, customSlug)
		if err != nil {
			return nil, fmt.Errorf("mint public id: %w", err)
		}
		inserted, err = s.store.InsertProposal(ctx, row, limit)
		if err == nil {
			break
		}
		if errors.Is(err, repo.ErrProposalLimit) {
			s.count("limit_reached")
			return nil, ErrLimitReached
		}
		if errors.Is(err, repo.ErrDuplicatePublicID) {
			continue
		}
		return nil, fmt.Errorf("insert proposal: %w", err)
	}
	if inserted == nil {
		s.count("collision")
		return nil, ErrPublicIDCollision
	}

	s.count("created")
	s.events.Log(ctx, analytics.EventProposalCreated, tenantEmail, map[string]any{
		"public_id":  inserted.PublicID,
		"lead_email": inserted.LeadEmail,
	})

	s.enqueue(inserted.PublicID)
	return inserted, nil
}

// AttachGeneratedText writes the generated text onto the proposal. A second
// call with identical text is a no-op; different text is rejected.
func (s *Service) AttachGeneratedText(ctx context.Context, publicID, text string) error {
	err := s.store.AttachProposalText(ctx, publicID, text)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrUnknownProposal
	case errors.Is(err, repo.ErrTextConflict):
		return ErrAlreadyGenerated
	default:
		return fmt.Errorf("attach generated text: %w", err)
	}
}

// List returns the tenant's proposals, newest first.
func (s *Service) List(ctx context.Context, tenantEmail string) ([]repo.Proposal, error) {
	return s.store.ListProposals(ctx, tenantEmail)
}

// GetByPublicID resolves a proposal from its public ID.
func (s *Service) GetByPublicID(ctx context.Context, publicID string) (*repo.Proposal, error) {
	p, err := s.store.GetProposalByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnknownProposal
		}
		return nil, err
	}
	return p, nil
}

// RetryGeneration re-enqueues a proposal whose text is still empty.
func (s *Service) RetryGeneration(ctx context.Context, publicID string) error {
	p, err := s.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if p.ProposalText != "" {
		return ErrAlreadyGenerated
	}
	s.enqueue(publicID)
	return nil
}

func (s *Service) enqueue(publicID string) {
	select {
	case s.tasks <- publicID:
	default:
		s.logger.Warn("generation queue full, dropping task", "public_id", publicID)
	}
}

// Run consumes generation tasks until ctx is cancelled. Start it once from
// main; Create keeps working without it, generation just stays queued.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case publicID := <-s.tasks:
			s.process(ctx, publicID)
		}
	}
}

// process runs one generation task end to end: generate, attach, notify.
func (s *Service) process(ctx context.Context, publicID string) {
	p, err := s.store.GetProposalByPublicID(ctx, publicID)
	if err != nil {
		s.logger.Error("generation task lookup failed", "public_id", publicID, "error", err)
		return
	}
	if p.ProposalText != "" {
		return
	}

	var auto repo.AutomationSettings
	if got, err := s.settings.GetAutomation(ctx, p.UserEmail); err == nil {
		auto = *got
	} else if !errors.Is(err, repo.ErrNotFound) {
		s.logger.Error("generation settings lookup failed", "public_id", publicID, "error", err)
		return
	}

	text, err := s.generator.Generate(ctx, auto, *p)
	if err != nil {
		s.logger.Warn("proposal generation failed", "public_id", publicID, "error", err)
		s.events.Log(ctx, analytics.EventProposalGenerationFailed, p.UserEmail, map[string]any{
			"public_id": publicID,
			"reason":    err.Error(),
		})
		return
	}

	if err := s.AttachGeneratedText(ctx, publicID, text); err != nil {
		s.logger.Error("attach generated text failed", "public_id", publicID, "error", err)
		return
	}
	p.ProposalText = text

	s.events.Log(ctx, analytics.EventProposalGenerated, p.UserEmail, map[string]any{
		"public_id": publicID,
	})

	if s.notifier != nil {
		s.notifier.ProposalReady(ctx, auto, *p)
	}
}

func (s *Service) count(status string) {
	if s.metrics != nil {
		s.metrics.ProposalsCreated.WithLabelValues(status).Inc()
	}
}
