package repo

import (
	"context"
	"errors"
	"io/fs"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("repo: not found")
	// ErrDuplicatePublicID indicates an insert hit the proposals.public_id
	// unique constraint. Callers mint a fresh public ID and retry.
	ErrDuplicatePublicID = errors.New("repo: duplicate public id")
	// ErrProposalLimit indicates the tenant already holds the maximum number
	// of proposals allowed by the insert.
	ErrProposalLimit = errors.New("repo: proposal limit reached")
	// ErrTextConflict indicates proposal text was already attached with
	// different content.
	ErrTextConflict = errors.New("repo: proposal text conflict")
)

// Store defines the interface for data persistence. Two implementations
// exist: SQLiteStore (default, single file) and PostgresStore.
type Store interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Users
	GetUser(ctx context.Context, email string) (*User, error)
	UpsertUser(ctx context.Context, profile UserProfile) (*User, error)

	// Automation settings
	GetAutomationSettings(ctx context.Context, email string) (*AutomationSettings, error)
	UpsertAutomationSettings(ctx context.Context, email string, patch SettingsPatch) (*AutomationSettings, error)

	// Proposals
	InsertProposal(ctx context.Context, p Proposal, limit int) (*Proposal, error)
	GetProposalByPublicID(ctx context.Context, publicID string) (*Proposal, error)
	ListProposals(ctx context.Context, userEmail string) ([]Proposal, error)
	CountProposals(ctx context.Context, userEmail string) (int, error)
	AttachProposalText(ctx context.Context, publicID, text string) error

	// Offers
	InsertOffer(ctx context.Context, o Offer) (*Offer, error)
	ListOffers(ctx context.Context, publicID string) ([]Offer, error)
	UpdateOfferStatus(ctx context.Context, offerID, status string) error

	// Analytics
	InsertAnalyticsEvent(ctx context.Context, ev AnalyticsEvent) error
}
