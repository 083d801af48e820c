package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -- Users --

func (s *SQLiteStore) GetUser(ctx context.Context, email string) (*User, error) {
	const q = `
SELECT email, password_hash, first_name, plan_status, external_customer_id, created_at, updated_at
FROM users
WHERE email = ?
LIMIT 1;
`
	row := s.db.QueryRowContext(ctx, q, email)
	var u User
	if err := row.Scan(&u.Email, &u.PasswordHash, &u.FirstName, &u.PlanStatus, &u.ExternalCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, profile UserProfile) (*User, error) {
	// Patch fields are bound twice: the VALUES side applies insert defaults,
	// the DO UPDATE side binds the raw pointers so nil preserves the stored
	// value.
	const q = `
INSERT INTO users (email, password_hash, first_name, plan_status, external_customer_id, updated_at)
VALUES (?, COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, 'free'), ?, CURRENT_TIMESTAMP)
ON CONFLICT (email) DO UPDATE SET
    password_hash = COALESCE(?, users.password_hash),
    first_name = COALESCE(?, users.first_name),
    plan_status = COALESCE(?, users.plan_status),
    external_customer_id = COALESCE(?, users.external_customer_id),
    updated_at = CURRENT_TIMESTAMP
RETURNING email, password_hash, first_name, plan_status, external_customer_id, created_at, updated_at;
`
	row := s.db.QueryRowContext(ctx, q,
		profile.Email,
		profile.PasswordHash,
		profile.FirstName,
		profile.PlanStatus,
		profile.ExternalCustomerID,
		profile.PasswordHash,
		profile.FirstName,
		profile.PlanStatus,
		profile.ExternalCustomerID,
	)

	var u User
	if err := row.Scan(&u.Email, &u.PasswordHash, &u.FirstName, &u.PlanStatus, &u.ExternalCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// -- Automation settings --

const settingsColumns = `email, tone, ai_training, length, full_auto, accept_offers, reject_offers, minimum_offer,
subject, greeting, footer, first_name, company_name, position, website, phone, reply_to, timezone, logo, custom_slug, updated_at`

func scanSettings(row interface{ Scan(...any) error }) (*AutomationSettings, error) {
	var a AutomationSettings
	err := row.Scan(&a.Email, &a.Tone, &a.AITraining, &a.Length, &a.FullAuto, &a.AcceptOffers, &a.RejectOffers,
		&a.MinimumOffer, &a.Subject, &a.Greeting, &a.Footer, &a.FirstName, &a.CompanyName, &a.Position,
		&a.Website, &a.Phone, &a.ReplyTo, &a.Timezone, &a.Logo, &a.CustomSlug, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteStore) GetAutomationSettings(ctx context.Context, email string) (*AutomationSettings, error) {
	q := `SELECT ` + settingsColumns + ` FROM automation_settings WHERE email = ? LIMIT 1;`
	settings, err := scanSettings(s.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get automation settings: %w", err)
	}
	return settings, nil
}

func (s *SQLiteStore) UpsertAutomationSettings(ctx context.Context, email string, patch SettingsPatch) (*AutomationSettings, error) {
	q := `
INSERT INTO automation_settings (email, tone, ai_training, length, full_auto, accept_offers, reject_offers, minimum_offer,
    subject, greeting, footer, first_name, company_name, position, website, phone, reply_to, timezone, logo, custom_slug, updated_at)
VALUES (?, COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, 'concise'), COALESCE(?, 0), COALESCE(?, 0), COALESCE(?, 0), COALESCE(?, 0),
    COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''),
    COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''), CURRENT_TIMESTAMP)
ON CONFLICT (email) DO UPDATE SET
    tone = COALESCE(?, automation_settings.tone),
    ai_training = COALESCE(?, automation_settings.ai_training),
    length = COALESCE(?, automation_settings.length),
    full_auto = COALESCE(?, automation_settings.full_auto),
    accept_offers = COALESCE(?, automation_settings.accept_offers),
    reject_offers = COALESCE(?, automation_settings.reject_offers),
    minimum_offer = COALESCE(?, automation_settings.minimum_offer),
    subject = COALESCE(?, automation_settings.subject),
    greeting = COALESCE(?, automation_settings.greeting),
    footer = COALESCE(?, automation_settings.footer),
    first_name = COALESCE(?, automation_settings.first_name),
    company_name = COALESCE(?, automation_settings.company_name),
    position = COALESCE(?, automation_settings.position),
    website = COALESCE(?, automation_settings.website),
    phone = COALESCE(?, automation_settings.phone),
    reply_to = COALESCE(?, automation_settings.reply_to),
    timezone = COALESCE(?, automation_settings.timezone),
    logo = COALESCE(?, automation_settings.logo),
    custom_slug = COALESCE(?, automation_settings.custom_slug),
    updated_at = CURRENT_TIMESTAMP
RETURNING ` + settingsColumns + `;`

	// Patch fields bound twice, same reason as UpsertUser.
	row := s.db.QueryRowContext(ctx, q,
		email,
		patch.Tone, patch.AITraining, patch.Length, patch.FullAuto, patch.AcceptOffers, patch.RejectOffers,
		patch.MinimumOffer, patch.Subject, patch.Greeting, patch.Footer, patch.FirstName, patch.CompanyName,
		patch.Position, patch.Website, patch.Phone, patch.ReplyTo, patch.Timezone, patch.Logo, patch.CustomSlug,
		patch.Tone, patch.AITraining, patch.Length, patch.FullAuto, patch.AcceptOffers, patch.RejectOffers,
		patch.MinimumOffer, patch.Subject, patch.Greeting, patch.Footer, patch.FirstName, patch.CompanyName,
		patch.Position, patch.Website, patch.Phone, patch.ReplyTo, patch.Timezone, patch.Logo, patch.CustomSlug,
	)
	settings, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("upsert automation settings: %w", err)
	}
	return settings, nil
}

// -- Proposals --

const proposalColumns = `id, public_id, user_email, lead_name, lead_email, lead_company, services, budget, timeline,
message, proposal_text, custom_slug, is_default, created_at`

func scanProposal(row interface{ Scan(...any) error }) (*Proposal, error) {
	var p Proposal
	err := row.Scan(&p.ID, &p.PublicID, &p.UserEmail, &p.LeadName, &p.LeadEmail, &p.LeadCompany, &p.Services,
		&p.Budget, &p.Timeline, &p.Message, &p.ProposalText, &p.CustomSlug, &p.IsDefault, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertProposal persists a proposal. When limit > 0 the tenant's live
// proposal count is checked inside the same write transaction, closing the
// check-then-insert window. Default (demo) proposals never count.
func (s *SQLiteStore) InsertProposal(ctx context.Context, p Proposal, limit int) (*Proposal, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	// BEGIN IMMEDIATE takes the write lock up front so the count below
	// cannot go stale before the insert.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, fmt.Errorf("begin immediate: %w", err)
	}
	rollback := func() {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
	}

	if limit > 0 {
		var count int
		const countQ = `SELECT COUNT(*) FROM proposals WHERE user_email = ? AND is_default = 0;`
		if err := conn.QueryRowContext(ctx, countQ, p.UserEmail).Scan(&count); err != nil {
			rollback()
			return nil, fmt.Errorf("count proposals: %w", err)
		}
		if count >= limit {
			rollback()
			return nil, ErrProposalLimit
		}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	q := `
INSERT INTO proposals (id, public_id, user_email, lead_name, lead_email, lead_company, services, budget, timeline,
    message, proposal_text, custom_slug, is_default, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + proposalColumns + `;`
	row := conn.QueryRowContext(ctx, q,
		p.ID, p.PublicID, p.UserEmail, p.LeadName, p.LeadEmail, p.LeadCompany, p.Services, p.Budget, p.Timeline,
		p.Message, p.ProposalText, p.CustomSlug, p.IsDefault, p.CreatedAt,
	)
	inserted, err := scanProposal(row)
	if err != nil {
		rollback()
		if isUniqueViolationSQLite(err) {
			return nil, ErrDuplicatePublicID
		}
		return nil, fmt.Errorf("insert proposal: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback()
		return nil, fmt.Errorf("commit proposal insert: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) GetProposalByPublicID(ctx context.Context, publicID string) (*Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals WHERE public_id = ? LIMIT 1;`
	p, err := scanProposal(s.db.QueryRowContext(ctx, q, publicID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get proposal by public id: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProposals(ctx context.Context, userEmail string) ([]Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals WHERE user_email = ? ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, q, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return proposals, nil
}

func (s *SQLiteStore) CountProposals(ctx context.Context, userEmail string) (int, error) {
	const q = `SELECT COUNT(*) FROM proposals WHERE user_email = ? AND is_default = 0;`
	var count int
	if err := s.db.QueryRowContext(ctx, q, userEmail).Scan(&count); err != nil {
		return 0, fmt.Errorf("count proposals: %w", err)
	}
	return count, nil
}

// AttachProposalText writes the generated text onto a proposal. Attaching
// identical text again is a no-op; different text over a non-empty row is
// rejected with ErrTextConflict.
func (s *SQLiteStore) AttachProposalText(ctx context.Context, publicID, text string) error {
	const q = `
UPDATE proposals
SET proposal_text = ?
WHERE public_id = ? AND (proposal_text = '' OR proposal_text = ?);
`
	res, err := s.db.ExecContext(ctx, q, text, publicID, text)
	if err != nil {
		return fmt.Errorf("attach proposal text: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	const existsQ = `SELECT COUNT(*) FROM proposals WHERE public_id = ?;`
	var count int
	if err := s.db.QueryRowContext(ctx, existsQ, publicID).Scan(&count); err != nil {
		return fmt.Errorf("attach proposal text lookup: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrTextConflict
}

// -- Offers --

func (s *SQLiteStore) InsertOffer(ctx context.Context, o Offer) (*Offer, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = OfferPending
	}
	if o.SubmittedAt.IsZero() {
		o.SubmittedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO offers (id, public_id, offer_amount, status, submitted_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, public_id, offer_amount, status, submitted_at;
`
	row := s.db.QueryRowContext(ctx, q, o.ID, o.PublicID, o.OfferAmount, o.Status, o.SubmittedAt)
	var inserted Offer
	if err := row.Scan(&inserted.ID, &inserted.PublicID, &inserted.OfferAmount, &inserted.Status, &inserted.SubmittedAt); err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}
	return &inserted, nil
}

func (s *SQLiteStore) ListOffers(ctx context.Context, publicID string) ([]Offer, error) {
	const q = `
SELECT id, public_id, offer_amount, status, submitted_at
FROM offers
WHERE public_id = ?
ORDER BY submitted_at ASC;
`
	rows, err := s.db.QueryContext(ctx, q, publicID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		var o Offer
		if err := rows.Scan(&o.ID, &o.PublicID, &o.OfferAmount, &o.Status, &o.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}
	return offers, nil
}

// UpdateOfferStatus moves an offer out of pending. Transitions are one-way:
// only pending offers change.
func (s *SQLiteStore) UpdateOfferStatus(ctx context.Context, offerID, status string) error {
	const q = `UPDATE offers SET status = ? WHERE id = ? AND status = 'pending';`
	res, err := s.db.ExecContext(ctx, q, status, offerID)
	if err != nil {
		return fmt.Errorf("update offer status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Analytics --

func (s *SQLiteStore) InsertAnalyticsEvent(ctx context.Context, ev AnalyticsEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	meta, err := metadataJSON(ev.Metadata)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO analytics_events (id, event_name, user_email, metadata, timestamp)
VALUES (?, ?, ?, ?, ?);
`
	if _, err := s.db.ExecContext(ctx, q, ev.ID, ev.EventName, ev.UserEmail, meta, ev.Timestamp); err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

func metadataJSON(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal event metadata: %w", err)
	}
	return string(data), nil
}
