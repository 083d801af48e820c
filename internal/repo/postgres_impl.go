package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -- Users --

func (s *PostgresStore) GetUser(ctx context.Context, email string) (*User, error) {
	const q = `
SELECT email, password_hash, first_name, plan_status, external_customer_id, created_at, updated_at
FROM users
WHERE email = $1;
`
	row := s.pool.QueryRow(ctx, q, email)
	var u User
	if err := row.Scan(&u.Email, &u.PasswordHash, &u.FirstName, &u.PlanStatus, &u.ExternalCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) UpsertUser(ctx context.Context, profile UserProfile) (*User, error) {
	const q = `
INSERT INTO users (email, password_hash, first_name, plan_status, external_customer_id, updated_at)
VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, 'free'), $5, NOW())
ON CONFLICT (email) DO UPDATE SET
    password_hash = COALESCE($2, users.password_hash),
    first_name = COALESCE($3, users.first_name),
    plan_status = COALESCE($4, users.plan_status),
    external_customer_id = COALESCE($5, users.external_customer_id),
    updated_at = NOW()
RETURNING email, password_hash, first_name, plan_status, external_customer_id, created_at, updated_at;
`
	row := s.pool.QueryRow(ctx, q,
		profile.Email, profile.PasswordHash, profile.FirstName, profile.PlanStatus, profile.ExternalCustomerID)

	var u User
	if err := row.Scan(&u.Email, &u.PasswordHash, &u.FirstName, &u.PlanStatus, &u.ExternalCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// -- Automation settings --

func (s *PostgresStore) GetAutomationSettings(ctx context.Context, email string) (*AutomationSettings, error) {
	q := `SELECT ` + settingsColumns + ` FROM automation_settings WHERE email = $1;`
	settings, err := scanSettings(s.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get automation settings: %w", err)
	}
	return settings, nil
}

func (s *PostgresStore) UpsertAutomationSettings(ctx context.Context, email string, patch SettingsPatch) (*AutomationSettings, error) {
	q := `
INSERT INTO automation_settings (email, tone, ai_training, length, full_auto, accept_offers, reject_offers, minimum_offer,
    subject, greeting, footer, first_name, company_name, position, website, phone, reply_to, timezone, logo, custom_slug, updated_at)
VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, 'concise'), COALESCE($5, FALSE), COALESCE($6, FALSE), COALESCE($7, FALSE), COALESCE($8, 0),
    COALESCE($9, ''), COALESCE($10, ''), COALESCE($11, ''), COALESCE($12, ''), COALESCE($13, ''), COALESCE($14, ''), COALESCE($15, ''),
    COALESCE($16, ''), COALESCE($17, ''), COALESCE($18, ''), COALESCE($19, ''), COALESCE($20, ''), NOW())
ON CONFLICT (email) DO UPDATE SET
    tone = COALESCE($2, automation_settings.tone),
    ai_training = COALESCE($3, automation_settings.ai_training),
    length = COALESCE($4, automation_settings.length),
    full_auto = COALESCE($5, automation_settings.full_auto),
    accept_offers = COALESCE($6, automation_settings.accept_offers),
    reject_offers = COALESCE($7, automation_settings.reject_offers),
    minimum_offer = COALESCE($8, automation_settings.minimum_offer),
    subject = COALESCE($9, automation_settings.subject),
    greeting = COALESCE($10, automation_settings.greeting),
    footer = COALESCE($11, automation_settings.footer),
    first_name = COALESCE($12, automation_settings.first_name),
    company_name = COALESCE($13, automation_settings.company_name),
    position = COALESCE($14, automation_settings.position),
    website = COALESCE($15, automation_settings.website),
    phone = COALESCE($16, automation_settings.phone),
    reply_to = COALESCE($17, automation_settings.reply_to),
    timezone = COALESCE($18, automation_settings.timezone),
    logo = COALESCE($19, automation_settings.logo),
    custom_slug = COALESCE($20, automation_settings.custom_slug),
    updated_at = NOW()
RETURNING ` + settingsColumns + `;`

	row := s.pool.QueryRow(ctx, q,
		email,
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

func (s *PostgresStore) InsertProposal(ctx context.Context, p Proposal, limit int) (*Proposal, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var inserted *Proposal
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if limit > 0 {
			// Lock the tenant row so concurrent inserts for the same tenant
			// serialize on the quota check.
			var email string
			if err := tx.QueryRow(ctx, `SELECT email FROM users WHERE email = $1 FOR UPDATE;`, p.UserEmail).Scan(&email); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("lock tenant row: %w", err)
			}
			var count int
			const countQ = `SELECT COUNT(*) FROM proposals WHERE user_email = $1 AND is_default = FALSE;`
			if err := tx.QueryRow(ctx, countQ, p.UserEmail).Scan(&count); err != nil {
				return fmt.Errorf("count proposals: %w", err)
			}
			if count >= limit {
				return ErrProposalLimit
			}
		}

		q := `
INSERT INTO proposals (id, public_id, user_email, lead_name, lead_email, lead_company, services, budget, timeline,
    message, proposal_text, custom_slug, is_default, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + proposalColumns + `;`
		row := tx.QueryRow(ctx, q,
			p.ID, p.PublicID, p.UserEmail, p.LeadName, p.LeadEmail, p.LeadCompany, p.Services, p.Budget, p.Timeline,
			p.Message, p.ProposalText, p.CustomSlug, p.IsDefault, p.CreatedAt,
		)
		var err error
		inserted, err = scanProposal(row)
		if err != nil {
			if isUniqueViolationPg(err) {
				return ErrDuplicatePublicID
			}
			return fmt.Errorf("insert proposal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (s *PostgresStore) GetProposalByPublicID(ctx context.Context, publicID string) (*Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals WHERE public_id = $1;`
	p, err := scanProposal(s.pool.QueryRow(ctx, q, publicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get proposal by public id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListProposals(ctx context.Context, userEmail string) ([]Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals WHERE user_email = $1 ORDER BY created_at DESC;`
	rows, err := s.pool.Query(ctx, q, userEmail)
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

func (s *PostgresStore) CountProposals(ctx context.Context, userEmail string) (int, error) {
	const q = `SELECT COUNT(*) FROM proposals WHERE user_email = $1 AND is_default = FALSE;`
	var count int
	if err := s.pool.QueryRow(ctx, q, userEmail).Scan(&count); err != nil {
		return 0, fmt.Errorf("count proposals: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AttachProposalText(ctx context.Context, publicID, text string) error {
	const q = `
UPDATE proposals
SET proposal_text = $1
WHERE public_id = $2 AND (proposal_text = '' OR proposal_text = $1);
`
	ct, err := s.pool.Exec(ctx, q, text, publicID)
	if err != nil {
		return fmt.Errorf("attach proposal text: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM proposals WHERE public_id = $1;`, publicID).Scan(&count); err != nil {
		return fmt.Errorf("attach proposal text lookup: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrTextConflict
}

// -- Offers --

func (s *PostgresStore) InsertOffer(ctx context.Context, o Offer) (*Offer, error) {
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
VALUES ($1, $2, $3, $4, $5)
RETURNING id, public_id, offer_amount, status, submitted_at;
`
	row := s.pool.QueryRow(ctx, q, o.ID, o.PublicID, o.OfferAmount, o.Status, o.SubmittedAt)
	var inserted Offer
	if err := row.Scan(&inserted.ID, &inserted.PublicID, &inserted.OfferAmount, &inserted.Status, &inserted.SubmittedAt); err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}
	return &inserted, nil
}

func (s *PostgresStore) ListOffers(ctx context.Context, publicID string) ([]Offer, error) {
	const q = `
SELECT id, public_id, offer_amount, status, submitted_at
FROM offers
WHERE public_id = $1
ORDER BY submitted_at ASC;
`
	rows, err := s.pool.Query(ctx, q, publicID)
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

func (s *PostgresStore) UpdateOfferStatus(ctx context.Context, offerID, status string) error {
	const q = `UPDATE offers SET status = $1 WHERE id = $2 AND status = 'pending';`
	ct, err := s.pool.Exec(ctx, q, status, offerID)
	if err != nil {
		return fmt.Errorf("update offer status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Analytics --

func (s *PostgresStore) InsertAnalyticsEvent(ctx context.Context, ev AnalyticsEvent) error {
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
VALUES ($1, $2, $3, $4, $5);
`
	if _, err := s.pool.Exec(ctx, q, ev.ID, ev.EventName, ev.UserEmail, meta, ev.Timestamp); err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}
