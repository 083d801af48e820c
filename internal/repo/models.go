package repo

import "time"

// Plan status values recognised on the users table.
const (
	PlanFree  = "free"
	PlanElite = "elite"
)

// Offer status values.
const (
	OfferPending  = "pending"
	OfferAccepted = "accepted"
	OfferDeclined = "declined"
)

// User represents a tenant row in the users table.
type User struct {
	Email              string
	PasswordHash       string
	FirstName          string
	PlanStatus         string
	ExternalCustomerID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UserProfile carries fields used to upsert a user. Nil pointers leave the
// stored value untouched.
type UserProfile struct {
	Email              string
	PasswordHash       *string
	FirstName          *string
	PlanStatus         *string
	ExternalCustomerID *string
}

// AutomationSettings holds a tenant's tone profile and branding, keyed by email.
type AutomationSettings struct {
	Email        string
	Tone         string
	AITraining   string
	Length       string
	FullAuto     bool
	AcceptOffers bool
	RejectOffers bool
	MinimumOffer int64
	Subject      string
	Greeting     string
	Footer       string
	FirstName    string
	CompanyName  string
	Position     string
	Website      string
	Phone        string
	ReplyTo      string
	Timezone     string
	Logo         string
	CustomSlug   string
	UpdatedAt    time.Time
}

// SettingsPatch carries partial automation settings. Nil pointers preserve
// the stored value, non-nil pointers overwrite it.
type SettingsPatch struct {
	Tone         *string
	AITraining   *string
	Length       *string
	FullAuto     *bool
	AcceptOffers *bool
	RejectOffers *bool
	MinimumOffer *int64
	Subject      *string
	Greeting     *string
	Footer       *string
	FirstName    *string
	CompanyName  *string
	Position     *string
	Website      *string
	Phone        *string
	ReplyTo      *string
	Timezone     *string
	Logo         *string
	CustomSlug   *string
}

// Proposal represents a row in the proposals table. CustomSlug is the tenant
// slug snapshotted at creation time.
type Proposal struct {
	ID           string
	PublicID     string
	UserEmail    string
	LeadName     string
	LeadEmail    string
	LeadCompany  string
	Services     string
	Budget       string
	Timeline     string
	Message      string
	ProposalText string
	CustomSlug   string
	IsDefault    bool
	CreatedAt    time.Time
}

// Offer represents a counter-offer row tied to a proposal by public_id.
// OfferAmount is in minor currency units.
type Offer struct {
	ID          string
	PublicID    string
	OfferAmount int64
	Status      string
	SubmittedAt time.Time
}

// AnalyticsEvent is an append-only analytics record.
type AnalyticsEvent struct {
	ID        string
	EventName string
	UserEmail *string
	Metadata  map[string]any
	Timestamp time.Time
}
