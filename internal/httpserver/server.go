// Package httpserver exposes the JSON API: proposal intake and retrieval,
// public proposal pages, offers and tenant settings, plus health and metrics
// endpoints.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"zyberfy/internal/analytics"
	"zyberfy/internal/metrics"
	"zyberfy/internal/offer"
	"zyberfy/internal/proposal"
	"zyberfy/internal/repo"
	"zyberfy/internal/settings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies exposes core services to the handlers.
type Dependencies struct {
	Proposals *proposal.Service
	Offers    *offer.Service
	Settings  *settings.Service
	Events    *analytics.Logger
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
}

// New creates a new HTTP server listening on addr.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies) *Server {
	server := &Server{
		logger:  logger.With("component", "http"),
		metrics: metricRegistry,
		deps:    deps,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/proposals", server.handleCreateProposal)
	mux.HandleFunc("GET /api/proposals", server.handleListProposals)
	mux.HandleFunc("POST /api/proposals/{public_id}/retry", server.handleRetryGeneration)

	mux.HandleFunc("GET /proposal/{public_id}", server.handleGetProposal)
	mux.HandleFunc("POST /proposal/{public_id}/offers", server.handleSubmitOffer)
	mux.HandleFunc("GET /proposal/{public_id}/offers", server.handleListOffers)
	mux.HandleFunc("POST /api/offers/{offer_id}/status", server.handleOfferStatus)

	mux.HandleFunc("GET /api/settings", server.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", server.handlePutSettings)
	mux.HandleFunc("PUT /api/users", server.handlePutUser)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

type leadPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Services string `json:"services"`
	Budget   string `json:"budget"`
	Timeline string `json:"timeline"`
	Message  string `json:"message"`
}

type createProposalRequest struct {
	Email string      `json:"email"`
	Lead  leadPayload `json:"lead"`
}

type proposalResponse struct {
	PublicID     string    `json:"public_id"`
	UserEmail    string    `json:"user_email"`
	LeadName     string    `json:"lead_name"`
	LeadEmail    string    `json:"lead_email"`
	LeadCompany  string    `json:"lead_company"`
	Services     string    `json:"services"`
	Budget       string    `json:"budget"`
	Timeline     string    `json:"timeline"`
	Message      string    `json:"message"`
	ProposalText string    `json:"proposal_text"`
	CustomSlug   string    `json:"custom_slug,omitempty"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

func toProposalResponse(p repo.Proposal) proposalResponse {
	return proposalResponse{
		PublicID:     p.PublicID,
		UserEmail:    p.UserEmail,
		LeadName:     p.LeadName,
		LeadEmail:    p.LeadEmail,
		LeadCompany:  p.LeadCompany,
		Services:     p.Services,
		Budget:       p.Budget,
		Timeline:     p.Timeline,
		Message:      p.Message,
		ProposalText: p.ProposalText,
		CustomSlug:   p.CustomSlug,
		IsDefault:    p.IsDefault,
		CreatedAt:    p.CreatedAt,
	}
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	created, err := s.deps.Proposals.Create(r.Context(), req.Email, proposal.Lead{
		Name:     req.Lead.Name,
		Email:    req.Lead.Email,
		Company:  req.Lead.Company,
		Services: req.Lead.Services,
		Budget:   req.Lead.Budget,
		Timeline: req.Lead.Timeline,
		Message:  req.Lead.Message,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, toProposalResponse(*created))
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	items, err := s.deps.Proposals.List(r.Context(), email)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]proposalResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toProposalResponse(p))
	}
	writeJSON(w, map[string]any{"proposals": out})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("public_id")

	p, err := s.deps.Proposals.GetByPublicID(r.Context(), publicID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.deps.Events.Log(r.Context(), analytics.EventProposalViewed, p.UserEmail, map[string]any{
		"public_id": publicID,
	})
	writeJSON(w, toProposalResponse(*p))
}

func (s *Server) handleRetryGeneration(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("public_id")

	if err := s.deps.Proposals.RetryGeneration(r.Context(), publicID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "queued", "public_id": publicID})
}

type submitOfferRequest struct {
	Amount int64 `json:"amount"`
}

type offerResponse struct {
	ID          string    `json:"id"`
	PublicID    string    `json:"public_id"`
	OfferAmount int64     `json:"offer_amount"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func toOfferResponse(o repo.Offer) offerResponse {
	return offerResponse{
		ID:          o.ID,
		PublicID:    o.PublicID,
		OfferAmount: o.OfferAmount,
		Status:      o.Status,
		SubmittedAt: o.SubmittedAt,
	}
}

func (s *Server) handleSubmitOffer(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("public_id")

	var req submitOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	inserted, err := s.deps.Offers.Submit(r.Context(), publicID, req.Amount)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, toOfferResponse(*inserted))
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("public_id")

	items, err := s.deps.Offers.List(r.Context(), publicID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]offerResponse, 0, len(items))
	for _, o := range items {
		out = append(out, toOfferResponse(o))
	}
	writeJSON(w, map[string]any{"offers": out})
}

type offerStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleOfferStatus(w http.ResponseWriter, r *http.Request) {
	offerID := r.PathValue("offer_id")

	var req offerStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.deps.Offers.UpdateStatus(r.Context(), offerID, req.Status); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": req.Status})
}

type settingsPayload struct {
	Email        string  `json:"email"`
	Tone         *string `json:"tone,omitempty"`
	AITraining   *string `json:"ai_training,omitempty"`
	Length       *string `json:"length,omitempty"`
	FullAuto     *bool   `json:"full_auto,omitempty"`
	AcceptOffers *bool   `json:"accept_offers,omitempty"`
	RejectOffers *bool   `json:"reject_offers,omitempty"`
	MinimumOffer *int64  `json:"minimum_offer,omitempty"`
	Subject      *string `json:"subject,omitempty"`
	Greeting     *string `json:"greeting,omitempty"`
	Footer       *string `json:"footer,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	CompanyName  *string `json:"company_name,omitempty"`
	Position     *string `json:"position,omitempty"`
	Website      *string `json:"website,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	ReplyTo      *string `json:"reply_to,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
	Logo         *string `json:"logo,omitempty"`
	CustomSlug   *string `json:"custom_slug,omitempty"`
}

type settingsResponse struct {
	Email        string    `json:"email"`
	Tone         string    `json:"tone"`
	AITraining   string    `json:"ai_training"`
	Length       string    `json:"length"`
	FullAuto     bool      `json:"full_auto"`
	AcceptOffers bool      `json:"accept_offers"`
	RejectOffers bool      `json:"reject_offers"`
	MinimumOffer int64     `json:"minimum_offer"`
	Subject      string    `json:"subject"`
	Greeting     string    `json:"greeting"`
	Footer       string    `json:"footer"`
	FirstName    string    `json:"first_name"`
	CompanyName  string    `json:"company_name"`
	Position     string    `json:"position"`
	Website      string    `json:"website"`
	Phone        string    `json:"phone"`
	ReplyTo      string    `json:"reply_to"`
	Timezone     string    `json:"timezone"`
	Logo         string    `json:"logo"`
	CustomSlug   string    `json:"custom_slug"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toSettingsResponse(s repo.AutomationSettings) settingsResponse {
	return settingsResponse{
		Email:        s.Email,
		Tone:         s.Tone,
		AITraining:   s.AITraining,
		Length:       s.Length,
		FullAuto:     s.FullAuto,
		AcceptOffers: s.AcceptOffers,
		RejectOffers: s.RejectOffers,
		MinimumOffer: s.MinimumOffer,
		Subject:      s.Subject,
		Greeting:     s.Greeting,
		Footer:       s.Footer,
		FirstName:    s.FirstName,
		CompanyName:  s.CompanyName,
		Position:     s.Position,
		Website:      s.Website,
		Phone:        s.Phone,
		ReplyTo:      s.ReplyTo,
		Timezone:     s.Timezone,
		Logo:         s.Logo,
		CustomSlug:   s.CustomSlug,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	got, err := s.deps.Settings.GetAutomation(r.Context(), email)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, toSettingsResponse(*got))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	updated, err := s.deps.Settings.UpsertAutomation(r.Context(), req.Email, repo.SettingsPatch{
		Tone:         req.Tone,
		AITraining:   req.AITraining,
		Length:       req.Length,
		FullAuto:     req.FullAuto,
		AcceptOffers: req.AcceptOffers,
		RejectOffers: req.RejectOffers,
		MinimumOffer: req.MinimumOffer,
		Subject:      req.Subject,
		Greeting:     req.Greeting,
		Footer:       req.Footer,
		FirstName:    req.FirstName,
		CompanyName:  req.CompanyName,
		Position:     req.Position,
		Website:      req.Website,
		Phone:        req.Phone,
		ReplyTo:      req.ReplyTo,
		Timezone:     req.Timezone,
		Logo:         req.Logo,
		CustomSlug:   req.CustomSlug,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, toSettingsResponse(*updated))
}

type userPayload struct {
	Email        string  `json:"email"`
	PasswordHash *string `json:"password_hash,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	PlanStatus   *string `json:"plan_status,omitempty"`
}

func (s *Server) handlePutUser(w http.ResponseWriter, r *http.Request) {
	var req userPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.PlanStatus != nil && *req.PlanStatus != repo.PlanFree && *req.PlanStatus != repo.PlanElite {
		writeError(w, http.StatusBadRequest, "plan_status must be free or elite")
		return
	}

	user, err := s.deps.Settings.UpsertUserProfile(r.Context(), repo.UserProfile{
		Email:        req.Email,
		PasswordHash: req.PasswordHash,
		FirstName:    req.FirstName,
		PlanStatus:   req.PlanStatus,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"email":       user.Email,
		"first_name":  user.FirstName,
		"plan_status": user.PlanStatus,
	})
}

// writeDomainError maps service sentinels onto HTTP status codes. Anything
// unmapped is a 500 with the detail kept out of the response body.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, proposal.ErrUnknownTenant):
		writeError(w, http.StatusNotFound, "unknown tenant")
	case errors.Is(err, proposal.ErrLimitReached):
		writeError(w, http.StatusForbidden, "proposal limit reached, upgrade to elite")
	case errors.Is(err, proposal.ErrUnknownProposal), errors.Is(err, offer.ErrUnknownProposal),
		errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, proposal.ErrAlreadyGenerated):
		writeError(w, http.StatusConflict, "proposal text already generated")
	case errors.Is(err, offer.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "offer amount must be positive")
	case errors.Is(err, offer.ErrInvalidStatus):
		writeError(w, http.StatusConflict, "invalid offer status transition")
	case errors.Is(err, settings.ErrInvalidSlug):
		writeError(w, http.StatusBadRequest, "invalid custom slug")
	case errors.Is(err, settings.ErrInvalidTimezone):
		writeError(w, http.StatusBadRequest, "invalid timezone")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if s.metrics != nil {
			s.metrics.Errors.WithLabelValues("http").Inc()
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
