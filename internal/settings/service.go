// Package settings reads and writes a tenant's automation and branding
// settings.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"zyberfy/internal/cache"
	"zyberfy/internal/repo"
)

var (
	// ErrInvalidSlug indicates a custom slug outside the slug grammar.
	ErrInvalidSlug = errors.New("settings: invalid slug")
	// ErrInvalidTimezone indicates an unrecognised zone name.
	ErrInvalidTimezone = errors.New("settings: invalid timezone")
)

// slugPattern is the slug grammar: lowercase alphanumeric runs joined by
// single '-' separators, no leading or trailing separator.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

const settingsCacheTTL = 5 * time.Minute

// Service provides validated access to automation settings and user profiles.
type Service struct {
	store  repo.Store
	cache  *cache.Redis
	logger *slog.Logger
}

// New creates a settings service. cache may be nil.
func New(store repo.Store, redis *cache.Redis, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  redis,
		logger: logger.With("component", "settings"),
	}
}

func cacheKey(email string) string {
	return "zyberfy:settings:" + email
}

// GetAutomation returns the tenant's automation settings, or
// repo.ErrNotFound when the tenant never saved any.
func (s *Service) GetAutomation(ctx context.Context, email string) (*repo.AutomationSettings, error) {
	if s.cache != nil {
		var cached repo.AutomationSettings
		ok, err := s.cache.GetJSON(ctx, cacheKey(email), &cached)
		if err != nil {
			s.logger.Warn("settings cache read failed", "error", err)
		} else if ok {
			return &cached, nil
		}
	}

	settings, err := s.store.GetAutomationSettings(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey(email), settings, settingsCacheTTL); err != nil {
			s.logger.Warn("settings cache write failed", "error", err)
		}
	}
	return settings, nil
}

// UpsertAutomation merges the patch over the stored settings. Keys absent
// from the patch are preserved, present keys overwrite.
func (s *Service) UpsertAutomation(ctx context.Context, email string, patch repo.SettingsPatch) (*repo.AutomationSettings, error) {
	if patch.CustomSlug != nil && *patch.CustomSlug != "" && !slugPattern.MatchString(*patch.CustomSlug) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, *patch.CustomSlug)
	}
	if patch.Timezone != nil && *patch.Timezone != "" {
		if _, err := time.LoadLocation(*patch.Timezone); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, *patch.Timezone)
		}
	}

	settings, err := s.store.UpsertAutomationSettings(ctx, email, patch)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey(email)); err != nil {
			s.logger.Warn("settings cache invalidation failed", "error", err)
		}
	}
	return settings, nil
}

// UpsertUserProfile merges the profile patch over the stored user row with
// the same preserve-absent semantics.
func (s *Service) UpsertUserProfile(ctx context.Context, profile repo.UserProfile) (*repo.User, error) {
	return s.store.UpsertUser(ctx, profile)
}
