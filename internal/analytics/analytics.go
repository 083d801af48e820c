// Package analytics is the append-only event side channel. Writes are
// best-effort: a failing sink is reported and counted, never propagated.
package analytics

import (
	"context"
	"log/slog"

	"zyberfy/internal/metrics"
	"zyberfy/internal/repo"
)

// Event names emitted by the core.
const (
	EventProposalCreated          = "proposal_created"
	EventProposalGenerated        = "proposal_generated"
	EventProposalGenerationFailed = "proposal_generation_failed"
	EventProposalViewed           = "proposal_viewed"
	EventOfferSubmitted           = "offer_submitted"
	EventEmailSent                = "email_sent"
	EventEmailFailed              = "email_failed"
	EventSMSSent                  = "sms_sent"
	EventSMSFailed                = "sms_failed"
	EventPushSent                 = "push_sent"
	EventPushFailed               = "push_failed"
)

// Sink receives analytics events. The store-backed sink is the default;
// remote product-analytics gateways are interchangeable behind this method.
type Sink interface {
	Write(ctx context.Context, ev repo.AnalyticsEvent) error
}

// StoreSink persists events into the analytics_events table.
type StoreSink struct {
	store repo.Store
}

// NewStoreSink returns a sink writing to the given store.
func NewStoreSink(store repo.Store) *StoreSink {
	return &StoreSink{store: store}
}

// Write appends the event to the store.
func (s *StoreSink) Write(ctx context.Context, ev repo.AnalyticsEvent) error {
	return s.store.InsertAnalyticsEvent(ctx, ev)
}

// Logger is the single writer every component logs through.
type Logger struct {
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewLogger wires a sink with logging and metrics.
func NewLogger(sink Sink, logger *slog.Logger, m *metrics.Metrics) *Logger {
	return &Logger{
		sink:    sink,
		logger:  logger.With("component", "analytics"),
		metrics: m,
	}
}

// Log appends an event. userEmail may be empty for anonymous events. A sink
// failure is reported on stderr and swallowed so the enclosing flow never
// fails on analytics.
func (l *Logger) Log(ctx context.Context, eventName, userEmail string, metadata map[string]any) {
	ev := repo.AnalyticsEvent{
		EventName: eventName,
		Metadata:  metadata,
	}
	if userEmail != "" {
		ev.UserEmail = &userEmail
	}

	if err := l.sink.Write(ctx, ev); err != nil {
		l.logger.Error("analytics write failed", "event", eventName, "error", err)
		if l.metrics != nil {
			l.metrics.AnalyticsEvents.WithLabelValues(eventName, "error").Inc()
			l.metrics.Errors.WithLabelValues("analytics").Inc()
		}
		return
	}
	if l.metrics != nil {
		l.metrics.AnalyticsEvents.WithLabelValues(eventName, "ok").Inc()
	}
}
