// Package notify fans a finished proposal out to the configured delivery
// channels. Every send is fire-and-log: a channel failure is recorded in the
// event log and metrics but never surfaces to the caller.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"zyberfy/internal/analytics"
	"zyberfy/internal/metrics"
	"zyberfy/internal/repo"
)

// Notifier owns the per-channel gateway clients. Any of them may be nil when
// the channel is not configured; those channels are skipped silently.
type Notifier struct {
	email   *SendGridClient
	sms     *TwilioClient
	push    *OneSignalClient
	events  *analytics.Logger
	metrics *metrics.Metrics
	logger  *slog.Logger
	baseURL string
}

// New creates the fan-out notifier. baseURL is the public origin used to
// build proposal links in outbound messages.
func New(email *SendGridClient, sms *TwilioClient, push *OneSignalClient,
	events *analytics.Logger, m *metrics.Metrics, logger *slog.Logger, baseURL string) *Notifier {
	return &Notifier{
		email:   email,
		sms:     sms,
		push:    push,
		events:  events,
		metrics: m,
		logger:  logger.With("component", "notify"),
		baseURL: baseURL,
	}
}

// ProposalReady delivers the generated proposal to the lead by email and
// nudges the tenant over SMS and push. Each channel is attempted
// independently.
func (n *Notifier) ProposalReady(ctx context.Context, settings repo.AutomationSettings, p repo.Proposal) {
	link := fmt.Sprintf("%s/proposal/%s", n.baseURL, p.PublicID)

	if n.email != nil && p.LeadEmail != "" {
		subject := settings.Subject
		if subject == "" {
			subject = "Your proposal is ready"
		}
		body := p.ProposalText + "\n\nView your proposal: " + link
		n.record(ctx, "email", p, n.email.SendEmail(ctx, p.LeadEmail, settings.ReplyTo, subject, body))
	}

	if n.sms != nil && settings.Phone != "" {
		msg := fmt.Sprintf("A proposal for %s was just sent to %s. %s", p.LeadName, p.LeadEmail, link)
		n.record(ctx, "sms", p, n.sms.SendSMS(ctx, settings.Phone, msg))
	}

	if n.push != nil {
		msg := fmt.Sprintf("Proposal sent to %s", p.LeadName)
		n.record(ctx, "push", p, n.push.SendPush(ctx, p.UserEmail, "Proposal delivered", msg))
	}
}

var channelEvents = map[string][2]string{
	"email": {analytics.EventEmailSent, analytics.EventEmailFailed},
	"sms":   {analytics.EventSMSSent, analytics.EventSMSFailed},
	"push":  {analytics.EventPushSent, analytics.EventPushFailed},
}

func (n *Notifier) record(ctx context.Context, channel string, p repo.Proposal, err error) {
	names := channelEvents[channel]
	meta := map[string]any{"public_id": p.PublicID}
	if err != nil {
		meta["reason"] = err.Error()
		n.logger.Warn("notification send failed",
			"channel", channel, "public_id", p.PublicID, "error", err)
		n.count(channel, "failed")
		n.events.Log(ctx, names[1], p.UserEmail, meta)
		return
	}
	n.logger.Info("notification sent", "channel", channel, "public_id", p.PublicID)
	n.count(channel, "sent")
	n.events.Log(ctx, names[0], p.UserEmail, meta)
}

func (n *Notifier) count(channel, status string) {
	if n.metrics != nil {
		n.metrics.NotifierSends.WithLabelValues(channel, status).Inc()
	}
}
