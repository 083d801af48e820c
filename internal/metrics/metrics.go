package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	ProposalsCreated  *prometheus.CounterVec
	GenerationRuns    *prometheus.CounterVec
	GenerationLatency *prometheus.HistogramVec
	OffersSubmitted   *prometheus.CounterVec
	NotifierSends     *prometheus.CounterVec
	AnalyticsEvents   *prometheus.CounterVec
	Errors            *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			ProposalsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proposals_created_total",
				Help:      "Total proposal creation attempts by outcome.",
			}, []string{"status"}),
			GenerationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_runs_total",
				Help:      "Total LLM generation runs by outcome.",
			}, []string{"status"}),
			GenerationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Latency distribution for LLM completion calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"status"}),
			OffersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "offers_submitted_total",
				Help:      "Total offers submitted by initial status.",
			}, []string{"status"}),
			NotifierSends: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifier_sends_total",
				Help:      "Total notifier dispatches by channel and outcome.",
			}, []string{"channel", "status"}),
			AnalyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_events_total",
				Help:      "Total analytics events by name and sink outcome.",
			}, []string{"event", "status"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.ProposalsCreated,
			metricsInstance.GenerationRuns,
			metricsInstance.GenerationLatency,
			metricsInstance.OffersSubmitted,
			metricsInstance.NotifierSends,
			metricsInstance.AnalyticsEvents,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
