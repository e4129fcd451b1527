package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModerationDecisions counts pipeline outcomes by decision.
	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketgate_moderation_decisions_total",
		Help: "Total number of automated moderation decisions by outcome",
	}, []string{"decision"})

	// ModerationConfidence records the aggregated confidence of each run.
	ModerationConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketgate_moderation_confidence",
		Help:    "Aggregated moderation confidence score",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	// ModerationVetoes counts veto signals by kind.
	ModerationVetoes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketgate_moderation_vetoes_total",
		Help: "Total number of veto signals fired by kind",
	}, []string{"kind"})

	// ClassifierCalls counts remote classifier calls by kind and outcome.
	ClassifierCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketgate_classifier_calls_total",
		Help: "Total number of remote classifier calls",
	}, []string{"kind", "outcome"})

	// ClassifierLatency records remote classifier latency.
	ClassifierLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketgate_classifier_latency_seconds",
		Help:    "Remote classifier latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// NotificationSockets tracks open owner notification websockets.
	NotificationSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketgate_notification_sockets",
		Help: "Number of open moderation notification websockets",
	})

	// NotificationDrops counts events not delivered to a socket, by reason.
	NotificationDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketgate_notification_drops_total",
		Help: "Total number of moderation notifications dropped before reaching a socket",
	}, []string{"reason"})

	// StrikesIssued counts strikes added to user accounts.
	StrikesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketgate_strikes_issued_total",
		Help: "Total number of moderation strikes issued",
	})

	// BansIssued counts automatic and manual bans.
	BansIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketgate_bans_issued_total",
		Help: "Total number of accounts banned by enforcement",
	})

	// AppealsSubmitted counts appeals filed by owners.
	AppealsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketgate_appeals_submitted_total",
		Help: "Total number of appeals submitted",
	})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketgate_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})
)

// TrackClassifierCall returns a function that records latency and outcome when called.
func TrackClassifierCall(kind string) func(err error) {
	start := time.Now()
	return func(err error) {
		ClassifierLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		ClassifierCalls.WithLabelValues(kind, outcome).Inc()
	}
}
