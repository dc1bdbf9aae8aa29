package slack

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vidlake_insight_bot_build_info",
			Help: "Build information of the insight bot",
		},
		[]string{"version", "commit", "date"},
	)

	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidlake_insight_bot_events_received_total",
			Help: "Total number of Slack events received",
		},
		[]string{"event_type"},
	)

	EventsDuplicateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vidlake_insight_bot_events_duplicate_total",
			Help: "Total number of duplicate events skipped",
		},
	)

	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidlake_insight_bot_replies_total",
			Help: "Total number of replies posted, by outcome",
		},
		[]string{"outcome"},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidlake_insight_bot_message_processing_duration_seconds",
			Help:    "Duration of message processing",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	SlackAPIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidlake_insight_bot_slack_api_errors_total",
			Help: "Total number of Slack API errors",
		},
		[]string{"operation"},
	)
)

// Reply outcomes.
const (
	outcomeAnswer  = "answer"
	outcomeEmpty   = "empty"
	outcomeFailure = "failure"
)
