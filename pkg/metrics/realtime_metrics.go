package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call metrics for monitoring the session lifecycle
var (
	CallsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_sessions_started_total",
		Help: "Total number of call sessions started",
	}, []string{"direction", "media_kind"})

	CallOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_sessions_ended_total",
		Help: "Total number of call sessions ended, by terminal status",
	}, []string{"status"})

	CallDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_session_duration_seconds",
		Help:    "Duration of connected call sessions",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	CallLogUpdateFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_log_update_failures_total",
		Help: "Total number of best-effort call log updates that failed",
	})

	MediaAcquireFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_media_acquire_failures_total",
		Help: "Total number of local media acquisition failures",
	})
)

// Signaling metrics
var (
	SignalingConnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_connects_total",
		Help: "Total number of signaling identity connections",
	}, []string{"result"})

	SignalingOffersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_inbound_offers_total",
		Help: "Total number of inbound call offers, by resolution outcome",
	}, []string{"result"}) // "presented", "rejected"
)

// Chat cache metrics for monitoring optimistic reconciliation
var (
	CacheRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_cache_refresh_total",
		Help: "Total number of conversation cache refreshes",
	}, []string{"result"}) // "success", "stale_fallback", "failure"

	MessageSendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_message_send_total",
		Help: "Total number of optimistic message sends, by outcome",
	}, []string{"result"}) // "confirmed", "rolled_back"

	MediaSendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_media_send_total",
		Help: "Total number of media sends, by outcome",
	}, []string{"result"})
)

// Reaction metrics
var (
	ReactionTogglesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reaction_toggles_total",
		Help: "Total number of local reaction toggles",
	})

	ReactionSubmitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reaction_submits_total",
		Help: "Total number of reaction submits sent to the backend, by outcome",
	}, []string{"result"})

	ReactionDebounceCancelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reaction_debounce_cancels_total",
		Help: "Total number of pending reaction submits cancelled by a newer toggle",
	})
)

// Retry metrics
var (
	RetryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Total number of retry attempts, by operation and outcome",
	}, []string{"operation", "result"}) // "success", "retryable", "definitive"
)
