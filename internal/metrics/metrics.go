package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avcoach_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "avcoach_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avcoach_upstream_errors_total",
			Help: "Failed calls to the avatar or completion provider",
		},
		[]string{"upstream", "operation"},
	)

	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avcoach_completion_tokens_total",
			Help: "Tokens consumed by completion tasks",
		},
		[]string{"task", "kind"},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avcoach_session_transitions_total",
			Help: "Avatar session lifecycle transitions",
		},
		[]string{"state"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "avcoach_active_sessions",
			Help: "Number of connected avatar sessions",
		},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avcoach_messages_sent_total",
			Help: "Messages handed to the avatar to speak",
		},
		[]string{"task_type", "task_mode"},
	)
)
