package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thinkstream_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thinkstream_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60},
		},
		[]string{"method", "route"},
	)

	// Chat metrics
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thinkstream_chat_turns_total",
			Help: "Chat turns by model and outcome",
		},
		[]string{"model", "outcome"}, // complete, adapter_error, canceled, store_error
	)

	StreamDeltasTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thinkstream_stream_deltas_total",
			Help: "Streamed deltas forwarded to clients",
		},
		[]string{"provider", "kind"},
	)

	// StoreBackend is 1 for the active conversation store backend.
	StoreBackend = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thinkstream_store_backend",
			Help: "Active conversation store backend",
		},
		[]string{"backend"},
	)
)
