package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Log outcomes recorded in LogsProcessed.
const (
	OutcomeInserted          = "inserted"
	OutcomeDuplicateCampaign = "duplicate_campaign"
	OutcomeDuplicateDelivery = "duplicate_delivery"
	OutcomeSignatureMismatch = "signature_mismatch"
	OutcomeMalformed         = "malformed"
	OutcomeRemoved           = "removed"
	OutcomeStoreError        = "store_error"
)

var (
	// LogsProcessed counts logs handled by the indexer, by outcome
	LogsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_indexer_logs_total",
			Help: "Total number of logs handled by the indexer",
		},
		[]string{"outcome"},
	)

	// UpsertDuration tracks replica write latency
	UpsertDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campaign_indexer_upsert_duration_seconds",
			Help:    "Campaign upsert duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// Reconnects counts indexer session restarts
	Reconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_indexer_reconnects_total",
			Help: "Total number of chain reconnect attempts",
		},
	)

	// LastProcessedBlock tracks the last fully processed block
	LastProcessedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campaign_indexer_last_processed_block",
			Help: "Last fully processed block number",
		},
	)

	// Live is 1 while the indexer consumes the live subscription, 0 while catching up
	Live = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campaign_indexer_live",
			Help: "Whether the indexer is in live mode",
		},
	)

	// HTTPRequests counts query API requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks query API latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campaign_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
