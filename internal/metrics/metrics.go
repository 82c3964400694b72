// Package metrics provides Prometheus metrics for the card catalog.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardcat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardcat_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardcat_rate_limited_total",
			Help: "Submissions rejected by the per-user rate limiter",
		},
	)

	// Submission Metrics
	BundlesSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardcat_bundles_submitted_total",
			Help: "Total number of bundles submitted",
		},
	)

	CardsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardcat_cards_submitted_total",
			Help: "Provisional cards submitted by initial resolution outcome",
		},
		[]string{"outcome"}, // "auto_resolved", "needs_review"
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardcat_resolution_duration_seconds",
			Help:    "Time taken to resolve all cards of one bundle",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	MatchConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardcat_match_confidence",
			Help:    "Best-candidate confidence per resolved field",
			Buckets: []float64{0.6, 0.7, 0.8, 0.9, 0.95, 0.98, 1.0},
		},
		[]string{"kind"}, // "set", "series", "player", "team", "color"
	)

	UnmatchedFieldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardcat_unmatched_fields_total",
			Help: "Fields with no candidate above the similarity floor",
		},
		[]string{"kind"},
	)

	SuspiciousInputTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardcat_suspicious_input_total",
			Help: "Free-text fields flagged by the injection screen",
		},
		[]string{"field", "type"}, // type: "sqli", "xss"
	)

	// Review Metrics
	BundleReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardcat_bundle_reviews_total",
			Help: "Bundle review decisions",
		},
		[]string{"decision", "reviewer"}, // decision: "approved", "rejected"; reviewer: "admin", "auto"
	)

	CardsMaterializedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardcat_cards_materialized_total",
			Help: "Approved provisional cards by outcome",
		},
		[]string{"outcome"}, // "created", "linked", "failed"
	)

	EntitiesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardcat_entities_created_total",
			Help: "Canonical entities created during review",
		},
		[]string{"kind"},
	)

	PendingBundles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardcat_pending_bundles",
			Help: "Bundles waiting in the review queue",
		},
	)
)
