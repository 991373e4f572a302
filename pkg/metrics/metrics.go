// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "khidma_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidma_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ArbitrationsTotal tracks provider reply classifications by outcome.
	ArbitrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidma_arbitrations_total",
			Help: "Provider reply classifications by outcome",
		},
		[]string{"outcome"},
	)

	// AssignmentsTotal tracks confirmed assignments by method (auto or manual).
	AssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidma_assignments_total",
			Help: "Confirmed assignments by method",
		},
		[]string{"method"},
	)

	// DeliveriesTotal tracks outbound channel deliveries by result.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidma_deliveries_total",
			Help: "Outbound channel deliveries by result",
		},
		[]string{"result"},
	)

	// VerificationsTotal tracks OTP issue and check outcomes.
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidma_verifications_total",
			Help: "OTP issue and check outcomes",
		},
		[]string{"operation", "result"},
	)

	// RequestsByStatus is refreshed on each operational metrics run.
	RequestsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "khidma_requests_by_status",
			Help: "Current request counts by lifecycle status",
		},
		[]string{"status"},
	)

	// AttentionItems is refreshed on each operational metrics run.
	AttentionItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "khidma_attention_items",
			Help: "Requests needing operator attention by signal",
		},
		[]string{"signal"},
	)

	// IntegrityScore is the percentage of requests with verified phones.
	IntegrityScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "khidma_integrity_score",
			Help: "Percentage of requests with verified phones",
		},
	)
)
