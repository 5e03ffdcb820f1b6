// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_orders_submitted_total",
			Help: "Total number of order submissions by mode and result",
		},
		[]string{"mode", "result"},
	)

	OrdersDeclined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_orders_declined_total",
			Help: "Total number of provider declines by submission mode",
		},
		[]string{"mode"},
	)

	OrdersFaulted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_orders_faulted_total",
			Help: "Total number of provider/network faults",
		},
		[]string{"mode"},
	)

	DuplicateSubmissions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnel_duplicate_submissions_total",
			Help: "Submissions rejected because an identical one was in flight",
		},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "funnel_submission_duration_seconds",
			Help: "Duration of order submissions in seconds",
		},
		[]string{"mode"},
	)

	SubmissionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnel_submissions_in_flight",
			Help: "Number of submissions currently being processed",
		},
	)
)
