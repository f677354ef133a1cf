package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PurchasesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "certshop_purchases_created_total",
			Help: "Number of purchase records created by checkout",
		},
	)

	CertificateFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "certshop_certificate_failures_total",
			Help: "Number of certificates that could not be generated",
		},
	)

	DeliveryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certshop_delivery_attempts_total",
			Help: "Number of certificate delivery attempts by result",
		},
		[]string{"result"},
	)

	DeliveryLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "certshop_delivery_latency_seconds",
			Help:    "Time taken by a single delivery attempt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5},
		},
	)

	CheckoutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "certshop_checkout_duration_seconds",
			Help: "Time taken to drain a cart and settle all of its purchases",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "certshop_active_sessions",
			Help: "Number of session workspaces held in memory",
		},
	)
)

const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Calling it twice is a no-op.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PurchasesCreated,
			CertificateFailures,
			DeliveryAttempts,
			DeliveryLatency,
			CheckoutDuration,
			ActiveSessions,
		)
	})
}

// DeliveryResult is the label value for a settled attempt.
func DeliveryResult(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultSent
}
