package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentCreateRequests,
		paymentCreateDuration,
		paymentsAmountTotal,
	)
}

var (
	// Count of CreatePayment calls by provider and result.
	// result: ok|api_error|unexpected|transport|invalid
	paymentCreateRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_create_requests_total",
			Help: "Payment creation requests sent to the gateway by provider and result.",
		},
		[]string{"provider", "result"},
	)

	paymentCreateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_create_duration_seconds",
			Help:    "Latency of payment creation requests in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "success"},
	)

	paymentsAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_created_amount_total",
			Help: "Total order value of created payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func ObservePaymentCreate(provider, result string, d time.Duration) {
	paymentCreateRequests.WithLabelValues(norm(provider), norm(result)).Inc()
	paymentCreateDuration.WithLabelValues(norm(provider), strconv.FormatBool(result == "ok")).Observe(d.Seconds())
}

func AddPaymentAmount(currency string, amount float64) {
	paymentsAmountTotal.WithLabelValues(norm(currency)).Add(amount)
}
