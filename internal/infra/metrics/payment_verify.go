package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(PaymentCallbackVerifications)
}

// Count of callback verifications grouped by kind and result.
// kind: success|notify|pending|cancel
// result: ok|mismatch|missing_params
var PaymentCallbackVerifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_callback_verifications_total",
		Help: "Payment return/notify callbacks by kind and verification result.",
	},
	[]string{"kind", "result"},
)

func IncCallback(kind, result string) {
	PaymentCallbackVerifications.WithLabelValues(norm(kind), norm(result)).Inc()
}
