package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentEventsTotal,
		paymentRevenueTotal,
		auditWritesDegraded,
	)
}

var (
	paymentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Payment callback events by gateway status and ledger action.",
		},
		[]string{"status", "action"},
	)

	paymentRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_revenue_total",
			Help: "Total monetary value of completed payment events.",
		},
	)

	auditWritesDegraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_audit_writes_degraded_total",
			Help: "Payment audit rows that failed to persist after a successful ledger update.",
		},
	)
)

func IncPaymentEvent(status, action string) {
	paymentEventsTotal.WithLabelValues(norm(status), norm(action)).Inc()
}

func AddPaymentRevenue(amount float64) {
	paymentRevenueTotal.Add(amount)
}

func IncAuditDegraded() {
	auditWritesDegraded.Inc()
}
