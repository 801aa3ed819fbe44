package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		provisioningStepsTotal,
		provisioningLeaseRollbacks,
		registrationsTotal,
	)
}

var (
	provisioningStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioning_steps_total",
			Help: "Router provisioning steps by step name and result.",
		},
		[]string{"step", "result"},
	)

	provisioningLeaseRollbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provisioning_lease_rollbacks_total",
			Help: "DHCP leases removed because the paired queue step failed.",
		},
	)

	registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Self-registration attempts by result (created/conflict/error).",
		},
		[]string{"result"},
	)
)

func IncProvisioningStep(step string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	provisioningStepsTotal.WithLabelValues(norm(step), result).Inc()
}

func IncLeaseRollback() {
	provisioningLeaseRollbacks.Inc()
}

func IncRegistration(result string) {
	registrationsTotal.WithLabelValues(norm(result)).Inc()
}
