package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		routerCommandsTotal,
		routerCommandLatencyMs,
		routerDialFailures,
		routerDriftUsers,
		customersExpired,
	)
}

var (
	routerCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_commands_total",
			Help: "RouterOS API commands by command path and result.",
		},
		[]string{"command", "result"},
	)

	routerCommandLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_command_latency_ms",
			Help:    "RouterOS API command latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"command"},
	)

	routerDialFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "router_dial_failures_total",
			Help: "Failed attempts to open a RouterOS API session.",
		},
	)

	routerDriftUsers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "router_drift_users",
			Help: "Hotspot users out of sync per router and direction (router/ledger).",
		},
		[]string{"router", "direction"},
	)

	customersExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "customers_expired_total",
			Help: "Customers deactivated by the expiry worker.",
		},
	)
)

func ObserveRouterCommand(command string, ms float64, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	routerCommandsTotal.WithLabelValues(command, result).Inc()
	routerCommandLatencyMs.WithLabelValues(command).Observe(ms)
}

func IncRouterDialFailure() {
	routerDialFailures.Inc()
}

func SetRouterDrift(router string, onlyInRouter, onlyInLedger int) {
	routerDriftUsers.WithLabelValues(router, "router").Set(float64(onlyInRouter))
	routerDriftUsers.WithLabelValues(router, "ledger").Set(float64(onlyInLedger))
}

func AddCustomersExpired(n int) {
	customersExpired.Add(float64(n))
}
