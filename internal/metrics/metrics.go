package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayq",
		Name:      "jobs_created_total",
		Help:      "Jobs persisted on the async path, by complexity.",
	}, []string{"complexity"})

	SyncRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "relayq",
		Name:      "sync_requests_total",
		Help:      "Requests routed to the synchronous path (no job persisted).",
	})

	JobsTerminalTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayq",
		Name:      "jobs_terminal_total",
		Help:      "Jobs reaching a terminal state, by final status.",
	}, []string{"status"})

	WorkerUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayq",
		Name:      "worker_updates_total",
		Help:      "Worker callback updates, by outcome (accepted/rejected).",
	}, []string{"outcome"})

	TriggerFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "relayq",
		Name:      "trigger_failures_total",
		Help:      "Worker trigger attempts that did not get a 2xx response.",
	})

	ActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "relayq",
		Name:      "active_streams",
		Help:      "Currently open SSE relay connections.",
	})
)

// Register registers all collectors on the default registerer. Call once at
// startup.
func Register() {
	prometheus.MustRegister(
		JobsCreatedTotal,
		SyncRequestsTotal,
		JobsTerminalTotal,
		WorkerUpdatesTotal,
		TriggerFailuresTotal,
		ActiveStreams,
	)
}
