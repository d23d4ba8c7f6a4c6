// Package metrics registers the daemon's Prometheus collectors. Importing
// the package is enough to register them; internal/httpapi mounts the
// default registry's handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts dispatched commands by command name and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cogniliving",
		Subsystem: "dispatcher",
		Name:      "commands_total",
		Help:      "Commands processed, by command and outcome.",
	}, []string{"command", "outcome"})

	// EngineLatencySeconds observes per-engine command handling latency.
	EngineLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cogniliving",
		Subsystem: "engine",
		Name:      "latency_seconds",
		Help:      "Time spent inside an engine method, by engine.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine"})

	// PersistenceFailuresTotal counts failed Model Store writes, by engine.
	PersistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cogniliving",
		Subsystem: "store",
		Name:      "persistence_failures_total",
		Help:      "Failed attempts to persist an engine's snapshot.",
	}, []string{"engine"})
)
