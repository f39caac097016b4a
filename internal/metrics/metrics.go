// Package metrics exposes the companion's Prometheus collectors. They are
// registered on the default registry served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingFetches counts /getReadings calls by result (ok, error)
	ReadingFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumofit",
		Subsystem: "poller",
		Name:      "fetches_total",
		Help:      "Health reading fetches by result.",
	}, []string{"result"})

	// AuthOperations counts session operations by name and result
	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumofit",
		Subsystem: "session",
		Name:      "operations_total",
		Help:      "Session manager operations by name and result.",
	}, []string{"op", "result"})

	// ActivePollers is the number of running health reading pollers
	ActivePollers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lumofit",
		Subsystem: "poller",
		Name:      "active",
		Help:      "Running health reading pollers.",
	})

	// LiveViewers is the number of open /ws/vitals connections
	LiveViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lumofit",
		Subsystem: "livefeed",
		Name:      "viewers",
		Help:      "Open live vitals connections.",
	})

	// AlertsRaised counts alerts by priority
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumofit",
		Subsystem: "alerts",
		Name:      "raised_total",
		Help:      "Alerts raised from abnormal readings by priority.",
	}, []string{"priority"})
)

// Result maps an error to the result label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
