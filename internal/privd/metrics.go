package privd

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DaemonCallsTotal counts daemon round trips by command and outcome.
	DaemonCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackpilot_daemon_calls_total",
		Help: "The total number of daemon calls by command and outcome",
	}, []string{"command", "outcome"}) // "ok", "rejected", "transport_error"

	// FallbacksTotal counts operations that fell back to direct execution.
	FallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackpilot_fallbacks_total",
		Help: "The total number of operations executed via the direct-local fallback",
	}, []string{"operation"})

	// ProbeAttemptsTotal counts readiness probe attempts.
	ProbeAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stackpilot_probe_attempts_total",
		Help: "The total number of daemon readiness probe attempts",
	})
)

// MetricsHandler returns the HTTP handler for Prometheus metrics, served when
// the installer runs with --metrics-addr.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// IncDaemonCall increments the call counter for one command outcome.
func IncDaemonCall(command, outcome string) {
	DaemonCallsTotal.WithLabelValues(command, outcome).Inc()
}

// IncFallback increments the fallback counter for an operation.
func IncFallback(operation string) {
	FallbacksTotal.WithLabelValues(operation).Inc()
}

// IncProbeAttempt increments the readiness probe counter.
func IncProbeAttempt() {
	ProbeAttemptsTotal.Inc()
}
