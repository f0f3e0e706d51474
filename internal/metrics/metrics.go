package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()
	// Transitions counts committed lifecycle transitions by entity and action.
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleet_transitions_total", Help: "Committed lifecycle transitions."},
		[]string{"entity", "action"},
	)
	// TransitionErrors counts rejected lifecycle operations by entity and reason.
	TransitionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleet_transition_errors_total", Help: "Rejected lifecycle operations."},
		[]string{"entity", "reason"},
	)
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(Transitions)
		Registry.MustRegister(TransitionErrors)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
