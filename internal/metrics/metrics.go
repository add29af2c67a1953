// Package metrics exposes Prometheus counters for the mediation pipeline.
// The registry is optional plumbing: when no metrics address is configured
// the counters still exist, they are just never scraped.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all dnsmcp metrics.
type Registry struct {
	reg *prometheus.Registry

	// Tool-call pipeline
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	RateLimited  *prometheus.CounterVec

	// Remote API client
	AuthAttempts *prometheus.CounterVec
	APICalls     *prometheus.CounterVec
}

// NewRegistry creates a metrics registry with all collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dnsmcp_tool_calls_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "result"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dnsmcp_tool_duration_seconds",
			Help:    "Tool handler latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dnsmcp_rate_limited_total",
			Help: "Invocations rejected by local admission control.",
		}, []string{"tool"}),
		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dnsmcp_auth_attempts_total",
			Help: "Authentication attempts against the remote API by action and outcome.",
		}, []string{"action", "result"}),
		APICalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dnsmcp_api_calls_total",
			Help: "Outbound remote API calls by endpoint status.",
		}, []string{"status"}),
	}
}

// ObserveToolCall records one completed tool invocation.
func (r *Registry) ObserveToolCall(tool, result string, duration time.Duration) {
	r.ToolCalls.WithLabelValues(tool, result).Inc()
	r.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// Handler returns the scrape endpoint handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve starts a scrape listener on addr. Blocks; run in a goroutine.
func (r *Registry) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return http.ListenAndServe(addr, mux)
}
