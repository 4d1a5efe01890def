// ABOUTME: Prometheus counters for responses and asset bytes served by the site router.
// ABOUTME: Uses a private registry so tests and multiple servers never collide on global state.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "siteview"

// Recorder collects per-response metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	responses  *prometheus.CounterVec
	assetBytes *prometheus.CounterVec
}

// New creates a Recorder with its own registry, including the standard Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses written, by route kind and HTTP status.",
		}, []string{"route", "status"}),
		assetBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_bytes_total",
			Help:      "Asset body bytes written, by route kind.",
		}, []string{"route"}),
	}
}

// ObserveResponse counts one response for route with the given status.
func (r *Recorder) ObserveResponse(route string, status int) {
	if r == nil {
		return
	}
	r.responses.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveAssetBytes adds n body bytes to the asset counter for route.
func (r *Recorder) ObserveAssetBytes(route string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.assetBytes.WithLabelValues(route).Add(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
