// Package metrics exposes Prometheus instrumentation for the projection
// surfaces. The zone engine itself stays uninstrumented; surfaces report
// results after the fact.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/pslang/internal/model"
)

const namespace = "pslang"

// Surface labels.
const (
	SurfaceGRPC   = "grpc"
	SurfaceMCP    = "mcp"
	SurfaceDaemon = "daemon"
	SurfaceCLI    = "cli"
	SurfaceSDK    = "sdk"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	ZonesParsed     *prometheus.CounterVec
	ZonesRemoved    *prometheus.CounterVec
	TokensRemoved   *prometheus.CounterVec
	OverlapDocs     *prometheus.CounterVec
	Transforms      *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
	PolicyReloads   *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	return NewWith(prometheus.NewRegistry())
}

// NewWith registers the collectors on reg. Handler serves reg when it is
// also a Gatherer, else the default registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		ZonesParsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zones_parsed_total",
			Help:      "Zones found by the parser, by zone type.",
		}, []string{"surface", "zone_type"}),
		ZonesRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zones_removed_total",
			Help:      "Zones removed by projections, by zone type and audience.",
		}, []string{"surface", "zone_type", "audience"}),
		TokensRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_removed_estimate_total",
			Help:      "Estimated tokens (bytes/4) removed by projections.",
		}, []string{"surface", "audience"}),
		OverlapDocs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlapping_documents_total",
			Help:      "Documents projected with overlapping zones.",
		}, []string{"surface"}),
		Transforms: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transforms_total",
			Help:      "Conversations transformed, by detected intent.",
		}, []string{"surface", "intent"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by surface and operation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
		}, []string{"surface", "op"}),
		RequestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Rejected requests by surface and operation.",
		}, []string{"surface", "op"}),
		PolicyReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_reloads_total",
			Help:      "Policy reload attempts by result.",
		}, []string{"result"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-caller rate limit.",
		}, []string{"surface"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.registry = g
	}
	return m
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveParse counts zones found in a parse.
func (m *Metrics) ObserveParse(surface string, zones []model.Zone) {
	if m == nil {
		return
	}
	for _, z := range zones {
		m.ZonesParsed.WithLabelValues(surface, string(z.Type)).Inc()
	}
}

// ObserveFilter counts what a projection for audience removed. kept reports
// whether a zone type survived the policy in use.
func (m *Metrics) ObserveFilter(surface, audience string, res model.FilterResult, kept func(model.ZoneType) bool) {
	if m == nil {
		return
	}
	m.ObserveParse(surface, res.Zones)
	for _, z := range res.Zones {
		if kept == nil || !kept(z.Type) {
			m.ZonesRemoved.WithLabelValues(surface, string(z.Type), audience).Inc()
		}
	}
	m.TokensRemoved.WithLabelValues(surface, audience).Add(float64(res.Stats.TokensRemovedEstimate))
	if res.Stats.Overlapping > 0 {
		m.OverlapDocs.WithLabelValues(surface).Inc()
	}
}

// ObserveTransform counts a transform by its intent tag.
func (m *Metrics) ObserveTransform(surface string, res model.TransformResult) {
	if m == nil {
		return
	}
	intent := "general"
	for _, tag := range res.Tags {
		if v, ok := strings.CutPrefix(tag, "intent:"); ok {
			intent = v
			break
		}
	}
	m.Transforms.WithLabelValues(surface, intent).Inc()
}

// ObserveRequest records latency since start, and an error when failed.
func (m *Metrics) ObserveRequest(surface, op string, start time.Time, failed bool) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(surface, op).Observe(time.Since(start).Seconds())
	if failed {
		m.RequestErrors.WithLabelValues(surface, op).Inc()
	}
}

// ObserveReload counts a policy reload attempt.
func (m *Metrics) ObserveReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PolicyReloads.WithLabelValues(result).Inc()
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func (m *Metrics) ObserveRateLimited(surface string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(surface).Inc()
}
