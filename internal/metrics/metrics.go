// Package metrics exposes editor counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Normalizations prometheus.Counter
	EditorEvents   *prometheus.CounterVec
	Saves          *prometheus.CounterVec
	Uploads        *prometheus.CounterVec
}

// New creates and registers the collectors. sessions reports the number of
// open editing sessions and may be nil.
func New(sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Normalizations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaceta_normalizations_total",
			Help: "HTML fragments run through the normalizer.",
		}),
		EditorEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaceta_editor_events_total",
			Help: "Editor events dispatched to the block state machine.",
		}, []string{"event"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaceta_saves_total",
			Help: "Article saves by result.",
		}, []string{"result"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaceta_uploads_total",
			Help: "Image uploads by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Normalizations, m.EditorEvents, m.Saves, m.Uploads,
	)
	if sessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gaceta_sessions_open",
			Help: "Open editing sessions.",
		}, func() float64 { return float64(sessions()) }))
	}
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultConflict = "conflict"
	ResultError    = "error"
)
