// Package monitoring exposes crawl counters to Prometheus.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the crawler. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	PagesTotal    *prometheus.CounterVec
	RetriesTotal  prometheus.Counter
	RobotsFetches *prometheus.CounterVec
	LinksTotal    *prometheus.CounterVec
	ActiveWorkers prometheus.Gauge
}

// NewMetrics registers the crawler metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campuscrawl_pages_total",
			Help: "URLs taken from the frontier, by outcome",
		}, []string{"outcome"}), // e.g. 'completed', 'denied', 'skipped'
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "campuscrawl_download_retries_total",
			Help: "Download retries scheduled after a transient network failure",
		}),
		RobotsFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campuscrawl_robots_fetches_total",
			Help: "robots.txt fetches, by result",
		}, []string{"result"}),
		LinksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campuscrawl_links_total",
			Help: "Harvested candidate links, by verdict",
		}, []string{"verdict"}),
		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "campuscrawl_active_workers",
			Help: "Workers currently running",
		}),
	}
}

func (m *Metrics) IncPages(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) IncRobotsFetches(result string) {
	if m == nil {
		return
	}
	m.RobotsFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) IncLinks(verdict string) {
	if m == nil {
		return
	}
	m.LinksTotal.WithLabelValues(verdict).Inc()
}

// WorkerStarted and WorkerStopped track the active worker gauge.
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Inc()
}

func (m *Metrics) WorkerStopped() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Dec()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
