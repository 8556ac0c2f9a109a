// Package metrics exposes Prometheus metrics for mimic controllers and the
// dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mimic"

// Collector holds the mimic metrics and the registry they are exposed from.
type Collector struct {
	registry *prometheus.Registry

	updatesTotal     prometheus.Counter
	updateDuration   prometheus.Histogram
	mutationsTotal   *prometheus.CounterVec
	evalErrorsTotal  *prometheus.CounterVec
	rulesRejected    prometheus.Counter
	bindings         prometheus.Gauge
	initialised      prometheus.Gauge
	fetchErrorsTotal prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpPending  prometheus.Gauge
	wsClients    prometheus.Gauge
}

// NewCollector creates a collector on its own registry, together with the
// Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		updatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telemetry batches applied to the mimic",
		}),
		updateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time to evaluate and apply one telemetry batch",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "DOM mutations applied, by aspect",
		}, []string{"aspect"}),
		evalErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_errors_total",
			Help:      "Rules that failed during evaluation or application, by aspect",
		}, []string{"aspect"}),
		rulesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_rejected_total",
			Help:      "Rule attributes that failed to compile",
		}),
		bindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bindings",
			Help:      "Distinct parameter bindings in the loaded mimic",
		}),
		initialised: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "initialised",
			Help:      "1 while a mimic is loaded",
		}),
		fetchErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed attempts to load the mimic drawing",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Dashboard HTTP requests",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Dashboard HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		httpPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "pending_requests",
			Help:      "Dashboard HTTP requests in progress",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
	}

	c.registry.MustRegister(
		c.updatesTotal, c.updateDuration, c.mutationsTotal, c.evalErrorsTotal,
		c.rulesRejected, c.bindings, c.initialised, c.fetchErrorsTotal,
		c.httpRequests, c.httpDuration, c.httpPending, c.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *Collector) UpdateObserved(d time.Duration) {
	c.updatesTotal.Inc()
	c.updateDuration.Observe(d.Seconds())
}

func (c *Collector) MutationApplied(aspect string) {
	c.mutationsTotal.WithLabelValues(aspect).Inc()
}

func (c *Collector) EvaluationFailed(aspect string) {
	c.evalErrorsTotal.WithLabelValues(aspect).Inc()
}

func (c *Collector) RuleRejected() { c.rulesRejected.Inc() }

func (c *Collector) FetchFailed() { c.fetchErrorsTotal.Inc() }

func (c *Collector) Loaded(bindings int) {
	c.bindings.Set(float64(bindings))
	c.initialised.Set(1)
}

func (c *Collector) Unloaded() {
	c.bindings.Set(0)
	c.initialised.Set(0)
}

func (c *Collector) ClientConnected()    { c.wsClients.Inc() }
func (c *Collector) ClientDisconnected() { c.wsClients.Dec() }
