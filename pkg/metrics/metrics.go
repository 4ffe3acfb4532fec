package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the Prometheus collectors for the order pipeline and the
// background refill worker.
type Metrics struct {
	registry *prometheus.Registry

	ordersProcessed  *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	tracesAppended   prometheus.Counter
	procurementSent  prometheus.Counter
	sweepRuns        *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	sweepAlertsFound prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		ordersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharma_orders_processed_total",
			Help: "Order pipeline runs by terminal status.",
		}, []string{"status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pharma_pipeline_step_duration_seconds",
			Help:    "Duration of individual pipeline steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent"}),
		tracesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharma_trace_entries_appended_total",
			Help: "Trace entries written to the audit store.",
		}),
		procurementSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharma_procurement_signals_total",
			Help: "Procurement signals published after low-stock deductions.",
		}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharma_refill_sweep_runs_total",
			Help: "Refill worker sweeps by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pharma_refill_sweep_duration_seconds",
			Help:    "Duration of refill worker sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		sweepAlertsFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pharma_refill_sweep_alerts",
			Help: "Refill alerts found by the most recent sweep.",
		}),
	}

	registry.MustRegister(
		m.ordersProcessed,
		m.stepDuration,
		m.tracesAppended,
		m.procurementSent,
		m.sweepRuns,
		m.sweepDuration,
		m.sweepAlertsFound,
	)
	return m
}

// ObserveOrder records one completed pipeline run.
func (m *Metrics) ObserveOrder(status string) {
	m.ordersProcessed.WithLabelValues(status).Inc()
}

// ObserveStep records the duration of a named pipeline step.
func (m *Metrics) ObserveStep(agent string, d time.Duration) {
	m.stepDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// ObserveTraceAppend counts one audit trace write.
func (m *Metrics) ObserveTraceAppend() {
	m.tracesAppended.Inc()
}

// ObserveProcurementSignal counts one published procurement signal.
func (m *Metrics) ObserveProcurementSignal() {
	m.procurementSent.Inc()
}

// ObserveSweep records a refill worker sweep.
func (m *Metrics) ObserveSweep(outcome string, d time.Duration, alerts int) {
	m.sweepRuns.WithLabelValues(outcome).Inc()
	m.sweepDuration.Observe(d.Seconds())
	if outcome == "success" {
		m.sweepAlertsFound.Set(float64(alerts))
	}
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
