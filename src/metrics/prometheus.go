package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes monitoring and execution counters to Prometheus.
type Recorder struct {
	registry      *prometheus.Registry
	alertsTotal   *prometheus.CounterVec
	ticksTotal    prometheus.Counter
	checkFailures *prometheus.CounterVec
	ordersTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder backed by its own registry, so several instances can
// coexist in tests.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		alertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wealthflow_alerts_total",
				Help: "Total number of alerts generated",
			},
			[]string{"type", "urgency"},
		),
		ticksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wealthflow_monitor_ticks_total",
				Help: "Total number of monitoring ticks run",
			},
		),
		checkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wealthflow_monitor_check_failures_total",
				Help: "Total number of failed per-asset checks",
			},
			[]string{"category"},
		),
		ordersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wealthflow_orders_total",
				Help: "Total number of orders submitted by status",
			},
			[]string{"status"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wealthflow_last_price",
				Help: "Last observed close for a monitored symbol",
			},
			[]string{"symbol"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wealthflow_operation_duration_seconds",
				Help:    "Duration of monitoring operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordAlert(alertType, urgency string) {
	r.alertsTotal.WithLabelValues(alertType, urgency).Inc()
}

func (r *Recorder) RecordTick() {
	r.ticksTotal.Inc()
}

func (r *Recorder) RecordCheckFailure(category string) {
	r.checkFailures.WithLabelValues(category).Inc()
}

func (r *Recorder) RecordOrder(status string) {
	r.ordersTotal.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
