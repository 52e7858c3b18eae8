// Package prommetrics exports loader metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/assetload"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Collector implements assetload.MetricsCollector on Prometheus vectors.
type Collector struct {
	fetchLatency  *prometheus.HistogramVec
	fetchBytes    *prometheus.CounterVec
	decodeLatency *prometheus.HistogramVec
	loads         *prometheus.CounterVec
	loadLatency   *prometheus.HistogramVec
	cancels       *prometheus.CounterVec
	activeTasks   prometheus.Gauge
}

var _ assetload.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers it with reg.
// It panics if a metric with the same name is already registered.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if namespace == "" {
		namespace = "assetload"
	}

	c := &Collector{
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of backend reads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"location", "status"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_bytes_total",
			Help:      "Bytes read from backends",
		}, []string{"location"}),
		decodeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Latency of artifact decoding",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Loads that reached a finished state",
		}, []string{"mode", "status"}),
		loadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time from task creation to completion",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		cancels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Unfinished loads disposed, by the state they were in",
		}, []string{"state"}),
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tasks",
			Help:      "Tasks currently held by the registry",
		}),
	}

	reg.MustRegister(
		c.fetchLatency,
		c.fetchBytes,
		c.decodeLatency,
		c.loads,
		c.loadLatency,
		c.cancels,
		c.activeTasks,
	)
	return c
}

// RecordFetch implements assetload.MetricsCollector.
func (c *Collector) RecordFetch(location assetload.StorageLocation, bytes int, duration time.Duration, err error) {
	loc := location.String()
	c.fetchLatency.WithLabelValues(loc, status(err == nil)).Observe(duration.Seconds())
	if err == nil && bytes > 0 {
		c.fetchBytes.WithLabelValues(loc).Add(float64(bytes))
	}
}

// RecordDecode implements assetload.MetricsCollector.
func (c *Collector) RecordDecode(duration time.Duration, ok bool) {
	c.decodeLatency.WithLabelValues(status(ok)).Observe(duration.Seconds())
}

// RecordLoad implements assetload.MetricsCollector.
func (c *Collector) RecordLoad(mode assetload.Mode, duration time.Duration, ok bool) {
	m := mode.String()
	c.loads.WithLabelValues(m, status(ok)).Inc()
	c.loadLatency.WithLabelValues(m).Observe(duration.Seconds())
}

// RecordCancel implements assetload.MetricsCollector.
func (c *Collector) RecordCancel(state assetload.State) {
	c.cancels.WithLabelValues(state.String()).Inc()
}

// RecordActiveTasks implements assetload.MetricsCollector.
func (c *Collector) RecordActiveTasks(n int) {
	c.activeTasks.Set(float64(n))
}

func status(ok bool) string {
	if ok {
		return statusOK
	}
	return statusError
}
