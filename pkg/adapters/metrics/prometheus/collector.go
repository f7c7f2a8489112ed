package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	emits           *prometheus.CounterVec
	emitErrors      *prometheus.CounterVec
	launchFailures  *prometheus.CounterVec
	suspendInterval *prometheus.GaugeVec
	workersRunning  prometheus.Gauge
	workersStopped  prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector registered on reg.
// A nil reg registers on the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		emits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dualrate_emits_total",
				Help: "Total number of lines emitted",
			},
			[]string{"worker"},
		),
		emitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dualrate_emit_errors_total",
				Help: "Total number of emits the output sink rejected",
			},
			[]string{"worker"},
		),
		launchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dualrate_launch_failures_total",
				Help: "Total number of workers that failed to launch",
			},
			[]string{"worker"},
		),
		suspendInterval: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dualrate_suspend_interval_seconds",
				Help: "Configured suspend interval per worker",
			},
			[]string{"worker"},
		),
		workersRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dualrate_workers_running",
				Help: "Number of running workers",
			},
		),
		workersStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dualrate_workers_stopped",
				Help: "Number of stopped workers",
			},
		),
	}
}

// IncEmits increments the count of emitted lines
func (c *Collector) IncEmits(worker string) {
	c.emits.WithLabelValues(worker).Inc()
}

// IncEmitErrors increments the count of failed emits
func (c *Collector) IncEmitErrors(worker string) {
	c.emitErrors.WithLabelValues(worker).Inc()
}

// IncLaunchFailures increments the count of launch failures
func (c *Collector) IncLaunchFailures(worker string) {
	c.launchFailures.WithLabelValues(worker).Inc()
}

// SetSuspendInterval records the configured suspend interval of a worker
func (c *Collector) SetSuspendInterval(worker string, interval time.Duration) {
	c.suspendInterval.WithLabelValues(worker).Set(interval.Seconds())
}

// RecordWorkerStatus records how many workers are running and stopped
func (c *Collector) RecordWorkerStatus(running, stopped int) {
	c.workersRunning.Set(float64(running))
	c.workersStopped.Set(float64(stopped))
}
