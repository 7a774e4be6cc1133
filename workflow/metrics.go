package workflow

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus instrumentation for task execution, namespaced
// "agentflow_". It mirrors the teacher engine's PrometheusMetrics shape,
// adapted to this engine's task/attempt vocabulary instead of nodes/steps.
type Metrics struct {
	inflightTasks prometheus.Gauge
	stepLatency   *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	breakpoints   *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewMetrics registers every metric with registry. Pass nil to use the
// global default registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	m := &Metrics{enabled: true}

	m.inflightTasks = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentflow",
		Name:      "inflight_tasks",
		Help:      "Current number of tasks executing concurrently across all workflows",
	})

	m.stepLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentflow",
		Name:      "task_latency_ms",
		Help:      "Task attempt duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
	}, []string{"workflow_id", "task_name", "status"})

	m.retries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentflow",
		Name:      "retries_total",
		Help:      "Cumulative count of task retry attempts",
	}, []string{"workflow_id", "task_name"})

	m.breakpoints = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentflow",
		Name:      "breakpoints_total",
		Help:      "Cumulative count of interrupts that paused a workflow at a breakpoint",
	}, []string{"workflow_id", "task_name"})

	return m
}

func (m *Metrics) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// RecordTaskLatency observes one attempt's duration under the given status
// ("success", "error", "timeout").
func (m *Metrics) RecordTaskLatency(workflowID, taskName, status string, ms float64) {
	if m == nil || !m.isEnabled() {
		return
	}
	m.stepLatency.WithLabelValues(workflowID, taskName, status).Observe(ms)
}

// IncrementRetries records one more retry attempt for taskName.
func (m *Metrics) IncrementRetries(workflowID, taskName string) {
	if m == nil || !m.isEnabled() {
		return
	}
	m.retries.WithLabelValues(workflowID, taskName).Inc()
}

// IncrementBreakpoints records one more interrupt for taskName.
func (m *Metrics) IncrementBreakpoints(workflowID, taskName string) {
	if m == nil || !m.isEnabled() {
		return
	}
	m.breakpoints.WithLabelValues(workflowID, taskName).Inc()
}

// SetInflightTasks sets the current concurrently-executing task count.
func (m *Metrics) SetInflightTasks(n int) {
	if m == nil || !m.isEnabled() {
		return
	}
	m.inflightTasks.Set(float64(n))
}

// Disable stops metric recording (useful in tests sharing a registry).
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// Enable resumes metric recording after Disable.
func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}
