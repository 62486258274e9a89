package devs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// KernelMetrics exposes Prometheus-compatible gauges, counters and a
// histogram over the kernel's internal activity, namespaced "devs_".
// Adapted from the teacher's PrometheusMetrics (graph/metrics.go), with
// the workflow-engine metric set replaced by the bag-cycle equivalents:
// queue_depth becomes scheduler heap depth, inflight_nodes becomes
// current bag size, retries/merge-conflicts (which have no meaning for
// deterministic DEVS transitions, see DESIGN.md) are replaced by
// executive mutation counters and transition latency.
type KernelMetrics struct {
	schedulerDepth  prometheus.Gauge
	bagSize         prometheus.Gauge
	transitionTime  *prometheus.HistogramVec
	executiveOps    *prometheus.CounterVec
	sinkErrors      *prometheus.CounterVec
	blockClaims     prometheus.Counter

	mu      sync.RWMutex
	enabled bool
}

// NewKernelMetrics registers every metric against registry. A nil
// registry uses prometheus.DefaultRegisterer.
func NewKernelMetrics(registry prometheus.Registerer) *KernelMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &KernelMetrics{
		enabled: true,
		schedulerDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "devs",
			Name:      "scheduler_depth",
			Help:      "Number of simulators currently holding a scheduler heap entry",
		}),
		bagSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "devs",
			Name:      "bag_size",
			Help:      "Number of simulators in the current bag",
		}),
		transitionTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devs",
			Name:      "transition_duration_ms",
			Help:      "Wall-clock duration of a single simulator transition in milliseconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		}, []string{"kind"}), // kind: internal, external, confluent
		executiveOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devs",
			Name:      "executive_mutations_total",
			Help:      "Executive graph mutations applied, by kind",
		}, []string{"kind"}),
		sinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devs",
			Name:      "sink_errors_total",
			Help:      "Sink write failures, by view name",
		}, []string{"view"}),
		blockClaims: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devs",
			Name:      "worker_block_claims_total",
			Help:      "Blocks of simulators claimed by worker-pool goroutines",
		}),
	}
}

func (m *KernelMetrics) SetSchedulerDepth(n int) {
	if !m.isEnabled() {
		return
	}
	m.schedulerDepth.Set(float64(n))
}

func (m *KernelMetrics) SetBagSize(n int) {
	if !m.isEnabled() {
		return
	}
	m.bagSize.Set(float64(n))
}

func (m *KernelMetrics) ObserveTransition(kind string, d time.Duration) {
	if !m.isEnabled() {
		return
	}
	m.transitionTime.WithLabelValues(kind).Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *KernelMetrics) IncExecutiveOp(kind MutationKind) {
	if !m.isEnabled() {
		return
	}
	m.executiveOps.WithLabelValues(kind.String()).Inc()
}

func (m *KernelMetrics) IncSinkError(view string) {
	if !m.isEnabled() {
		return
	}
	m.sinkErrors.WithLabelValues(view).Inc()
}

func (m *KernelMetrics) IncBlockClaim() {
	if !m.isEnabled() {
		return
	}
	m.blockClaims.Inc()
}

func (m *KernelMetrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

func (m *KernelMetrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

func (m *KernelMetrics) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}
