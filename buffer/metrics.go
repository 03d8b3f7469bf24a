package buffer

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of prometheus collectors the Coordinator updates
// as it pins, unpins, evicts, and flushes. Callers register these
// against a registry of their own choosing (never the global default
// registry) and are responsible for exposing them however they see
// fit; this package never starts an HTTP server.
type Metrics struct {
	PinHits        prometheus.Counter
	PinMisses      prometheus.Counter
	Evictions      *prometheus.CounterVec
	BufferAborts   prometheus.Counter
	DirtyFlushes   prometheus.Counter
	AvailableGauge prometheus.Gauge
}

// NewMetrics builds and registers a Metrics set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PinHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bufferpool_pin_hits_total",
			Help: "Pin calls served by a block already resident in the pool.",
		}),
		PinMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bufferpool_pin_misses_total",
			Help: "Pin calls that required allocation or eviction.",
		}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bufferpool_evictions_total",
			Help: "Frames evicted by the victim selector, labeled by selection reason.",
		}, []string{"reason"}),
		BufferAborts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bufferpool_aborts_total",
			Help: "Pin calls that aborted after waiting MaxWait for a frame.",
		}),
		DirtyFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bufferpool_dirty_flushes_total",
			Help: "Frames flushed, whether by eviction or FlushAll.",
		}),
		AvailableGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bufferpool_available_frames",
			Help: "Current count of unpinned-or-unallocated frame slots.",
		}),
	}

	reg.MustRegister(m.PinHits, m.PinMisses, m.Evictions, m.BufferAborts, m.DirtyFlushes, m.AvailableGauge)
	return m
}

// victimReason labels for the Evictions counter vector.
const (
	reasonUnderK = "under_k"
	reasonLRUK   = "lru_k"
)

// prometheusNopRegisterer discards every collector registered with it,
// for NewCoordinator callers that don't pass their own Metrics.
type prometheusNopRegisterer struct{}

func (prometheusNopRegisterer) Register(prometheus.Collector) error { return nil }
func (prometheusNopRegisterer) MustRegister(...prometheus.Collector) {}
func (prometheusNopRegisterer) Unregister(prometheus.Collector) bool { return true }
