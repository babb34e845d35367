// Package prom exports manager and store metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gamebyte-ai/gamebyte-assets/asset"
	"github.com/gamebyte-ai/gamebyte-assets/store"
)

// Manager implements asset.Metrics on Prometheus counters/gauges. Safe for
// concurrent use; all Prometheus metric types are goroutine-safe.
type Manager struct {
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	loadsStarted prometheus.Counter
	loadsDone    *prometheus.CounterVec
	loadSeconds  prometheus.Histogram
	retries      prometheus.Counter
	queueDepth   prometheus.Gauge
	activeLoads  prometheus.Gauge
	freedBytes   prometheus.Counter
}

// NewManager constructs a Prometheus adapter for the asset manager.
//   - reg:         registry to register metrics with (nil => DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func NewManager(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Manager {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Manager{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "cache_hits_total",
			Help: "Loads served from the table or cache backend", ConstLabels: constLabels,
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "cache_misses_total",
			Help: "Loads that found nothing cached", ConstLabels: constLabels,
		}),
		loadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "loads_started_total",
			Help: "Loader dispatches (retries included)", ConstLabels: constLabels,
		}),
		loadsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "loads_finished_total",
			Help: "Loader attempts finished, by result", ConstLabels: constLabels,
		}, []string{"result"}),
		loadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "load_duration_seconds",
			Help: "Loader attempt duration", ConstLabels: constLabels,
			Buckets: prometheus.DefBuckets,
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "retries_total",
			Help: "Failed attempts requeued for retry", ConstLabels: constLabels,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "queue_depth",
			Help: "Pending entries in the load queue", ConstLabels: constLabels,
		}),
		activeLoads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "active_loads",
			Help: "Loads currently in flight", ConstLabels: constLabels,
		}),
		freedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "memory_freed_bytes_total",
			Help: "Bytes freed by memory optimization", ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(
		a.cacheHits, a.cacheMisses, a.loadsStarted, a.loadsDone,
		a.loadSeconds, a.retries, a.queueDepth, a.activeLoads, a.freedBytes,
	)
	return a
}

func (a *Manager) CacheHit()    { a.cacheHits.Inc() }
func (a *Manager) CacheMiss()   { a.cacheMisses.Inc() }
func (a *Manager) LoadStarted() { a.loadsStarted.Inc() }

func (a *Manager) LoadFinished(ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	a.loadsDone.WithLabelValues(result).Inc()
	a.loadSeconds.Observe(d.Seconds())
}

func (a *Manager) Retry()                  { a.retries.Inc() }
func (a *Manager) QueueDepth(n int)        { a.queueDepth.Set(float64(n)) }
func (a *Manager) ActiveLoads(n int)       { a.activeLoads.Set(float64(n)) }
func (a *Manager) MemoryFreed(bytes int64) { a.freedBytes.Add(float64(bytes)) }

var _ asset.Metrics = (*Manager)(nil)

// Store implements store.Metrics on Prometheus counters/gauges.
type Store struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evicts    *prometheus.CounterVec
	sizeEnt   prometheus.Gauge
	sizeBytes prometheus.Gauge
}

// NewStore constructs a Prometheus adapter for a cache backend.
func NewStore(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Store {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Store{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "hits_total",
			Help: "Cache hits", ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "misses_total",
			Help: "Cache misses", ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "evictions_total",
			Help: "Cache evictions by reason", ConstLabels: constLabels,
		}, []string{"reason"}),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "size_entries",
			Help: "Number of resident entries", ConstLabels: constLabels,
		}),
		sizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "size_bytes",
			Help: "Total resident bytes", ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt, a.sizeBytes)
	return a
}

func (a *Store) Hit()  { a.hits.Inc() }
func (a *Store) Miss() { a.misses.Inc() }

func (a *Store) Evict(r store.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

func (a *Store) Size(entries int, bytes int64) {
	a.sizeEnt.Set(float64(entries))
	a.sizeBytes.Set(float64(bytes))
}

// reason maps EvictReason to a stable label value.
func reason(r store.EvictReason) string {
	switch r {
	case store.EvictTTL:
		return "ttl"
	case store.EvictCapacity:
		return "capacity"
	default:
		return "policy"
	}
}

var _ store.Metrics = (*Store)(nil)
