// Package memory provides the volatile cache backend: a sharded in-memory
// store with byte/item budgets, pluggable eviction policy (LRU by default),
// per-entry TTL and a memory-pressure callback. Contents do not survive
// Close.
package memory

import (
	"sync/atomic"
	"time"

	"github.com/gamebyte-ai/gamebyte-assets/internal/util"
	"github.com/gamebyte-ai/gamebyte-assets/policy"
	"github.com/gamebyte-ai/gamebyte-assets/policy/lru"
	"github.com/gamebyte-ai/gamebyte-assets/store"
)

// Options configures the memory store. Zero values get sane defaults in
// New: nil Policy means LRU, nil Metrics means NoopMetrics, Shards <= 0
// picks an automatic power-of-two count, nil SizeOf charges one byte per
// entry.
type Options[K comparable, V any] struct {
	// MaxBytes is the total byte budget. Required (> 0); the budget is
	// split evenly across shards.
	MaxBytes int64

	// MaxItems limits the number of resident entries (0 = unbounded).
	MaxItems int

	// Shards is the number of partitions; rounded up to a power of two.
	Shards int

	// Policy is the eviction policy; nil means LRU.
	Policy policy.Policy[K]

	// DefaultTTL applies to Set when no per-entry TTL is given (0 = none).
	DefaultTTL time.Duration

	// SizeOf reports the tracked size of a value in bytes. Nil charges 1
	// per entry, which degenerates MaxBytes into an item budget.
	SizeOf func(V) int64

	// PressureRatio is the fraction of MaxBytes at which the OnPressure
	// callback fires (default 0.9).
	PressureRatio float64

	// OnEvict is called for every eviction, under the shard lock.
	OnEvict func(k K, v V, reason store.EvictReason)

	Metrics store.Metrics

	// Clock overrides the time source (tests). Nil means time.Now.
	Clock store.Clock
}

// Store is the sharded in-memory implementation of store.Store.
type Store[K comparable, V any] struct {
	shards   []*shard[K, V]
	hash     func(K) uint64
	opt      Options[K, V]
	maxBytes int64
	closed   atomic.Bool

	pressure   atomic.Pointer[func(used, budget int64)]
	inPressure atomic.Bool // high-water latch: fire once per crossing
}

var _ store.Store[string, []byte] = (*Store[string, []byte])(nil)

// New constructs a memory store with the provided Options.
func New[K comparable, V any](opt Options[K, V]) *Store[K, V] {
	if opt.MaxBytes <= 0 {
		panic("memory: MaxBytes must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = store.NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K]()
	}
	if opt.PressureRatio <= 0 || opt.PressureRatio > 1 {
		opt.PressureRatio = 0.9
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	perShardBytes := (opt.MaxBytes + int64(sh) - 1) / int64(sh)
	perShardItems := 0
	if opt.MaxItems > 0 {
		perShardItems = (opt.MaxItems + sh - 1) / sh
	}

	cs := make([]*shard[K, V], sh)
	for i := range cs {
		cs[i] = newShard(perShardBytes, perShardItems, opt.Policy, opt)
	}
	return &Store[K, V]{
		shards:   cs,
		hash:     util.Fnv64a[K],
		opt:      opt,
		maxBytes: opt.MaxBytes,
	}
}

// Get returns the value for k, promoting it on hit.
func (c *Store[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).Get(k)
}

// Set inserts or updates k→v with the default TTL.
func (c *Store[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.opt.DefaultTTL)
}

// SetWithTTL inserts or updates k→v with a per-entry TTL.
func (c *Store[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	c.getShard(k).Set(k, v, c.deadline(ttl), c.sizeOf(v))
	c.checkPressure()
}

// Delete removes k if present.
func (c *Store[K, V]) Delete(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).Delete(k)
}

// Evict removes least-recently-used entries until at most targetBytes
// remain. A non-positive target means the configured byte budget. The
// target is split across shards, so with many shards the per-shard recency
// order is approximate while the byte bound is exact.
func (c *Store[K, V]) Evict(targetBytes int64) int64 {
	if c.closed.Load() {
		return 0
	}
	if targetBytes <= 0 || targetBytes > c.maxBytes {
		targetBytes = c.maxBytes
	}
	perShard := targetBytes / int64(len(c.shards))
	var freed int64
	for _, s := range c.shards {
		freed += s.EvictTo(perShard)
	}
	return freed
}

// Len returns the total number of resident entries across all shards.
func (c *Store[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// SizeBytes returns the total tracked size across all shards.
func (c *Store[K, V]) SizeBytes() int64 {
	var total int64
	for _, s := range c.shards {
		total += s.SizeBytes()
	}
	return total
}

// OnPressure registers the memory-pressure callback. It fires once each
// time usage crosses PressureRatio×MaxBytes from below.
func (c *Store[K, V]) OnPressure(cb func(usedBytes, budgetBytes int64)) {
	c.pressure.Store(&cb)
}

// Close marks the store closed and discards its contents.
func (c *Store[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// ---- helpers ----

func (c *Store[K, V]) getShard(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}

func (c *Store[K, V]) sizeOf(v V) int64 {
	if c.opt.SizeOf == nil {
		return 1
	}
	if n := c.opt.SizeOf(v); n > 0 {
		return n
	}
	return 0
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
func (c *Store[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	now := time.Now().UnixNano()
	if c.opt.Clock != nil {
		now = c.opt.Clock.NowUnixNano()
	}
	return now + int64(ttl)
}

func (c *Store[K, V]) checkPressure() {
	p := c.pressure.Load()
	if p == nil {
		return
	}
	used := c.SizeBytes()
	mark := int64(c.opt.PressureRatio * float64(c.maxBytes))
	if used >= mark {
		if c.inPressure.CompareAndSwap(false, true) {
			(*p)(used, c.maxBytes)
		}
	} else {
		c.inPressure.Store(false)
	}
}
