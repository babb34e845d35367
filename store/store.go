// Package store defines the cache backend contract shared by the volatile
// in-memory store and the persistent badger-backed store. A store is a
// key→value holder with byte/item budgets; every insertion is followed by
// eviction until the budgets hold again, so the budget is an invariant, not
// a soft target.
package store

import "time"

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy — removed by the eviction policy while trimming to the
	// item budget.
	EvictPolicy EvictReason = iota
	// EvictTTL — expired (lazy, detected on access).
	EvictTTL
	// EvictCapacity — removed to satisfy the byte budget or an explicit
	// eviction target.
	EvictCapacity
)

// Store is a bounded key→value cache backend. All methods are safe for
// concurrent use.
//
// Implementations differ in durability only: the memory store loses its
// contents on Close, the badger store survives process restarts.
type Store[K comparable, V any] interface {
	// Get returns the value for k and a presence flag. A hit refreshes the
	// entry's recency; an expired entry is evicted and reported as a miss.
	Get(k K) (V, bool)

	// Set inserts or updates k→v with the store's default TTL (if any),
	// then evicts as needed to restore the byte/item budgets.
	Set(k K, v V)

	// SetWithTTL is Set with a per-entry TTL. Non-positive ttl disables
	// expiry for this entry.
	SetWithTTL(k K, v V, ttl time.Duration)

	// Delete removes k if present and reports whether it was resident.
	Delete(k K) bool

	// Evict removes least-recently-used entries until the store holds at
	// most targetBytes. A non-positive target means the configured byte
	// budget. Returns the number of bytes freed.
	Evict(targetBytes int64) int64

	// Len returns the number of resident entries.
	Len() int

	// SizeBytes returns the total tracked size of resident entries.
	SizeBytes() int64

	// OnPressure registers a callback invoked when usage crosses the
	// store's pressure watermark. Callbacks must be lightweight and must
	// not call back into the store synchronously.
	OnPressure(func(usedBytes, budgetBytes int64))

	// Close releases resources. The memory store discards its contents;
	// the persistent store flushes them.
	Close() error
}

// Metrics exposes store-level observability hooks. NoopMetrics is the
// default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, bytes int64)
}

// NoopMetrics is a Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(int, int64)   {}

var _ Metrics = NoopMetrics{}

// Clock provides time in UnixNano; useful for deterministic TTL tests.
type Clock interface{ NowUnixNano() int64 }
