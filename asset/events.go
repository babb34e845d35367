package asset

// EventType identifies an observable manager event.
type EventType string

// Cache lookup events.
const (
	// EventCacheHit records a Load served from the in-memory table or the
	// cache backend.
	EventCacheHit EventType = "cache.hit"
	// EventCacheMiss records a Load that found nothing cached.
	EventCacheMiss EventType = "cache.miss"
)

// Single-load lifecycle events.
const (
	// EventLoadStarted records a queue entry being dispatched to a loader.
	EventLoadStarted EventType = "load.started"
	// EventLoaded records a successful load.
	EventLoaded EventType = "load.loaded"
	// EventLoadFailed records a terminal failure (no loader, timeout,
	// retries exhausted).
	EventLoadFailed EventType = "load.failed"
)

// Batch events.
const (
	EventBatchStarted   EventType = "batch.started"
	EventBatchProgress  EventType = "batch.progress"
	EventBatchCompleted EventType = "batch.completed"
)

// Bundle events.
const (
	EventBundleStarted   EventType = "bundle.started"
	EventBundleCompleted EventType = "bundle.completed"
	EventBundleFailed    EventType = "bundle.failed"
)

// Memory events.
const (
	// EventMemoryPressure records tracked memory crossing the pressure
	// threshold (from the cache backend or the periodic check).
	EventMemoryPressure EventType = "memory.pressure"
	// EventMemoryOptimized records a completed OptimizeMemory pass; Bytes
	// carries the amount freed.
	EventMemoryOptimized EventType = "memory.optimized"
	// EventUnloaded records an asset removed from the in-memory table.
	EventUnloaded EventType = "asset.unloaded"
)

// Event is delivered synchronously to Options.OnEvent. Handlers must be
// lightweight and must not call back into the Manager.
type Event struct {
	Type     EventType
	Key      Key
	BatchID  uint64
	BundleID string
	Err      error

	// Bytes is the payload size for load events and the amount freed for
	// memory events.
	Bytes int64

	// Completed/Total carry batch progress.
	Completed int
	Total     int
}
