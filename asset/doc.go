// Package asset implements the game asset loading and caching engine:
// fetching, deduplicating, queueing, retrying and caching assets (textures,
// audio, JSON data) under device-aware resource constraints.
//
// Design
//
//   - Dedup: at most one queued or in-flight load exists per key. Every
//     Load for a key already underway returns the same Handle, so a loader
//     is invoked at most once per key per cycle.
//
//   - Scheduling: pending requests sit in a priority queue (descending
//     priority, stable FIFO among equals). A single scheduler goroutine,
//     woken on enqueue and on slot-free, drains it while the number of
//     in-flight loads stays under the concurrency cap. There is no interval
//     polling and no overlapping scheduler passes.
//
//   - Retries and timeouts: a failed load is requeued at the front until
//     its retry budget is spent, then its handle rejects with a RetryError.
//     A per-entry timer rejects the handle on expiry without stopping the
//     loader; a result arriving later is still cached and served to the
//     next Load. This mirrors the engine's historical behavior and is
//     covered by tests rather than "fixed".
//
//   - Caching: loaded assets live in an in-memory table and, unless marked
//     NoCache, in a cache backend (volatile LRU or persistent badger
//     store). Unload removes an asset from both holders.
//
//   - Memory: tracked usage above the pressure threshold triggers backend
//     eviction to a target plus unloading of stale in-memory assets, either
//     on demand (OptimizeMemory), on a periodic check, or when the backend
//     reports pressure.
//
//   - Device awareness: a read-only DeviceProfile injected at construction
//     sizes the concurrency cap, cache budget and default timeout/retry/
//     quality knobs. The manager performs no device detection itself.
//
// Basic usage
//
//	m := asset.New(asset.Options{
//	    Device: asset.DeviceProfile{Tier: asset.TierMid, AvailableMemoryMB: 2048},
//	})
//	defer m.Close()
//	m.Register(loaders.NewFile("assets"))
//
//	h := m.Load(asset.Descriptor{Key: "tex/hero", Type: "texture", Source: "hero.png"})
//	a, err := h.Wait(ctx)
//
// Batches fan many keys through the same queue and report partial success:
//
//	results, errs := m.LoadBatch(ctx, descriptors)
//
// Observability: every state change emits an Event to Options.OnEvent, and
// Options.Metrics receives counters/gauges (a Prometheus adapter lives in
// metrics/prom).
package asset
