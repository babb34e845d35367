package asset

import (
	"log/slog"
	"time"

	"github.com/gamebyte-ai/gamebyte-assets/store"
)

// Backend is the cache backend the manager writes loaded assets through.
// Both store/memory and store/badgerstore satisfy it.
type Backend = store.Store[string, []byte]

// Clock provides wall time; override it in tests for deterministic
// staleness checks.
type Clock interface{ Now() time.Time }

// Options configures a Manager. The zero value of every field is safe:
// New derives missing knobs from the DeviceProfile (see defaultsFor) and
// falls back to a memory store, a discarding logger and no-op metrics.
type Options struct {
	// Device is the injected read-only device classification. Its tier
	// drives the default concurrency cap, cache budget, timeout, retry
	// count and quality hint.
	Device DeviceProfile

	// MaxConcurrent caps in-flight loads (0 = tier default).
	MaxConcurrent int

	// MemoryLimit is the tracked-memory budget in bytes across the
	// in-memory table and the cache backend (0 = tier default).
	MemoryLimit int64

	// PressureThreshold is the fraction of MemoryLimit at which
	// OptimizeMemory starts evicting (default 0.8).
	PressureThreshold float64

	// EvictTo is the fraction of MemoryLimit the cache backend is evicted
	// down to during OptimizeMemory (default 0.6).
	EvictTo float64

	// StaleAfter is the in-memory staleness window: assets loaded longer
	// ago are unloaded during OptimizeMemory (default 5m).
	StaleAfter time.Duration

	// DefaultTimeout, DefaultRetries and DefaultQuality override the tier
	// defaults for descriptors that leave them unset.
	DefaultTimeout time.Duration
	DefaultRetries int
	DefaultQuality Quality

	// Cache is the backend loaded assets are written through. Nil builds a
	// memory store sized to the derived memory limit.
	Cache Backend

	// MemoryCheckInterval enables a periodic OptimizeMemory check
	// (0 = disabled; pressure callbacks from the backend still fire).
	MemoryCheckInterval time.Duration

	Metrics Metrics
	Logger  *slog.Logger

	// OnEvent receives every observable event, synchronously. Keep
	// handlers lightweight; they must not call back into the Manager.
	OnEvent func(Event)

	// Clock overrides the time source (tests). Nil means time.Now.
	Clock Clock
}
