package asset

import "time"

// Key uniquely identifies one loadable asset.
type Key string

// State tracks an asset's journey. Transitions are forward-only:
// NotLoaded → Loading → {Loaded | Failed}. Failed assets are never cached;
// Unload returns a Loaded asset to NotLoaded with no memory of the cycle.
type State int

const (
	StateNotLoaded State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Quality is the load-quality hint forwarded to loaders (e.g. which mipmap
// chain or audio bitrate to fetch).
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// PriorityPreload is the priority used by Preload. Anything explicitly
// requested wins over background warming.
const PriorityPreload = -100

// Descriptor specifies one asset request. It is immutable once submitted.
//
// Zero-valued options inherit device-tier defaults at submission time:
// Timeout 0 and MaxRetries 0 take the tier default (MaxRetries < 0 disables
// retries), an empty Quality takes the tier hint.
type Descriptor struct {
	// Key identifies the asset. Two descriptors with the same Key share one
	// in-flight load regardless of their other fields.
	Key Key

	// Type selects the loader ("texture", "audio", "json", ...).
	Type string

	// Source locates the asset for the loader (path, URL, ...).
	Source string

	// Priority orders the queue; higher loads sooner. Ties preserve
	// submission order.
	Priority int

	// Timeout bounds the wait for this load. The timer rejects the pending
	// handle only; it does not stop the loader (see Manager docs).
	Timeout time.Duration

	// MaxRetries is the number of re-attempts after the first failure.
	MaxRetries int

	// Quality is the loader quality hint.
	Quality Quality

	// NoCache keeps the asset out of the cache backend (still resident in
	// the in-memory table until unloaded).
	NoCache bool

	// TTL is an optional cache-backend expiry for this asset.
	TTL time.Duration
}

// LoadedAsset is the terminal result of a successful load. Immutable once
// published; owned jointly by the manager's in-memory table and, when
// cacheable, the cache backend.
type LoadedAsset struct {
	Descriptor Descriptor
	Data       []byte
	State      State
	LoadedAt   time.Time
	Size       int64
	Progress   float64
}

// Bundle is a pre-declared group of assets. Payloads optionally carries raw
// bytes already fetched with the bundle; assets present there skip their
// loader entirely.
type Bundle struct {
	ID       string
	Assets   []Descriptor
	Payloads map[Key][]byte
}
