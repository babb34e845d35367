package asset

import "context"

// Loader turns a source descriptor into raw asset data. Implementations
// must be safe for concurrent use; the manager may have several loads in
// flight against one loader.
//
// Optional capabilities are separate interfaces checked at call sites:
// ProgressReporter, Canceler and io.Closer.
type Loader interface {
	// Types returns the descriptor type tags this loader handles.
	Types() []string

	// Load fetches the asset. ctx is cancelled when the manager closes;
	// note that a per-entry timeout does NOT cancel it.
	Load(ctx context.Context, d Descriptor) ([]byte, error)
}

// ProgressReporter is implemented by loaders that can report per-key
// download progress in [0,1].
type ProgressReporter interface {
	Progress(k Key) float64
}

// Canceler is implemented by loaders that can abort an in-flight load.
// Cancellation is best-effort; the manager forwards Cancel for dispatched
// entries and makes no guarantee the underlying I/O stops.
type Canceler interface {
	Cancel(k Key)
}
