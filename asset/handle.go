package asset

import (
	"context"
	"sync"
)

// Handle is the pending result of a Load: a one-shot result cell with a
// waiter channel. The value/error pair is published before done is closed,
// so any read after <-Done() observes the final result.
//
// A handle settles exactly once; later resolve/reject calls are no-ops.
// Concurrent Loads for the same key share one handle (dedup), so multiple
// goroutines may Wait on it.
type Handle struct {
	done chan struct{}

	mu      sync.Mutex
	settled bool
	asset   *LoadedAsset
	err     error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// resolved builds an already-settled successful handle (cache hits).
func resolved(a *LoadedAsset) *Handle {
	h := newHandle()
	h.resolve(a)
	return h
}

// rejected builds an already-settled failed handle.
func rejected(err error) *Handle {
	h := newHandle()
	h.reject(err)
	return h
}

// resolve publishes a successful result. Reports false if already settled.
func (h *Handle) resolve(a *LoadedAsset) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.settled {
		return false
	}
	h.settled = true
	h.asset = a
	close(h.done)
	return true
}

// reject publishes a terminal error. Reports false if already settled.
func (h *Handle) reject(err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.settled {
		return false
	}
	h.settled = true
	h.err = err
	close(h.done)
	return true
}

// Done returns a channel closed when the handle settles.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the handle settles or ctx is done. Cancelling ctx
// abandons this waiter only; the load itself continues.
func (h *Handle) Wait(ctx context.Context) (*LoadedAsset, error) {
	select {
	case <-h.done:
		return h.asset, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether the handle has a final result.
func (h *Handle) Settled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
