package asset

import (
	"context"
	"errors"
	"testing"
	"time"
)

// A handle settles exactly once; later resolve/reject calls are no-ops.
func TestHandle_SettlesOnce(t *testing.T) {
	t.Parallel()

	h := newHandle()
	a := &LoadedAsset{State: StateLoaded}
	if !h.resolve(a) {
		t.Fatal("first resolve must win")
	}
	if h.resolve(&LoadedAsset{}) {
		t.Fatal("second resolve must be a no-op")
	}
	if h.reject(errors.New("late")) {
		t.Fatal("reject after resolve must be a no-op")
	}

	got, err := h.Wait(context.Background())
	if err != nil || got != a {
		t.Fatalf("Wait: got %v, %v", got, err)
	}
	if !h.Settled() {
		t.Fatal("handle must report settled")
	}
}

// Cancelling the waiter's context abandons only that waiter.
func TestHandle_WaitContext(t *testing.T) {
	t.Parallel()

	h := newHandle()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	// The handle is still live for other waiters.
	go func() {
		time.Sleep(5 * time.Millisecond)
		h.reject(ErrTimeout)
	}()
	if _, err := h.Wait(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("want ErrTimeout, got %v", err)
	}
}
