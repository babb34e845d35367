package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gamebyte-ai/gamebyte-assets/asset"
)

// HTTP loads assets over HTTP(S). Descriptor sources are absolute URLs.
// It implements asset.Canceler: Cancel aborts the request for a key by
// cancelling its context (best-effort, like all load cancellation).
type HTTP struct {
	client *http.Client
	types  []string

	mu       sync.Mutex
	inflight map[asset.Key]context.CancelFunc
}

// NewHTTP constructs an HTTP loader. A nil client uses
// http.DefaultClient; with no explicit types it handles DefaultTypes.
func NewHTTP(client *http.Client, types ...string) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	if len(types) == 0 {
		types = DefaultTypes
	}
	return &HTTP{
		client:   client,
		types:    types,
		inflight: make(map[asset.Key]context.CancelFunc),
	}
}

func (h *HTTP) Types() []string { return h.types }

func (h *HTTP) Load(ctx context.Context, d asset.Descriptor) ([]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.inflight[d.Key] = cancel
	h.mu.Unlock()
	defer func() {
		cancel()
		h.mu.Lock()
		delete(h.inflight, d.Key)
		h.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("loaders: request %q: %w", d.Source, err)
	}
	if d.Quality != "" {
		req.Header.Set("X-Asset-Quality", string(d.Quality))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loaders: fetch %q: %w", d.Source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loaders: fetch %q: unexpected status %s", d.Source, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("loaders: read %q: %w", d.Source, err)
	}
	return data, nil
}

// Cancel aborts the in-flight request for k, if any.
func (h *HTTP) Cancel(k asset.Key) {
	h.mu.Lock()
	cancel := h.inflight[k]
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

var _ asset.Canceler = (*HTTP)(nil)
