package asset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gamebyte-ai/gamebyte-assets/store/memory"
)

// Manager is the asset loading and caching orchestrator. It deduplicates
// requests per key, schedules queued loads by priority under a bounded
// concurrency gate, retries failures, enforces timeouts and keeps loaded
// assets in an in-memory table backed by a cache store.
//
// All methods are safe for concurrent use. Queue and active-set mutation
// happens only under the manager lock, driven by a single scheduler
// goroutine woken on enqueue and on slot-free; no interval polling.
type Manager struct {
	opt  Options
	def  tierDefaults
	log  *slog.Logger
	met  Metrics
	cach Backend

	maxConcurrent int
	memoryLimit   int64
	threshold     float64
	evictTo       float64
	staleAfter    time.Duration

	mu         sync.Mutex
	loaders    map[string]Loader
	table      map[Key]*LoadedAsset
	tableBytes int64
	pending    map[Key]*entry // queued or in-flight, by key (dedup)
	queue      loadQueue
	active     map[Key]*entry // in-flight subset of pending
	closed     bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wake    chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup

	batchSeq   atomic.Uint64
	optimizing atomic.Bool
}

// New constructs a Manager. Missing knobs are derived from
// Options.Device; a nil Cache gets a memory store sized to the derived
// memory limit.
func New(opt Options) *Manager {
	def := defaultsFor(opt.Device)

	m := &Manager{
		opt:           opt,
		def:           def,
		maxConcurrent: opt.MaxConcurrent,
		memoryLimit:   opt.MemoryLimit,
		threshold:     opt.PressureThreshold,
		evictTo:       opt.EvictTo,
		staleAfter:    opt.StaleAfter,
		loaders:       make(map[string]Loader),
		table:         make(map[Key]*LoadedAsset),
		pending:       make(map[Key]*entry),
		active:        make(map[Key]*entry),
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
	if m.maxConcurrent <= 0 {
		m.maxConcurrent = def.maxConcurrent
	}
	if m.memoryLimit <= 0 {
		m.memoryLimit = def.memoryLimit
	}
	if m.threshold <= 0 || m.threshold > 1 {
		m.threshold = 0.8
	}
	if m.evictTo <= 0 || m.evictTo > 1 {
		m.evictTo = 0.6
	}
	if m.staleAfter <= 0 {
		m.staleAfter = 5 * time.Minute
	}
	m.log = opt.Logger
	if m.log == nil {
		m.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m.met = opt.Metrics
	if m.met == nil {
		m.met = NoopMetrics{}
	}
	m.cach = opt.Cache
	if m.cach == nil {
		m.cach = memory.New(memory.Options[string, []byte]{
			MaxBytes: m.memoryLimit,
			SizeOf:   func(v []byte) int64 { return int64(len(v)) },
		})
	}
	m.cach.OnPressure(func(used, budget int64) {
		m.emit(Event{Type: EventMemoryPressure, Bytes: used})
		m.log.Warn("cache pressure", "used", used, "budget", budget)
		go m.OptimizeMemory()
	})

	m.baseCtx, m.cancel = context.WithCancel(context.Background())
	m.wg.Add(1)
	go m.run()
	return m
}

// RegisterLoader binds a loader to one type tag. The last registration for
// a tag wins.
func (m *Manager) RegisterLoader(typeTag string, l Loader) {
	m.mu.Lock()
	m.loaders[typeTag] = l
	m.mu.Unlock()
}

// Register binds a loader to every type tag it declares.
func (m *Manager) Register(l Loader) {
	for _, t := range l.Types() {
		m.RegisterLoader(t, l)
	}
}

// Load requests one asset. Already-loaded and cached assets return a
// settled handle immediately; a key with a queued or in-flight load returns
// that load's handle (never duplicate I/O per key). Otherwise the request
// is queued by descending priority (ties in submission order) and the
// scheduler is woken.
//
// The handle fails terminally with ErrNoLoader, ErrTimeout wrapped in a
// timeout rejection, or a RetryError once retries are exhausted. A timeout
// rejects the handle without stopping the loader: if the load completes
// afterwards its result is still written to the table and cache, and a
// subsequent Load will serve it.
func (m *Manager) Load(d Descriptor) *Handle {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return rejected(fmt.Errorf("asset %q: %w", d.Key, ErrClosed))
	}
	if a, ok := m.table[d.Key]; ok {
		m.mu.Unlock()
		m.met.CacheHit()
		m.emit(Event{Type: EventCacheHit, Key: d.Key, Bytes: a.Size})
		return resolved(a)
	}
	if e, ok := m.pending[d.Key]; ok {
		m.mu.Unlock()
		return e.handle
	}
	m.mu.Unlock()

	// Cache backend round trip outside the lock (may be a disk read).
	if !d.NoCache {
		if data, ok := m.cach.Get(string(d.Key)); ok {
			a := m.adopt(d, data)
			if a == nil {
				return rejected(fmt.Errorf("asset %q: %w", d.Key, ErrClosed))
			}
			m.met.CacheHit()
			m.emit(Event{Type: EventCacheHit, Key: d.Key, Bytes: a.Size})
			return resolved(a)
		}
	}
	m.met.CacheMiss()
	m.emit(Event{Type: EventCacheMiss, Key: d.Key})

	m.mu.Lock()
	// Re-check after the unlocked backend read: a racing Load may have
	// enqueued or populated this key meanwhile.
	if m.closed {
		m.mu.Unlock()
		return rejected(fmt.Errorf("asset %q: %w", d.Key, ErrClosed))
	}
	if a, ok := m.table[d.Key]; ok {
		m.mu.Unlock()
		return resolved(a)
	}
	if e, ok := m.pending[d.Key]; ok {
		m.mu.Unlock()
		return e.handle
	}
	if _, ok := m.loaders[d.Type]; !ok {
		m.mu.Unlock()
		err := fmt.Errorf("asset %q: type %q: %w", d.Key, d.Type, ErrNoLoader)
		m.emit(Event{Type: EventLoadFailed, Key: d.Key, Err: err})
		return rejected(err)
	}

	e := &entry{
		desc:     d,
		priority: d.Priority,
		timeout:  m.effectiveTimeout(d),
		retries:  m.effectiveRetries(d),
		quality:  m.effectiveQuality(d),
		handle:   newHandle(),
	}
	m.pending[d.Key] = e
	m.queue.push(e)
	m.met.QueueDepth(m.queue.len())
	m.mu.Unlock()

	m.wakeScheduler()
	return e.handle
}

// LoadBatch loads many assets through the same queue and concurrency gate,
// waiting for every member to settle. It never fails as a whole: the first
// map holds the assets that loaded, the second the per-key errors. ctx
// cancellation abandons the wait for unsettled members (recorded as that
// key's error) without stopping their loads.
func (m *Manager) LoadBatch(ctx context.Context, descs []Descriptor) (map[Key]*LoadedAsset, map[Key]error) {
	id := m.batchSeq.Add(1)
	b := newBatch(id, len(descs), m.now())
	m.emit(Event{Type: EventBatchStarted, BatchID: id, Total: b.total})

	var wg sync.WaitGroup
	for _, d := range descs {
		h := m.Load(d)
		wg.Add(1)
		go func(d Descriptor, h *Handle) {
			defer wg.Done()
			a, err := h.Wait(ctx)
			done := b.record(d.Key, a, err)
			m.emit(Event{
				Type: EventBatchProgress, BatchID: id, Key: d.Key,
				Err: err, Completed: done, Total: b.total,
			})
		}(d, h)
	}
	wg.Wait()

	results, errs := b.settle()
	m.emit(Event{
		Type: EventBatchCompleted, BatchID: id,
		Completed: len(results), Total: b.total,
	})
	return results, errs
}

// LoadBundle loads a pre-declared asset group. Assets whose raw bytes are
// embedded in the bundle are adopted directly (no loader round trip); the
// rest go through the normal Load path. Like LoadBatch it reports partial
// success through the error map instead of failing as a whole.
func (m *Manager) LoadBundle(ctx context.Context, bdl Bundle) (map[Key]*LoadedAsset, map[Key]error) {
	id := m.batchSeq.Add(1)
	b := newBatch(id, len(bdl.Assets), m.now())
	m.emit(Event{Type: EventBundleStarted, BatchID: id, BundleID: bdl.ID, Total: b.total})

	var wg sync.WaitGroup
	for _, d := range bdl.Assets {
		if data, ok := bdl.Payloads[d.Key]; ok {
			if a := m.adopt(d, data); a != nil {
				b.record(d.Key, a, nil)
			} else {
				b.record(d.Key, nil, fmt.Errorf("asset %q: %w", d.Key, ErrClosed))
			}
			continue
		}
		h := m.Load(d)
		wg.Add(1)
		go func(d Descriptor, h *Handle) {
			defer wg.Done()
			a, err := h.Wait(ctx)
			b.record(d.Key, a, err)
		}(d, h)
	}
	wg.Wait()

	results, errs := b.settle()
	if len(errs) > 0 {
		m.emit(Event{
			Type: EventBundleFailed, BatchID: id, BundleID: bdl.ID,
			Err:       &BundleError{ID: bdl.ID, Err: fmt.Errorf("%d of %d assets failed", len(errs), b.total)},
			Completed: len(results), Total: b.total,
		})
	} else {
		m.emit(Event{
			Type: EventBundleCompleted, BatchID: id, BundleID: bdl.ID,
			Completed: len(results), Total: b.total,
		})
	}
	return results, errs
}

// Preload fires a low-priority background batch. Failures are logged, not
// surfaced.
func (m *Manager) Preload(descs []Descriptor) {
	low := make([]Descriptor, len(descs))
	for i, d := range descs {
		d.Priority = PriorityPreload
		low[i] = d
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_, errs := m.LoadBatch(m.baseCtx, low)
		for k, err := range errs {
			m.log.Warn("preload failed", "key", string(k), "err", err)
		}
	}()
}

// Get returns the in-memory asset for k, if resident. No I/O, no cache
// backend round trip.
func (m *Manager) Get(k Key) (*LoadedAsset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.table[k]
	return a, ok
}

// Has reports whether k is resident in the in-memory table.
func (m *Manager) Has(k Key) bool {
	_, ok := m.Get(k)
	return ok
}

// Unload removes k from the in-memory table and the cache backend,
// reporting whether anything was removed. A later Load starts a fresh
// cycle.
func (m *Manager) Unload(k Key) bool {
	m.mu.Lock()
	a, ok := m.table[k]
	if ok {
		delete(m.table, k)
		m.tableBytes -= a.Size
	}
	m.mu.Unlock()

	removed := m.cach.Delete(string(k)) || ok
	if removed {
		m.emit(Event{Type: EventUnloaded, Key: k})
	}
	return removed
}

// UnloadBatch unloads every key and returns how many were resident.
func (m *Manager) UnloadBatch(keys []Key) int {
	n := 0
	for _, k := range keys {
		if m.Unload(k) {
			n++
		}
	}
	return n
}

// Cancel removes a still-queued load, rejecting its handle with
// ErrCanceled. For an already-dispatched load cancellation is best-effort:
// it is forwarded to the loader's Cancel if implemented, with no guarantee
// the I/O stops.
func (m *Manager) Cancel(k Key) {
	m.mu.Lock()
	if e := m.queue.remove(k); e != nil {
		delete(m.pending, k)
		m.met.QueueDepth(m.queue.len())
		m.mu.Unlock()
		e.handle.reject(fmt.Errorf("asset %q: %w", k, ErrCanceled))
		return
	}
	var l Loader
	if e, ok := m.active[k]; ok {
		l = m.loaders[e.desc.Type]
	}
	m.mu.Unlock()

	if c, ok := l.(Canceler); ok {
		c.Cancel(k)
	}
}

// Progress reports the load progress for k in [0,1]: 1 when resident,
// the loader's figure while in flight (if it reports progress), else 0.
func (m *Manager) Progress(k Key) float64 {
	m.mu.Lock()
	if _, ok := m.table[k]; ok {
		m.mu.Unlock()
		return 1
	}
	var l Loader
	if e, ok := m.active[k]; ok {
		l = m.loaders[e.desc.Type]
	}
	m.mu.Unlock()

	if p, ok := l.(ProgressReporter); ok {
		return p.Progress(k)
	}
	return 0
}

// OptimizeMemory checks tracked memory (in-memory table plus cache
// backend) against the pressure threshold. Above it, the cache backend is
// evicted down to EvictTo×MemoryLimit and in-memory assets older than
// StaleAfter are unloaded. Returns the bytes freed. Concurrent calls
// coalesce into one pass.
func (m *Manager) OptimizeMemory() int64 {
	if !m.optimizing.CompareAndSwap(false, true) {
		return 0
	}
	defer m.optimizing.Store(false)

	used := m.trackedBytes()
	if used <= int64(m.threshold*float64(m.memoryLimit)) {
		return 0
	}
	m.emit(Event{Type: EventMemoryPressure, Bytes: used})

	freed := m.cach.Evict(int64(m.evictTo * float64(m.memoryLimit)))

	cutoff := m.now().Add(-m.staleAfter)
	var stale []Key
	m.mu.Lock()
	for k, a := range m.table {
		if a.LoadedAt.Before(cutoff) {
			delete(m.table, k)
			m.tableBytes -= a.Size
			freed += a.Size
			stale = append(stale, k)
		}
	}
	m.mu.Unlock()
	for _, k := range stale {
		m.emit(Event{Type: EventUnloaded, Key: k})
	}

	m.met.MemoryFreed(freed)
	m.emit(Event{Type: EventMemoryOptimized, Bytes: freed})
	m.log.Info("memory optimized", "freed", freed, "used_before", used, "limit", m.memoryLimit)
	return freed
}

// Stats is a point-in-time snapshot of the manager.
type Stats struct {
	Assets       int
	AssetBytes   int64
	Queued       int
	Active       int
	CacheEntries int
	CacheBytes   int64
}

// Stats returns a snapshot of table, queue and cache occupancy.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	s := Stats{
		Assets:     len(m.table),
		AssetBytes: m.tableBytes,
		Queued:     m.queue.len(),
		Active:     len(m.active),
	}
	m.mu.Unlock()
	s.CacheEntries = m.cach.Len()
	s.CacheBytes = m.cach.SizeBytes()
	return s
}

// Close stops the scheduler, rejects every pending handle with ErrClosed,
// clears all state and closes the cache backend and any loaders that
// implement io.Closer. Waiters on rejected handles observe the error; no
// further noise surfaces.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	doomed := m.queue.drain()
	for _, e := range m.active {
		doomed = append(doomed, e)
	}
	m.pending = make(map[Key]*entry)
	seen := make(map[Loader]bool)
	var closers []io.Closer
	for _, l := range m.loaders {
		if c, ok := l.(io.Closer); ok && !seen[l] {
			seen[l] = true
			closers = append(closers, c)
		}
	}
	m.mu.Unlock()

	close(m.stop)
	m.cancel() // best-effort cancel of in-flight loader I/O
	for _, e := range doomed {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.handle.reject(fmt.Errorf("asset %q: %w", e.desc.Key, ErrClosed))
	}
	m.wg.Wait()

	m.mu.Lock()
	m.table = make(map[Key]*LoadedAsset)
	m.tableBytes = 0
	m.active = make(map[Key]*entry)
	m.mu.Unlock()

	for _, c := range closers {
		if err := c.Close(); err != nil {
			m.log.Warn("loader close failed", "err", err)
		}
	}
	return m.cach.Close()
}

// -------------------- scheduling --------------------

// run is the single scheduler goroutine. It wakes on enqueue and slot-free
// signals; the optional ticker drives only the memory check.
func (m *Manager) run() {
	defer m.wg.Done()

	var tick <-chan time.Time
	if m.opt.MemoryCheckInterval > 0 {
		t := time.NewTicker(m.opt.MemoryCheckInterval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-m.stop:
			return
		case <-m.wake:
			m.schedule()
		case <-tick:
			m.OptimizeMemory()
		}
	}
}

// schedule drains the queue while concurrency budget remains. Only this
// path moves entries from queued to active, so activeLoads never exceeds
// the cap.
func (m *Manager) schedule() {
	for {
		m.mu.Lock()
		if m.closed || m.queue.len() == 0 || len(m.active) >= m.maxConcurrent {
			m.mu.Unlock()
			return
		}
		e := m.queue.pop()
		m.active[e.desc.Key] = e
		l := m.loaders[e.desc.Type]
		if e.timeout > 0 {
			e.timer = m.startTimeout(e)
		}
		m.met.QueueDepth(m.queue.len())
		m.met.ActiveLoads(len(m.active))
		m.mu.Unlock()

		m.wg.Add(1)
		go func(e *entry, l Loader) {
			defer m.wg.Done()
			m.dispatch(e, l)
		}(e, l)
	}
}

// startTimeout arms the per-entry timer. On expiry it rejects the handle
// but deliberately leaves the loader running; a late success still lands in
// the table and cache.
func (m *Manager) startTimeout(e *entry) *time.Timer {
	k := e.desc.Key
	return time.AfterFunc(e.timeout, func() {
		err := fmt.Errorf("asset %q after %v: %w", k, e.timeout, ErrTimeout)
		if e.handle.reject(err) {
			m.emit(Event{Type: EventLoadFailed, Key: k, Err: err})
			m.log.Warn("load timed out, loader still running", "key", string(k), "timeout", e.timeout)
		}
	})
}

// dispatch runs one loader attempt and routes the outcome.
func (m *Manager) dispatch(e *entry, l Loader) {
	k := e.desc.Key
	m.met.LoadStarted()
	m.emit(Event{Type: EventLoadStarted, Key: k})
	m.log.Debug("load dispatched", "key", string(k), "type", e.desc.Type, "attempt", e.attempt+1)

	if l == nil {
		// The loader was unregistered between enqueue and dispatch.
		m.finishFailure(e, fmt.Errorf("type %q: %w", e.desc.Type, ErrNoLoader), 0)
		return
	}

	d := e.desc
	d.Quality = e.quality
	start := time.Now()
	data, err := l.Load(m.baseCtx, d)
	elapsed := time.Since(start)

	if err != nil {
		m.finishFailure(e, err, elapsed)
		return
	}
	m.finishSuccess(e, data, elapsed)
}

func (m *Manager) finishSuccess(e *entry, data []byte, elapsed time.Duration) {
	k := e.desc.Key
	a := &LoadedAsset{
		Descriptor: e.desc,
		Data:       data,
		State:      StateLoaded,
		LoadedAt:   m.now(),
		Size:       int64(len(data)),
		Progress:   1,
	}

	m.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(m.active, k)
	delete(m.pending, k)
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.storeLocked(a)
	m.met.ActiveLoads(len(m.active))
	m.mu.Unlock()

	if !e.desc.NoCache {
		m.cach.SetWithTTL(string(k), data, e.desc.TTL)
	}
	e.handle.resolve(a)
	m.met.LoadFinished(true, elapsed)
	m.emit(Event{Type: EventLoaded, Key: k, Bytes: a.Size})
	m.log.Debug("loaded", "key", string(k), "bytes", a.Size, "elapsed", elapsed)
	m.wakeScheduler()
}

func (m *Manager) finishFailure(e *entry, cause error, elapsed time.Duration) {
	k := e.desc.Key
	m.met.LoadFinished(false, elapsed)

	m.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	delete(m.active, k)
	m.met.ActiveLoads(len(m.active))
	e.attempt++
	if !m.closed && e.attempt <= e.retries {
		// Failed entries go to the front: they outrank newcomers.
		m.queue.pushFront(e)
		m.met.QueueDepth(m.queue.len())
		m.mu.Unlock()
		m.met.Retry()
		m.log.Warn("load failed, retrying", "key", string(k), "attempt", e.attempt, "max", e.retries, "err", cause)
		m.wakeScheduler()
		return
	}
	delete(m.pending, k)
	m.mu.Unlock()

	err := &RetryError{Key: k, Attempts: e.attempt, Last: cause}
	e.handle.reject(err)
	m.emit(Event{Type: EventLoadFailed, Key: k, Err: err})
	m.log.Error("load failed", "key", string(k), "attempts", e.attempt, "err", cause)
	m.wakeScheduler()
}

// -------------------- helpers --------------------

// adopt publishes raw bytes as a loaded asset (cache backend hits, bundle
// payloads), settling any pending load for the key. Returns nil when the
// manager is closed.
func (m *Manager) adopt(d Descriptor, data []byte) *LoadedAsset {
	a := &LoadedAsset{
		Descriptor: d,
		Data:       data,
		State:      StateLoaded,
		LoadedAt:   m.now(),
		Size:       int64(len(data)),
		Progress:   1,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	var h *Handle
	if e, ok := m.pending[d.Key]; ok {
		// A queued request for this key is satisfied by the adopted bytes;
		// an active one keeps running and its late result no-ops.
		if q := m.queue.remove(d.Key); q != nil {
			delete(m.pending, d.Key)
		}
		h = e.handle
	}
	m.storeLocked(a)
	m.mu.Unlock()

	if !d.NoCache {
		m.cach.SetWithTTL(string(d.Key), data, d.TTL)
	}
	if h != nil {
		h.resolve(a)
	}
	m.emit(Event{Type: EventLoaded, Key: d.Key, Bytes: a.Size})
	return a
}

// storeLocked inserts a into the table. Caller holds m.mu.
func (m *Manager) storeLocked(a *LoadedAsset) {
	if old, ok := m.table[a.Descriptor.Key]; ok {
		m.tableBytes -= old.Size
	}
	m.table[a.Descriptor.Key] = a
	m.tableBytes += a.Size
}

func (m *Manager) trackedBytes() int64 {
	m.mu.Lock()
	t := m.tableBytes
	m.mu.Unlock()
	return t + m.cach.SizeBytes()
}

// wakeScheduler signals the scheduler without blocking; a single buffered
// token collapses concurrent triggers into one pass.
func (m *Manager) wakeScheduler() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) emit(ev Event) {
	if cb := m.opt.OnEvent; cb != nil {
		cb(ev)
	}
}

func (m *Manager) now() time.Time {
	if m.opt.Clock != nil {
		return m.opt.Clock.Now()
	}
	return time.Now()
}

func (m *Manager) effectiveTimeout(d Descriptor) time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	if m.opt.DefaultTimeout > 0 {
		return m.opt.DefaultTimeout
	}
	return m.def.timeout
}

func (m *Manager) effectiveRetries(d Descriptor) int {
	if d.MaxRetries < 0 {
		return 0
	}
	if d.MaxRetries > 0 {
		return d.MaxRetries
	}
	if m.opt.DefaultRetries > 0 {
		return m.opt.DefaultRetries
	}
	return m.def.retries
}

func (m *Manager) effectiveQuality(d Descriptor) Quality {
	if d.Quality != "" {
		return d.Quality
	}
	if m.opt.DefaultQuality != "" {
		return m.opt.DefaultQuality
	}
	return m.def.quality
}
