package memory

import (
	"sync"
	"time"

	"github.com/gamebyte-ai/gamebyte-assets/internal/util"
	"github.com/gamebyte-ai/gamebyte-assets/policy"
	"github.com/gamebyte-ai/gamebyte-assets/store"
)

// shard is an independent partition of the store with its own lock, map and
// intrusive MRU↔LRU list.
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu       sync.RWMutex
	m        map[K]*node[K, V]
	head     *node[K, V] // MRU
	tail     *node[K, V] // LRU
	len      int
	bytes    int64
	maxBytes int64 // per-shard byte budget (0 = unbounded)
	maxItems int   // per-shard item budget (0 = unbounded)

	pol policy.ShardPolicy[K]
	opt Options[K, V]

	// ---- hot counters (own cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

func newShard[K comparable, V any](maxBytes int64, maxItems int, pol policy.Policy[K], opt Options[K, V]) *shard[K, V] {
	s := &shard[K, V]{
		m:        make(map[K]*node[K, V]),
		maxBytes: maxBytes,
		maxItems: maxItems,
		opt:      opt,
	}
	s.pol = pol.New(shardHooks[K, V]{s: s})
	return s
}

// Set inserts or updates an entry and promotes it according to the policy.
// exp is an absolute UnixNano deadline (0 = no TTL).
func (s *shard[K, V]) Set(k K, v V, exp, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.m[k]; ok {
		s.bytes += size - n.size
		n.val = v
		n.exp = exp
		n.size = size
		s.pol.OnUpdate(n)
		s.trimLocked()
		return
	}

	n := &node[K, V]{key: k, val: v, exp: exp, size: size}
	s.m[k] = n
	if ev := s.pol.OnAdd(n); ev != nil {
		s.evictNode(ev.(*node[K, V]), store.EvictPolicy)
	}
	s.trimLocked()
}

// Get returns the value and promotes the entry. An expired entry is evicted
// and reported as a miss.
func (s *shard[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	if s.expiredLocked(n) {
		s.evictNode(n, store.EvictTTL)
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}

	s.pol.OnGet(n)
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	return n.val, true
}

// Delete removes an entry by key.
func (s *shard[K, V]) Delete(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, k)
	return true
}

// EvictTo removes LRU entries until the shard holds at most targetBytes.
// Returns the number of bytes freed.
func (s *shard[K, V]) EvictTo(targetBytes int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.bytes
	for s.bytes > targetBytes {
		tail := s.tail
		if tail == nil {
			break
		}
		s.evictNode(tail, store.EvictCapacity)
	}
	s.opt.Metrics.Size(s.len, s.bytes)
	return before - s.bytes
}

func (s *shard[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len
}

func (s *shard[K, V]) SizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}

// -------------------- internals (mu held) --------------------

func (s *shard[K, V]) expiredLocked(n *node[K, V]) bool {
	if n.exp == 0 {
		return false
	}
	return s.now() > n.exp
}

func (s *shard[K, V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// insertFront inserts n at MRU in O(1).
func (s *shard[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
	s.bytes += n.size
}

// moveToFront promotes n to MRU in O(1).
func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// removeNode detaches n from the list and updates counters in O(1).
func (s *shard[K, V]) removeNode(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.len--
	s.bytes -= n.size
	if s.bytes < 0 {
		s.bytes = 0
	}
}

// evictNode removes the node, updates counters and calls OnEvict.
func (s *shard[K, V]) evictNode(n *node[K, V], reason store.EvictReason) {
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, n.key)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Called under the shard lock; keep callbacks lightweight.
		cb(n.key, n.val, reason)
	}
}

// trimLocked evicts LRU entries until both the item and byte budgets hold.
func (s *shard[K, V]) trimLocked() {
	if s.maxItems > 0 {
		for s.len > s.maxItems {
			tail := s.tail
			if tail == nil {
				break
			}
			s.evictNode(tail, store.EvictPolicy)
		}
	}
	if s.maxBytes > 0 {
		for s.bytes > s.maxBytes {
			tail := s.tail
			if tail == nil {
				break
			}
			s.evictNode(tail, store.EvictCapacity)
		}
	}
	s.opt.Metrics.Size(s.len, s.bytes)
}

// -------------------- policy hooks --------------------

// shardHooks adapts the shard's list operations to policy.Hooks.
type shardHooks[K comparable, V any] struct{ s *shard[K, V] }

func (h shardHooks[K, V]) MoveToFront(x policy.Node[K]) { h.s.moveToFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) PushFront(x policy.Node[K])   { h.s.insertFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) Remove(x policy.Node[K])      { h.s.removeNode(x.(*node[K, V])) }
func (h shardHooks[K, V]) Len() int                     { return h.s.len }
func (h shardHooks[K, V]) Back() policy.Node[K] {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}
