// Package twoq implements the 2Q eviction policy. It resists scan
// pollution (e.g. a level preload sweeping hundreds of textures through the
// cache) better than plain LRU: first-time entries pass through a small
// probation queue, and only keys seen again graduate to the mature region.
package twoq

import (
	"container/list"

	"github.com/gamebyte-ai/gamebyte-assets/policy"
)

// twoQ keeps two resident regions and one ghost region:
//
//   - A1in (probation): its own list plus an index by node; admits
//     first-time entries.
//   - Am (mature): every resident node not tracked in inIdx; ordering is
//     the shard list itself, driven through hooks.
//   - A1out (ghosts): keys only, tracking recently evicted probation keys
//     so a re-requested asset bypasses probation.
//
// All methods run under the shard lock.
type twoQ[K comparable] struct {
	h policy.Hooks[K]

	capIn    int // probation capacity (per shard)
	capGhost int // ghost capacity (per shard)

	inList *list.List
	inIdx  map[policy.Node[K]]*list.Element

	ghostList *list.List
	ghostIdx  map[K]*list.Element
}

type factory[K comparable] struct {
	capIn    int
	capGhost int
}

// New constructs a 2Q policy factory. Common choices: capIn ≈ 25% of the
// shard's entry budget, capGhost ≈ 50–100%. Pass per-shard sizes when the
// store is sharded.
func New[K comparable](capIn, capGhost int) policy.Policy[K] {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return factory[K]{capIn: capIn, capGhost: capGhost}
}

func (f factory[K]) New(h policy.Hooks[K]) policy.ShardPolicy[K] {
	return &twoQ[K]{
		h:         h,
		capIn:     f.capIn,
		capGhost:  f.capGhost,
		inList:    list.New(),
		inIdx:     make(map[policy.Node[K]]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[K]*list.Element),
	}
}

// OnAdd admission rules: a key present in the ghosts is admitted straight
// into Am (second chance); anything else enters probation. An overflowing
// probation queue proposes its LRU for eviction.
func (q *twoQ[K]) OnAdd(n policy.Node[K]) (evict policy.Node[K]) {
	k := n.Key()
	if ge, ok := q.ghostIdx[k]; ok {
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, k)
		q.h.PushFront(n)
		return nil
	}

	q.h.PushFront(n)
	q.inIdx[n] = q.inList.PushFront(n)

	if q.inList.Len() > q.capIn {
		if tail := q.inList.Back(); tail != nil {
			return tail.Value.(policy.Node[K])
		}
	}
	return nil
}

// OnGet promotes: a probation node graduates to Am, then moves to MRU.
func (q *twoQ[K]) OnGet(n policy.Node[K]) {
	if el, ok := q.inIdx[n]; ok {
		q.inList.Remove(el)
		delete(q.inIdx, n)
	}
	q.h.MoveToFront(n)
}

// OnUpdate follows OnGet semantics.
func (q *twoQ[K]) OnUpdate(n policy.Node[K]) { q.OnGet(n) }

// OnRemove: probation removals leave a ghost behind (second chance on the
// next request); removals from Am do not populate ghosts.
func (q *twoQ[K]) OnRemove(n policy.Node[K]) {
	el, ok := q.inIdx[n]
	if !ok {
		return
	}
	q.inList.Remove(el)
	delete(q.inIdx, n)

	k := n.Key()
	if old := q.ghostIdx[k]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[k] = q.ghostList.PushFront(k)

	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		if tail == nil {
			break
		}
		kk := tail.Value.(K)
		delete(q.ghostIdx, kk)
		q.ghostList.Remove(tail)
	}
}
