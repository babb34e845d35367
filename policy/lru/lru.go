// Package lru implements the least-recently-used eviction policy.
package lru

import "github.com/gamebyte-ai/gamebyte-assets/policy"

// lru is the classic move-to-front policy. It delegates all list
// manipulation to the hooks provided by the store shard.
type lru[K comparable] struct {
	h policy.Hooks[K]
}

type factory[K comparable] struct{}

// New returns a Policy factory constructing per-shard LRU instances.
func New[K comparable]() policy.Policy[K] { return factory[K]{} }

func (factory[K]) New(h policy.Hooks[K]) policy.ShardPolicy[K] {
	return &lru[K]{h: h}
}

// OnAdd places the new entry at MRU. LRU itself never proposes evictions;
// the store trims the tail when budgets are exceeded.
func (p *lru[K]) OnAdd(n policy.Node[K]) (evict policy.Node[K]) {
	p.h.PushFront(n)
	return nil
}

// OnGet promotes the entry to MRU.
func (p *lru[K]) OnGet(n policy.Node[K]) { p.h.MoveToFront(n) }

// OnUpdate treats an update as recent use.
func (p *lru[K]) OnUpdate(n policy.Node[K]) { p.h.MoveToFront(n) }

func (p *lru[K]) OnRemove(policy.Node[K]) {}
