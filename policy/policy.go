// Package policy defines the pluggable eviction policy contract used by the
// in-memory cache store. A policy decides ordering and admission; the store
// owns the key→node map, performs the actual deletions, and enforces the
// byte/item budgets.
package policy

// Node is the minimal contract a cache entry must satisfy for a policy.
type Node[K comparable] interface {
	Key() K
}

// Hooks expose O(1) list operations a policy uses to manipulate the store's
// intrusive MRU/LRU list. Implementations are provided by the store.
//
// Concurrency: all hook calls happen under the shard lock. Hooks manage only
// the list; map bookkeeping stays with the store.
type Hooks[K comparable] interface {
	// MoveToFront promotes the node to MRU.
	MoveToFront(Node[K])
	// PushFront inserts the node at MRU (used on admission).
	PushFront(Node[K])
	// Remove detaches the node from the list.
	Remove(Node[K])
	// Back returns the current LRU node, or nil if empty.
	Back() Node[K]
	// Len returns the number of resident nodes.
	Len() int
}

// ShardPolicy is a per-shard policy instance bound to that shard's hooks.
// All methods are invoked under the shard lock.
//
// OnAdd may return an eviction candidate (e.g. the LRU of a probation
// queue); the store evicts it and then calls OnRemove for it. OnGet and
// OnUpdate typically promote the node. OnRemove lets the policy clean up
// internal state (ghost queues and the like).
type ShardPolicy[K comparable] interface {
	OnAdd(Node[K]) (evict Node[K])
	OnGet(Node[K])
	OnUpdate(Node[K])
	OnRemove(Node[K])
}

// Policy is a factory creating shard-local instances bound to a shard's hooks.
type Policy[K comparable] interface {
	New(Hooks[K]) ShardPolicy[K]
}
