package memory

// node is an intrusive doubly linked list element owned by a shard. Head is
// MRU, tail is LRU.
type node[K comparable, V any] struct {
	key K
	val V

	prev *node[K, V]
	next *node[K, V]

	// Absolute expiry deadline in UnixNano; zero means no TTL.
	exp int64

	// Tracked size in bytes (from Options.SizeOf).
	size int64
}

// Key returns the node key (part of the policy.Node contract).
func (n *node[K, V]) Key() K { return n.key }
