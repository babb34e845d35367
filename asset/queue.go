package asset

import (
	"sort"
	"time"
)

// entry is one pending load request. Created on enqueue, destroyed when its
// handle settles. All fields except the handle and timer are touched only
// under the manager lock.
type entry struct {
	desc     Descriptor
	priority int

	// Effective options (device-tier defaults applied at submission).
	timeout time.Duration
	retries int // max re-attempts after the first failure
	quality Quality

	attempt int // failures so far
	handle  *Handle
	timer   *time.Timer // set while dispatched, when timeout > 0
}

// loadQueue orders pending entries by descending priority with stable FIFO
// among equal priorities. The slice is mutated only by the manager's
// scheduler path (enqueue, retry requeue, pop, cancel), always under the
// manager lock, mirroring the single-owner discipline of the store shards.
type loadQueue struct {
	entries []*entry
}

// push inserts e after every entry with priority >= e.priority, keeping the
// queue sorted and ties in submission order.
func (q *loadQueue) push(e *entry) {
	i := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].priority < e.priority
	})
	q.entries = append(q.entries, nil)
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = e
}

// pushFront puts a retried entry at the very front, ahead of any newcomers
// regardless of priority: a failed load has already waited its turn once.
func (q *loadQueue) pushFront(e *entry) {
	q.entries = append([]*entry{e}, q.entries...)
}

// pop removes and returns the highest-priority entry, or nil when empty.
func (q *loadQueue) pop() *entry {
	if len(q.entries) == 0 {
		return nil
	}
	e := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	return e
}

// remove deletes the entry for k, returning it if it was still queued.
func (q *loadQueue) remove(k Key) *entry {
	for i, e := range q.entries {
		if e.desc.Key == k {
			copy(q.entries[i:], q.entries[i+1:])
			q.entries[len(q.entries)-1] = nil
			q.entries = q.entries[:len(q.entries)-1]
			return e
		}
	}
	return nil
}

// drain empties the queue and returns the removed entries.
func (q *loadQueue) drain() []*entry {
	out := q.entries
	q.entries = nil
	return out
}

func (q *loadQueue) len() int { return len(q.entries) }
