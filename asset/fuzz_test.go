package asset

import (
	"fmt"
	"testing"
)

// Fuzz the queue ordering invariant: pops are sorted by descending
// priority, and entries sharing a priority come out in submission order.
func FuzzQueueOrder(f *testing.F) {
	f.Add([]byte{1, 5, 3, 5, 1})
	f.Add([]byte{})
	f.Add([]byte{255, 0, 128, 128, 128, 7})

	f.Fuzz(func(t *testing.T, priorities []byte) {
		var q loadQueue
		for i, p := range priorities {
			q.push(qe(Key(fmt.Sprintf("k%d", i)), int(p)))
		}

		lastPrio := int(^uint(0) >> 1) // max int
		lastSeq := map[int]int{}       // priority -> last seen submission index
		for i := 0; i < len(priorities); i++ {
			e := q.pop()
			if e == nil {
				t.Fatalf("pop %d: queue exhausted early", i)
			}
			if e.priority > lastPrio {
				t.Fatalf("pop %d: priority %d after %d", i, e.priority, lastPrio)
			}
			var seq int
			if _, err := fmt.Sscanf(string(e.desc.Key), "k%d", &seq); err != nil {
				t.Fatalf("bad key %q", e.desc.Key)
			}
			if prev, ok := lastSeq[e.priority]; ok && seq < prev {
				t.Fatalf("priority %d: submission order violated (%d after %d)", e.priority, seq, prev)
			}
			lastSeq[e.priority] = seq
			lastPrio = e.priority
		}
		if q.pop() != nil {
			t.Fatal("queue must be empty")
		}
	})
}
