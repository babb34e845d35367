package asset

import "testing"

func qe(k Key, prio int) *entry {
	return &entry{desc: Descriptor{Key: k, Priority: prio}, priority: prio}
}

// Entries pop in descending priority; equal priorities keep submission order.
func TestQueue_PriorityStableOrder(t *testing.T) {
	t.Parallel()

	var q loadQueue
	q.push(qe("a", 1))
	q.push(qe("b", 5))
	q.push(qe("c", 1))
	q.push(qe("d", 5))
	q.push(qe("e", 3))

	want := []Key{"b", "d", "e", "a", "c"}
	for i, w := range want {
		e := q.pop()
		if e == nil || e.desc.Key != w {
			t.Fatalf("pop %d: want %q, got %+v", i, w, e)
		}
	}
	if q.pop() != nil {
		t.Fatal("queue must be empty")
	}
}

// A retried entry jumps the whole queue, including higher priorities.
func TestQueue_PushFrontBeatsPriority(t *testing.T) {
	t.Parallel()

	var q loadQueue
	q.push(qe("a", 10))
	q.pushFront(qe("retry", -5))

	if e := q.pop(); e.desc.Key != "retry" {
		t.Fatalf("want retry first, got %q", e.desc.Key)
	}
	if e := q.pop(); e.desc.Key != "a" {
		t.Fatalf("want a second, got %q", e.desc.Key)
	}
}

func TestQueue_Remove(t *testing.T) {
	t.Parallel()

	var q loadQueue
	q.push(qe("a", 1))
	q.push(qe("b", 2))
	q.push(qe("c", 3))

	if e := q.remove("b"); e == nil || e.desc.Key != "b" {
		t.Fatalf("remove b: got %+v", e)
	}
	if e := q.remove("b"); e != nil {
		t.Fatal("second remove must miss")
	}
	if q.len() != 2 {
		t.Fatalf("len = %d, want 2", q.len())
	}
	if e := q.pop(); e.desc.Key != "c" {
		t.Fatalf("want c, got %q", e.desc.Key)
	}
	if e := q.pop(); e.desc.Key != "a" {
		t.Fatalf("want a, got %q", e.desc.Key)
	}
}

func TestQueue_Drain(t *testing.T) {
	t.Parallel()

	var q loadQueue
	q.push(qe("a", 1))
	q.push(qe("b", 2))

	out := q.drain()
	if len(out) != 2 || q.len() != 0 {
		t.Fatalf("drain: got %d entries, queue len %d", len(out), q.len())
	}
}
