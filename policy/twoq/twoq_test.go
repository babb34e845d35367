package twoq

import (
	"testing"

	"github.com/gamebyte-ai/gamebyte-assets/policy"
)

type fakeNode struct{ k string }

func (n *fakeNode) Key() string { return n.k }

// fakeHooks is a slice-backed stand-in for the shard's intrusive list;
// index 0 is MRU.
type fakeHooks struct{ order []policy.Node[string] }

func (h *fakeHooks) PushFront(n policy.Node[string]) {
	h.order = append([]policy.Node[string]{n}, h.order...)
}

func (h *fakeHooks) MoveToFront(n policy.Node[string]) {
	h.Remove(n)
	h.PushFront(n)
}

func (h *fakeHooks) Remove(n policy.Node[string]) {
	for i, x := range h.order {
		if x == n {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

func (h *fakeHooks) Back() policy.Node[string] {
	if len(h.order) == 0 {
		return nil
	}
	return h.order[len(h.order)-1]
}

func (h *fakeHooks) Len() int { return len(h.order) }

// A full probation queue proposes its LRU on the next first-time admission.
func TestTwoQ_ProbationOverflow(t *testing.T) {
	t.Parallel()

	h := &fakeHooks{}
	p := New[string](2, 4).New(h)

	a, b, c := &fakeNode{"a"}, &fakeNode{"b"}, &fakeNode{"c"}
	if ev := p.OnAdd(a); ev != nil {
		t.Fatalf("unexpected eviction %v", ev.Key())
	}
	if ev := p.OnAdd(b); ev != nil {
		t.Fatalf("unexpected eviction %v", ev.Key())
	}
	ev := p.OnAdd(c)
	if ev == nil || ev.Key() != "a" {
		t.Fatalf("want probation LRU a proposed, got %v", ev)
	}
}

// A key recently evicted from probation is readmitted straight into the
// mature region and no longer counts against probation.
func TestTwoQ_GhostReadmission(t *testing.T) {
	t.Parallel()

	h := &fakeHooks{}
	p := New[string](2, 4).New(h)

	a, b := &fakeNode{"a"}, &fakeNode{"b"}
	p.OnAdd(a)
	p.OnAdd(b)

	// The store evicts a from probation: a becomes a ghost.
	p.OnRemove(a)
	h.Remove(a)

	c := &fakeNode{"c"}
	if ev := p.OnAdd(c); ev != nil {
		t.Fatalf("probation has room, got eviction %v", ev.Key())
	}

	// Re-requested a bypasses probation entirely.
	a2 := &fakeNode{"a"}
	if ev := p.OnAdd(a2); ev != nil {
		t.Fatalf("ghost hit must not evict, got %v", ev.Key())
	}

	// Probation still holds b and c only: the next first-timer overflows it
	// and proposes b, not a2.
	d := &fakeNode{"d"}
	ev := p.OnAdd(d)
	if ev == nil || ev.Key() != "b" {
		t.Fatalf("want b proposed, got %v", ev)
	}
}

// A Get graduates a probation entry to the mature region.
func TestTwoQ_GetGraduates(t *testing.T) {
	t.Parallel()

	h := &fakeHooks{}
	p := New[string](1, 4).New(h)

	a := &fakeNode{"a"}
	p.OnAdd(a)
	p.OnGet(a)

	// Probation is empty again: a new entry fits without an eviction.
	if ev := p.OnAdd(&fakeNode{"b"}); ev != nil {
		t.Fatalf("graduated entry must free probation, got %v", ev.Key())
	}
}

// The ghost region is bounded: old ghosts age out and lose their second
// chance.
func TestTwoQ_GhostCapacity(t *testing.T) {
	t.Parallel()

	h := &fakeHooks{}
	p := New[string](2, 1).New(h)

	a, b := &fakeNode{"a"}, &fakeNode{"b"}
	p.OnAdd(a)
	p.OnAdd(b)
	p.OnRemove(a) // ghost: [a]
	h.Remove(a)
	p.OnRemove(b) // ghost: [b]; a aged out
	h.Remove(b)

	// a lost its ghost: it re-enters probation and counts against it.
	a2, c := &fakeNode{"a"}, &fakeNode{"c"}
	p.OnAdd(a2)
	p.OnAdd(c)
	ev := p.OnAdd(&fakeNode{"d"})
	if ev == nil || ev.Key() != "a" {
		t.Fatalf("want a proposed from probation, got %v", ev)
	}
}
