package asset

import (
	"sync"
	"time"
)

// batch aggregates the outcomes of one multi-asset request. It exists only
// for the duration of the LoadBatch/LoadBundle call that created it.
type batch struct {
	id      uint64
	total   int
	started time.Time

	mu        sync.Mutex
	succeeded int
	failed    int
	results   map[Key]*LoadedAsset
	errs      map[Key]error
}

func newBatch(id uint64, total int, started time.Time) *batch {
	return &batch{
		id:      id,
		total:   total,
		started: started,
		results: make(map[Key]*LoadedAsset, total),
		errs:    make(map[Key]error),
	}
}

// record stores one settled outcome and returns the number of settled
// members so far.
func (b *batch) record(k Key, a *LoadedAsset, err error) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failed++
		b.errs[k] = err
	} else {
		b.succeeded++
		b.results[k] = a
	}
	return b.succeeded + b.failed
}

// settle returns the final maps. Only valid after all members recorded.
func (b *batch) settle() (map[Key]*LoadedAsset, map[Key]error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.results, b.errs
}
