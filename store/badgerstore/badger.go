// Package badgerstore provides the persistent cache backend on top of
// badger. Semantics match the memory store (byte/item budgets enforced by
// LRU eviction, per-entry TTL, pressure callback) with durability: contents
// survive process restarts. Stored data carries a format version;
// an incompatible version is treated as an empty cache.
package badgerstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/gamebyte-ai/gamebyte-assets/store"
)

// FormatVersion identifies the on-disk layout. Bump it when the entry
// encoding changes; old stores are dropped on open rather than migrated.
const FormatVersion uint32 = 1

var versionKey = []byte("!format")

const entryPrefix = "a/"

// entryHeaderLen is the per-value header: 8 bytes of storedAt (UnixNano).
// storedAt seeds the recency index after a restart, so first evictions on a
// fresh process approximate LRU by write order.
const entryHeaderLen = 8

// Options configures the persistent store.
type Options struct {
	// Dir is the badger database directory. Ignored when InMemory is set.
	Dir string

	// InMemory runs badger without disk persistence (tests).
	InMemory bool

	// MaxBytes is the payload byte budget. Required (> 0).
	MaxBytes int64

	// MaxItems limits the number of resident entries (0 = unbounded).
	MaxItems int

	// DefaultTTL applies to Set (0 = no expiry).
	DefaultTTL time.Duration

	// PressureRatio is the fraction of MaxBytes at which the OnPressure
	// callback fires (default 0.9).
	PressureRatio float64

	Metrics store.Metrics
	Logger  *slog.Logger
}

// Store is the badger-backed implementation of store.Store.
type Store struct {
	db  *badger.DB
	opt Options
	log *slog.Logger

	mu         sync.Mutex
	recency    map[string]int64 // key -> last access (UnixNano)
	sizes      map[string]int64 // key -> payload bytes
	bytes      int64
	closed     bool
	pressure   func(used, budget int64)
	inPressure bool
}

var _ store.Store[string, []byte] = (*Store)(nil)

// Open opens (or creates) the store at opt.Dir. A version mismatch drops
// all existing entries.
func Open(opt Options) (*Store, error) {
	if opt.MaxBytes <= 0 {
		return nil, fmt.Errorf("badgerstore: MaxBytes must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = store.NoopMetrics{}
	}
	if opt.PressureRatio <= 0 || opt.PressureRatio > 1 {
		opt.PressureRatio = 0.9
	}
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	bopt := badger.DefaultOptions(opt.Dir).WithLogger(nil)
	if opt.InMemory {
		bopt = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopt)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}

	s := &Store{
		db:      db,
		opt:     opt,
		log:     log,
		recency: make(map[string]int64),
		sizes:   make(map[string]int64),
	}

	ok, err := s.checkVersion()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if !ok {
		log.Warn("incompatible cache format, dropping contents", "want", FormatVersion)
		if err := db.DropAll(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("badgerstore: drop incompatible store: %w", err)
		}
	}
	if err := s.writeVersion(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.loadIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}

	// The budget may have shrunk since the last run.
	s.mu.Lock()
	s.evictLocked(opt.MaxBytes)
	s.mu.Unlock()
	return s, nil
}

// checkVersion reports whether the stored format version matches.
func (s *Store) checkVersion() (bool, error) {
	ok := true
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey)
		if err == badger.ErrKeyNotFound {
			return nil // fresh store
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ok = len(val) == 4 && binary.BigEndian.Uint32(val) == FormatVersion
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("badgerstore: read version: %w", err)
	}
	return ok, nil
}

func (s *Store) writeVersion() error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], FormatVersion)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(versionKey, buf[:])
	})
	if err != nil {
		return fmt.Errorf("badgerstore: write version: %w", err)
	}
	return nil
}

// loadIndex rebuilds the in-memory size/recency index from disk. Recency is
// seeded from each entry's stored write time.
func (s *Store) loadIndex() error {
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(entryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				if len(val) < entryHeaderLen {
					return nil // torn entry, ignored; eviction will drop it
				}
				storedAt := int64(binary.BigEndian.Uint64(val[:entryHeaderLen]))
				size := int64(len(val) - entryHeaderLen)
				s.recency[key] = storedAt
				s.sizes[key] = size
				s.bytes += size
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badgerstore: load index: %w", err)
	}
	return nil
}

// Get returns the payload for k and refreshes its recency. Expired entries
// are handled by badger itself and reported as misses.
func (s *Store) Get(k string) ([]byte, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false
	}
	s.mu.Unlock()

	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entryPrefix + k))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < entryHeaderLen {
				return badger.ErrKeyNotFound
			}
			payload = append([]byte(nil), val[entryHeaderLen:]...)
			return nil
		})
	})
	if err != nil {
		s.opt.Metrics.Miss()
		s.dropIndexEntry(k)
		return nil, false
	}

	s.mu.Lock()
	s.recency[k] = time.Now().UnixNano()
	s.mu.Unlock()
	s.opt.Metrics.Hit()
	return payload, true
}

// Set inserts or updates k with the default TTL.
func (s *Store) Set(k string, v []byte) {
	s.SetWithTTL(k, v, s.opt.DefaultTTL)
}

// SetWithTTL inserts or updates k with a per-entry TTL, then evicts until
// the byte/item budgets hold.
func (s *Store) SetWithTTL(k string, v []byte, ttl time.Duration) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	now := time.Now().UnixNano()
	buf := make([]byte, entryHeaderLen+len(v))
	binary.BigEndian.PutUint64(buf[:entryHeaderLen], uint64(now))
	copy(buf[entryHeaderLen:], v)

	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(entryPrefix+k), buf)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		s.log.Error("cache write failed", "key", k, "err", err)
		return
	}

	s.mu.Lock()
	if old, ok := s.sizes[k]; ok {
		s.bytes -= old
	}
	s.sizes[k] = int64(len(v))
	s.recency[k] = now
	s.bytes += int64(len(v))
	s.evictLocked(s.opt.MaxBytes)
	used := s.bytes
	s.opt.Metrics.Size(len(s.sizes), used)
	cb, fire := s.pressureCheckLocked(used)
	s.mu.Unlock()

	if fire {
		cb(used, s.opt.MaxBytes)
	}
}

// Delete removes k if present.
func (s *Store) Delete(k string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	_, existed := s.sizes[k]
	s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(entryPrefix + k))
	})
	if err != nil {
		return false
	}
	s.dropIndexEntry(k)
	return existed
}

// Evict removes least-recently-used entries until at most targetBytes
// remain. A non-positive target means the configured budget.
func (s *Store) Evict(targetBytes int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	if targetBytes <= 0 || targetBytes > s.opt.MaxBytes {
		targetBytes = s.opt.MaxBytes
	}
	return s.evictLocked(targetBytes)
}

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sizes)
}

// SizeBytes returns the total tracked payload size.
func (s *Store) SizeBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// OnPressure registers the memory-pressure callback. It fires once each
// time usage crosses PressureRatio×MaxBytes from below.
func (s *Store) OnPressure(cb func(usedBytes, budgetBytes int64)) {
	s.mu.Lock()
	s.pressure = cb
	s.mu.Unlock()
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

// ---- internals ----

// evictLocked deletes oldest-recency entries until bytes <= target and the
// item budget holds. Caller holds s.mu. Returns bytes freed.
func (s *Store) evictLocked(target int64) int64 {
	overItems := func() bool {
		return s.opt.MaxItems > 0 && len(s.sizes) > s.opt.MaxItems
	}
	if s.bytes <= target && !overItems() {
		return 0
	}

	type ent struct {
		key   string
		atime int64
	}
	order := make([]ent, 0, len(s.recency))
	for k, at := range s.recency {
		order = append(order, ent{key: k, atime: at})
	}
	sort.Slice(order, func(i, j int) bool { return order[i].atime < order[j].atime })

	var freed int64
	for _, e := range order {
		if s.bytes <= target && !overItems() {
			break
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(entryPrefix + e.key))
		})
		if err != nil {
			s.log.Error("cache eviction failed", "key", e.key, "err", err)
			continue
		}
		freed += s.sizes[e.key]
		s.bytes -= s.sizes[e.key]
		delete(s.sizes, e.key)
		delete(s.recency, e.key)
		s.opt.Metrics.Evict(store.EvictCapacity)
	}
	if s.bytes < 0 {
		s.bytes = 0
	}
	return freed
}

// dropIndexEntry removes k from the in-memory index (missing or expired on
// disk).
func (s *Store) dropIndexEntry(k string) {
	s.mu.Lock()
	if sz, ok := s.sizes[k]; ok {
		s.bytes -= sz
		delete(s.sizes, k)
		delete(s.recency, k)
	}
	s.mu.Unlock()
}

// pressureCheckLocked reports whether the callback should fire for the
// given usage. Caller holds s.mu; the callback itself runs unlocked.
func (s *Store) pressureCheckLocked(used int64) (func(used, budget int64), bool) {
	if s.pressure == nil {
		return nil, false
	}
	mark := int64(s.opt.PressureRatio * float64(s.opt.MaxBytes))
	if used >= mark {
		if !s.inPressure {
			s.inPressure = true
			return s.pressure, true
		}
		return nil, false
	}
	s.inPressure = false
	return nil, false
}
