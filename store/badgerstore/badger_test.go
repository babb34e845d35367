package badgerstore

import (
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true, MaxBytes: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	s := openMem(t)

	s.Set("a", []byte("alpha"))
	v, ok := s.Get("a")
	if !ok || string(v) != "alpha" {
		t.Fatalf("Get: %q, %v", v, ok)
	}
	if s.Len() != 1 || s.SizeBytes() != 5 {
		t.Fatalf("len=%d bytes=%d", s.Len(), s.SizeBytes())
	}

	if !s.Delete("a") {
		t.Fatal("Delete must report removal")
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("deleted key must miss")
	}
	if s.Delete("a") {
		t.Fatal("second Delete must miss")
	}
}

// Contents and the derived size index survive a close/reopen cycle.
func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Dir: dir, MaxBytes: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	s.Set("a", []byte("alpha"))
	s.Set("b", []byte("beta"))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(Options{Dir: dir, MaxBytes: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if s2.Len() != 2 || s2.SizeBytes() != 9 {
		t.Fatalf("after reopen: len=%d bytes=%d", s2.Len(), s2.SizeBytes())
	}
	v, ok := s2.Get("a")
	if !ok || string(v) != "alpha" {
		t.Fatalf("Get after reopen: %q, %v", v, ok)
	}
}

// An on-disk format version mismatch drops the store instead of
// misreading it.
func TestStore_VersionMismatchDropsAll(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Dir: dir, MaxBytes: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	s.Set("a", []byte("alpha"))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Stamp a future format version directly.
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], FormatVersion+1)
	err = db.Update(func(txn *badger.Txn) error { return txn.Set(versionKey, buf[:]) })
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(Options{Dir: dir, MaxBytes: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if s2.Len() != 0 {
		t.Fatalf("len = %d, want empty store after version mismatch", s2.Len())
	}
	if _, ok := s2.Get("a"); ok {
		t.Fatal("old entries must be gone")
	}
}

// The byte budget is enforced on every write, evicting oldest-access first.
func TestStore_EvictToBudget(t *testing.T) {
	s, err := Open(Options{InMemory: true, MaxBytes: 250})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.Set(fmt.Sprintf("k%d", i), make([]byte, 100))
		if got := s.SizeBytes(); got > 250 {
			t.Fatalf("after insert %d: %d bytes > budget", i, got)
		}
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	for _, k := range []string{"k3", "k4"} {
		if _, ok := s.Get(k); !ok {
			t.Fatalf("%q must survive", k)
		}
	}
}

// A Get refreshes recency, protecting the entry from the next eviction.
func TestStore_GetRefreshesRecency(t *testing.T) {
	s, err := Open(Options{InMemory: true, MaxBytes: 1 << 20, MaxItems: 3})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Set("a", []byte("x"))
	time.Sleep(time.Millisecond) // recency is wall-clock UnixNano
	s.Set("b", []byte("x"))
	time.Sleep(time.Millisecond)
	s.Set("c", []byte("x"))
	time.Sleep(time.Millisecond)
	s.Get("a")
	time.Sleep(time.Millisecond)
	s.Set("d", []byte("x")) // over the item budget: evicts b

	if _, ok := s.Get("b"); ok {
		t.Fatal("b must be the eviction victim")
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatal("a was refreshed and must survive")
	}
}

// Badger expires TTL entries itself; the index drops them on miss.
func TestStore_TTL(t *testing.T) {
	s := openMem(t)

	s.SetWithTTL("a", []byte("x"), 50*time.Millisecond)
	if _, ok := s.Get("a"); !ok {
		t.Fatal("fresh entry must hit")
	}
	time.Sleep(80 * time.Millisecond)
	if _, ok := s.Get("a"); ok {
		t.Fatal("expired entry must miss")
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d after expiry", s.Len())
	}
}

func TestStore_PressureLatch(t *testing.T) {
	s, err := Open(Options{InMemory: true, MaxBytes: 100, PressureRatio: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	fired := 0
	s.OnPressure(func(used, budget int64) { fired++ })

	s.Set("a", make([]byte, 60)) // crosses 50
	s.Set("b", make([]byte, 10)) // still above: latched
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	s.Delete("a")
	s.Set("c", make([]byte, 10)) // 20 bytes: latch resets
	s.Set("d", make([]byte, 40)) // crosses again
	if fired != 2 {
		t.Fatalf("fired = %d, want 2", fired)
	}
}

func TestStore_ClosedOps(t *testing.T) {
	s, err := Open(Options{InMemory: true, MaxBytes: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	s.Set("a", []byte("x"))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Get("a"); ok {
		t.Fatal("closed store must miss")
	}
	s.Set("b", []byte("y")) // no-op
	if s.Delete("a") {
		t.Fatal("Delete on closed store must report false")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err) // idempotent
	}
}
