// Command bench runs a synthetic asset-loading workload against the manager
// and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamebyte-ai/gamebyte-assets/asset"
	pmet "github.com/gamebyte-ai/gamebyte-assets/metrics/prom"
	"github.com/gamebyte-ai/gamebyte-assets/policy/twoq"
	"github.com/gamebyte-ai/gamebyte-assets/store/badgerstore"
	"github.com/gamebyte-ai/gamebyte-assets/store/memory"
)

func main() {
	// ---- Flags ----
	var (
		cacheBytes = flag.Int64("cache", 64<<20, "cache backend byte budget")
		backend    = flag.String("backend", "memory", "cache backend: memory | badger")
		badgerDir  = flag.String("badger_dir", "", "badger directory (empty = in-memory)")
		policy     = flag.String("policy", "lru", "memory store eviction policy: lru | 2q")

		concurrent = flag.Int("concurrent", 8, "max concurrent loads")
		workers    = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration   = flag.Duration("duration", 10*time.Second, "benchmark duration")

		keys      = flag.Int("keys", 100_000, "keyspace size")
		assetSize = flag.Int("size", 4096, "synthetic asset size in bytes")
		loadDelay = flag.Duration("delay", 500*time.Microsecond, "simulated loader latency")
		zipfS     = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV     = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	mm := pmet.NewManager(nil, "assets", "bench", nil)
	sm := pmet.NewStore(nil, "assets", "bench_cache", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build the cache backend ----
	var cache asset.Backend
	switch *backend {
	case "memory":
		opt := memory.Options[string, []byte]{
			MaxBytes: *cacheBytes,
			SizeOf:   func(v []byte) int64 { return int64(len(v)) },
			Metrics:  sm,
		}
		switch *policy {
		case "lru":
			// nil => LRU by default
		case "2q":
			// split 2Q queues as a simple default, sized by entry estimate
			entries := int(*cacheBytes / int64(*assetSize))
			opt.Policy = twoq.New[string](max(1, entries/4), max(1, entries/2))
		default:
			log.Fatalf("unknown policy: %q (use lru or 2q)", *policy)
		}
		cache = memory.New(opt)
	case "badger":
		s, err := badgerstore.Open(badgerstore.Options{
			Dir:      *badgerDir,
			InMemory: *badgerDir == "",
			MaxBytes: *cacheBytes,
			Metrics:  sm,
		})
		if err != nil {
			log.Fatal(err)
		}
		cache = s
	default:
		log.Fatalf("unknown backend: %q (use memory or badger)", *backend)
	}

	// ---- Build the manager with a synthetic loader ----
	m := asset.New(asset.Options{
		Device:        asset.DeviceProfile{Tier: asset.TierHigh},
		MaxConcurrent: *concurrent,
		MemoryLimit:   *cacheBytes,
		Cache:         cache,
		Metrics:       mm,
	})
	defer func() { _ = m.Close() }()
	m.RegisterLoader("blob", synthLoader{size: *assetSize, delay: *loadDelay})

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var total, failures uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				k := asset.Key("k:" + strconv.FormatUint(localZipf.Uint64(), 10))
				h := m.Load(asset.Descriptor{
					Key: k, Type: "blob", Source: string(k),
					Priority: int(localR.Int31n(10)),
				})
				if _, err := h.Wait(ctx); err != nil {
					atomic.AddUint64(&failures, 1)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	fails := atomic.LoadUint64(&failures)
	s := m.Stats()

	fmt.Printf("backend=%s policy=%s cache=%dMB concurrent=%d workers=%d keys=%d dur=%v seed=%d\n",
		*backend, *policy, *cacheBytes>>20, *concurrent, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  failures=%d\n",
		ops, float64(ops)/elapsed.Seconds(), fails)
	fmt.Printf("assets=%d (%d bytes)  cache=%d entries (%d bytes)\n",
		s.Assets, s.AssetBytes, s.CacheEntries, s.CacheBytes)
}

// synthLoader fabricates payloads with a fixed latency, standing in for
// disk or network I/O.
type synthLoader struct {
	size  int
	delay time.Duration
}

func (l synthLoader) Types() []string { return []string{"blob"} }

func (l synthLoader) Load(ctx context.Context, d asset.Descriptor) ([]byte, error) {
	select {
	case <-time.After(l.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return make([]byte, l.size), nil
}
