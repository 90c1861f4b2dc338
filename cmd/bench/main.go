// Command bench runs a synthetic workload against the cache and exposes
// optional pprof/Prometheus endpoints.
package main

import (
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

	"github.com/motorline/tagcache/cache"
	pmet "github.com/motorline/tagcache/metrics/prom"
)

func main() {
	// ---- Flags ----
	var (
		maxEntries = flag.Int("max_entries", 100_000, "entry-count ceiling")
		memLimit   = flag.Int64("mem_bytes", 256<<20, "memory-pressure threshold in bytes")
		ttl        = flag.Duration("ttl", time.Minute, "default entry TTL")
		sweep      = flag.Duration("sweep", 5*time.Second, "sweep interval")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		invalPct = flag.Int("invalidations", 1, "tag-invalidation percentage [0..100]")

		keys     = flag.Int("keys", 1_000_000, "keyspace size")
		tagspace = flag.Int("tags", 256, "tag space size")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload  = flag.Int("preload", 0, "preload entries (0 = max_entries/2)")

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
	metrics := pmet.New(nil, "tagcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	c := cache.New[[]byte](cache.Options[[]byte]{
		MaxEntries:           *maxEntries,
		MemoryThresholdBytes: *memLimit,
		DefaultTTL:           *ttl,
		SweepInterval:        *sweep,
		Metrics:              metrics,
	})
	defer func() { _ = c.Close() }()

	// ---- Preload ----
	n := *preload
	if n <= 0 {
		n = *maxEntries / 2
	}
	val := []byte("benchmark-value-benchmark-value")
	for i := 0; i < n; i++ {
		c.Set(key(i), val, cache.SetOptions{Tags: []string{tag(i % *tagspace)}})
	}
	log.Printf("preloaded %d entries, running %d workers for %s", n, *workers, *duration)

	// ---- Workload ----
	var ops, hits atomic.Int64
	stop := time.Now().Add(*duration)

	var wg sync.WaitGroup
	wg.Add(*workers)
	for w := 0; w < *workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(*seed + int64(id)*7919))
			for time.Now().Before(stop) {
				i := r.Intn(*keys)
				switch p := r.Intn(100); {
				case p < *invalPct:
					c.InvalidateByTag(tag(i % *tagspace))
				case p < *invalPct+*readPct:
					if _, ok := c.Get(key(i)); ok {
						hits.Add(1)
					}
				default:
					c.Set(key(i), val, cache.SetOptions{Tags: []string{tag(i % *tagspace)}})
				}
				ops.Add(1)
			}
		}(w)
	}
	wg.Wait()

	// ---- Report ----
	s := c.Stats()
	total := ops.Load()
	fmt.Printf("ops=%d (%.0f/s) workloadHits=%d\n",
		total, float64(total)/duration.Seconds(), hits.Load())
	fmt.Printf("cache: entries=%d hits=%d misses=%d evictions=%d hitRate=%.3f mem=%dB\n",
		s.Entries, s.Hits, s.Misses, s.Evictions, s.HitRate, s.MemoryBytes)
}

func key(i int) string { return "k:" + strconv.Itoa(i) }
func tag(i int) string { return "tag:" + strconv.Itoa(i) }
