package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tiercache/internal/cache"
	"tiercache/internal/disk"
	"tiercache/internal/tiered"
)

func main() {
	var (
		dir         = flag.String("dir", "", "disk tier root directory (default: a fresh temp dir)")
		metricsAddr = flag.String("metrics.addr", "", "listen address for Prometheus metrics (empty: disabled)")
	)
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	// Signal-aware context so Ctrl+C ends the demo cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dir == "" {
		tmp, err := os.MkdirTemp("", "tiercache-demo-*")
		if err != nil {
			level.Error(logger).Log("msg", "create temp dir", "err", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		*dir = tmp
	}

	reg := prometheus.NewRegistry()
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				level.Warn(logger).Log("msg", "metrics listener stopped", "err", err)
			}
		}()
		level.Info(logger).Log("msg", "serving metrics", "addr", *metricsAddr)
	}

	if err := run(ctx, logger, reg, *dir); err != nil {
		level.Error(logger).Log("msg", "demo failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger log.Logger, reg *prometheus.Registry, dir string) error {
	// -------------------------------------------------------------------
	// 1) Count-bounded LRU: eviction and touch ordering
	// -------------------------------------------------------------------
	c, err := cache.New(cache.Config{Capacity: 2})
	if err != nil {
		return err
	}
	reg.MustRegister(cache.NewCollector("tiercache", c))

	c.Put("1", []byte("one"))
	c.Put("2", []byte("two"))
	if v, ok := c.Get("1"); ok {
		level.Info(logger).Log("msg", "get 1 (touches 1 -> MRU)", "value", string(v))
	}
	c.Put("3", []byte("three")) // evicts 2
	if _, ok := c.Get("2"); !ok {
		level.Info(logger).Log("msg", "get 2: missing (evicted as LRU)")
	}
	level.Info(logger).Log("msg", "keys after eviction (MRU->LRU)", "keys", join(c.Keys()))
	logStats(logger, "count-bounded", c.Stats())

	// -------------------------------------------------------------------
	// 2) Persistence: save, reload, verify order and counters survive
	// -------------------------------------------------------------------
	statePath := filepath.Join(dir, "memory-state.yaml")
	if err := c.Save(statePath); err != nil {
		return err
	}
	restored, err := cache.Load(statePath)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "state round trip", "path", statePath,
		"keys", join(restored.Keys()), "hits", restored.Stats().Hits)

	// -------------------------------------------------------------------
	// 3) Size-bounded LRU: byte budget and oversized reject
	// -------------------------------------------------------------------
	sized, err := cache.NewSized(cache.SizedConfig{MaxBytes: 250})
	if err != nil {
		return err
	}
	sized.Put("huge", make([]byte, 300)) // over budget, silently rejected
	sized.Put("small", []byte("fits"))
	ss := sized.SizedStats()
	level.Info(logger).Log("msg", "size-bounded state", "resident", sized.Len(),
		"bytes", ss.CurrentSizeBytes, "budget", ss.MaxSizeBytes, "utilization", ss.SizeUtilization)

	// -------------------------------------------------------------------
	// 4) Two tiers: write-through, eviction, promotion from disk
	// -------------------------------------------------------------------
	store, err := disk.New(disk.Config{Dir: filepath.Join(dir, "disk"), Logger: logger})
	if err != nil {
		return err
	}
	mem, err := cache.New(cache.Config{Capacity: 2})
	if err != nil {
		return err
	}
	tc := tiered.New(mem, store, logger)

	tc.Put("a", []byte("alpha"))
	tc.Put("b", []byte("beta"))
	tc.Put("c", []byte("gamma")) // "a" falls out of memory, stays on disk
	if v, ok := tc.Get("a"); ok {
		level.Info(logger).Log("msg", "get a after eviction (disk hit, promoted)", "value", string(v))
	}
	if _, ok := tc.Get("a"); ok {
		level.Info(logger).Log("msg", "get a again (memory hit, no disk access)")
	}
	ts := tc.Stats()
	level.Info(logger).Log("msg", "tiered stats", "requests", ts.TotalRequests,
		"disk_bytes", ts.DiskSizeBytes, "memory_hits", ts.Memory.Hits)

	// -------------------------------------------------------------------
	// 5) Concurrent workers hammering one shared cache
	// -------------------------------------------------------------------
	shared, err := cache.New(cache.Config{Capacity: 16})
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := string(rune('a' + (w*7+i)%26))
				shared.Put(key, []byte{byte(i)})
				shared.Get(key)
			}
		}(w)
	}
	wg.Wait()
	logStats(logger, "after concurrent hammer", shared.Stats())
	level.Info(logger).Log("msg", "resident after hammer", "len", shared.Len())

	select {
	case <-ctx.Done():
		level.Info(logger).Log("msg", "shutdown signal received")
	default:
	}
	return nil
}

func logStats(logger log.Logger, what string, s cache.Stats) {
	level.Info(logger).Log("msg", what, "hits", s.Hits, "misses", s.Misses,
		"evictions", s.Evictions, "hit_ratio", s.HitRatio)
}

func join(keys []string) string {
	return strings.Join(keys, ",")
}
