package cache

import "github.com/prometheus/client_golang/prometheus"

// Stats is a point-in-time snapshot of a cache's counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRatio  float64 // hits / (hits + misses); 0.0 before any request
}

// SizedStats extends Stats with byte accounting for the size-bounded
// variant.
type SizedStats struct {
	Stats
	CurrentSizeBytes int64
	MaxSizeBytes     int64
	SizeUtilization  float64 // current / max
}

// recorder holds the raw counters. All mutation happens under the owning
// cache's mutex, so plain fields are enough; no atomics.
type recorder struct {
	hits      uint64
	misses    uint64
	evictions uint64
}

func (r *recorder) snapshot() Stats {
	s := Stats{Hits: r.hits, Misses: r.misses, Evictions: r.evictions}
	if total := r.hits + r.misses; total > 0 {
		s.HitRatio = float64(r.hits) / float64(total)
	}
	return s
}

// StatsSource is anything that can report cache counters.
type StatsSource interface {
	Stats() Stats
}

// Collector exports a cache's counters to Prometheus. It snapshots
// Stats() on every scrape, so the exported values are always a single
// consistent read.
type Collector struct {
	source StatsSource

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
	hitRatio  *prometheus.Desc
}

// NewCollector builds a collector for source. Register it on a
// caller-supplied prometheus.Registerer.
func NewCollector(namespace string, source StatsSource) *Collector {
	return &Collector{
		source: source,
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hits_total"),
			"Total cache hits.", nil, nil),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "misses_total"),
			"Total cache misses.", nil, nil),
		evictions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "evictions_total"),
			"Total entries evicted to satisfy the capacity bound.", nil, nil),
		hitRatio: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hit_ratio"),
			"Hits over total requests; 0 before any request.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.hitRatio
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, s.HitRatio)
}

var _ prometheus.Collector = (*Collector)(nil)
