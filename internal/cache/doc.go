// Package cache implements the in-memory tiers of a two-level key–value
// cache: LRU caches bounded either by entry count or by an approximate byte
// budget, with hit/miss/eviction accounting and a persistable state snapshot.
//
// Goals for this package:
//   - Make the core data structures explicit (map + doubly-linked list)
//   - Provide O(1) Get/Put/Remove via map index + recency pointers
//   - Be concurrency-safe (one coarse mutex per cache) with correctness as
//     the primary goal
//   - Keep byte accounting that can never drift negative
//   - Persist and restore a point-in-time-consistent state, re-validating
//     invariants on load
package cache
