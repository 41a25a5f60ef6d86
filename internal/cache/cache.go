// Package cache defines the report cache contract. Aggregate views are
// stored as encoded payloads under string keys with a per-entry TTL.
//
// A cache failure must never take down the read path: Get degrades to a
// miss, Set and Del are best effort. Callers fall back to direct
// aggregation on any miss.
package cache

import "time"

type Interface interface {
	// Get returns the live (non-expired) payload for key, or ok=false.
	Get(key string) (val []byte, ok bool)

	// Set stores val under key, overwriting any prior entry. A
	// non-positive ttl falls back to the backend default.
	Set(key string, val []byte, ttl time.Duration)

	// Del drops the given keys. Missing keys are ignored.
	Del(keys ...string)
}
