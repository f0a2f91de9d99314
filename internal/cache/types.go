// Package cache stores preprocessed documents so they are not cleaned,
// expanded and segmented again on every run. It has an in-memory LRU
// level backed by a compressed disk level.
package cache

import "errors"

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// Level identifies a cache tier.
type Level int

const (
	// LevelMemory is the in-memory LRU.
	LevelMemory Level = iota
	// LevelDisk is the persistent compressed store.
	LevelDisk
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds cache counters.
type Stats struct {
	Capacity  int64 // Bytes
	Size      int64 // Bytes
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits over lookups, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}
