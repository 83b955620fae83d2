package siem

import "hash/fnv"

// StableID derives a deterministic numeric identifier from a source key
// for backends whose APIs do not expose one. The same key always maps to
// the same id across runs, which keeps per-source history contiguous in
// the store. Bounded below 1e9 so ids stay readable in reports.
func StableID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() % 1_000_000_000)
}
