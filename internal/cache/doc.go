// Package cache holds the process-local master-key cache described in
// spec §4.6: a TTL+LRU map from capsa package ID to (master key, per-file
// metadata, creation time), guarded by a single mutex, with the property
// that every removal path — explicit clear, LRU eviction, TTL expiry —
// unconditionally zeroes the entry's key material before it is discarded.
package cache
