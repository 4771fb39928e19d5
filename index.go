package pile

import "sync"

// validationState tracks whether an index entry's bytes have been checked
// against the digest they are keyed by.
type validationState int

const (
	unvalidated validationState = iota
	validated
	invalid
)

// indexEntry is the in-memory record for one digest: a zero-copy view into
// the pile's mapping, plus a validation flag that starts Unvalidated and
// transitions at most once, either to Validated or to Invalid. There is no
// transition out of Invalid or Validated.
type indexEntry struct {
	mu    sync.Mutex // guards state; held only to read or transition it
	bytes []byte
	state validationState
}

// index is a concurrent map from digest to entry.
//
// Locking architecture, mirroring the original Rust
// RwLock<HashMap<Digest, Mutex<IndexEntry>>>:
//
//  1. table lock (RWMutex) -- readers take RLock to look up an entry;
//     inserting a new digest takes the exclusive Lock.
//  2. per-entry lock (Mutex) -- held only while reading or transitioning
//     one entry's validation state, so a slow digest computation for one
//     entry never blocks lookups of other entries.
//
// Lock order is always table lock, then (if needed) per-entry lock, never
// the reverse.
type index struct {
	mu      sync.RWMutex
	entries map[Digest]*indexEntry
}

func newIndex() *index {
	return &index{entries: make(map[Digest]*indexEntry)}
}

// lookup returns the entry for h, or nil if absent.
func (ix *index) lookup(h Digest) *indexEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.entries[h]
}

// insert registers bytes under h with the given initial state. If h is
// already present, the new entry supersedes it (last-writer-wins, per
// spec.md §4.4.1 and §9).
func (ix *index) insert(h Digest, bytes []byte, state validationState) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.entries[h] = &indexEntry{bytes: bytes, state: state}
}

// len reports the number of distinct digests currently indexed.
func (ix *index) len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return len(ix.entries)
}
