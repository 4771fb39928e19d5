// Package pile provides a content-addressed, append-only blob store.
//
// A pile persists arbitrary byte blobs to a single file, keys them by the
// 256-bit digest of their contents, and serves them back with zero-copy
// reads backed by a memory mapping. It is not a database: there is no
// deletion, no compaction, and no mutation of a blob once it has been
// written.
//
// # Basic Usage
//
//	p, err := pile.Load(pile.Options{
//	    Path:    "/var/lib/myapp/blobs.pile",
//	    MaxSize: 1 << 30, // 1 GiB
//	})
//	if err != nil {
//	    // handle error; a corrupt or oversized file is not auto-repaired
//	}
//	defer p.Close()
//
//	h, err := p.Insert([]byte("hello"))
//	b, err := p.Get(h) // b aliases the pile's memory mapping, no copy
//
// # Concurrency
//
// A *Pile is safe for concurrent use by multiple goroutines for Get and
// Flush. Insert and InsertUnvalidated may also be called concurrently; the
// file lock inside the pile serializes the on-disk append, and an entry only
// becomes visible in the index once its bytes have been written to the
// file (durability on disk comes only from [Pile.Flush]), so any goroutine that observes a digest in the index is
// guaranteed to see the correct bytes for it.
//
// # Error Handling
//
// Errors returned by the underlying file system (permission errors, disk
// full, and similar) are returned wrapped, never swallowed or reclassified.
// A file that fails to parse as a pile (bad magic, misaligned length, torn
// tail) fails [Load] outright — there is no partial-recovery mode; see
// [ErrMagicMarker], [ErrFileLength], and [ErrUnexpectedEOF]. A digest whose
// bytes fail validation on first read is permanently poisoned: every
// subsequent [Pile.Get] for that digest returns [ErrValidation] without
// recomputing the digest.
package pile
