package pile

import (
	"fmt"
	"sync"
	"time"
)

// Pile is a content-addressed, append-only blob store backed by a single
// file, a fixed-size read-only memory mapping over that file, and an
// in-memory digest index. See the package doc comment for usage and
// concurrency guarantees.
//
// A Pile must be obtained via Load; the zero value is not usable.
type Pile struct {
	backing *backingFile
	mapping *mapping
	index   *index
	maxSize uint64

	closedMu sync.RWMutex
	closed   bool
}

// Load opens or creates the pile file named by opts.Path.
//
// If the file is new (zero length), Load succeeds with an empty pile. If it
// already contains records, they are walked once to populate the index;
// this does not verify any digest (see [Pile.Get] for when verification
// happens). Loading is O(record count), not O(total bytes).
//
// Possible errors: [ErrInvalidOptions], [ErrPileTooLarge], [ErrFileLength],
// [ErrMagicMarker], [ErrHeader], [ErrUnexpectedEOF], and wrapped I/O errors.
func Load(opts Options) (*Pile, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	backing, err := openBackingFile(opts.Path)
	if err != nil {
		return nil, err
	}

	if backing.length > opts.MaxSize {
		_ = backing.close()
		return nil, fmt.Errorf("file length %d exceeds max_size %d: %w", backing.length, opts.MaxSize, ErrPileTooLarge)
	}

	if backing.length%recordAlignment != 0 {
		_ = backing.close()
		return nil, fmt.Errorf("file length %d: %w", backing.length, ErrFileLength)
	}

	m, err := newMapping(backing.file.Fd(), opts.MaxSize)
	if err != nil {
		_ = backing.close()
		return nil, err
	}

	idx := newIndex()
	if err := loadIndex(m, backing.length, idx); err != nil {
		_ = m.close()
		_ = backing.close()
		return nil, err
	}

	return &Pile{
		backing: backing,
		mapping: m,
		index:   idx,
		maxSize: opts.MaxSize,
	}, nil
}

// loadIndex walks the file byte range [0, length) as a stream of records and
// registers each one in idx. It does not verify any digest.
func loadIndex(m *mapping, length uint64, idx *index) error {
	var pos uint64

	for pos < length {
		header := decodeRecordHeader(m.view(pos, recordHeaderSize))
		if header.Magic != magicMarker {
			return fmt.Errorf("record at offset %d: %w", pos, ErrMagicMarker)
		}

		payloadStart := pos + recordHeaderSize
		padding := paddingFor(header.Length)
		recordEnd := payloadStart + header.Length + padding

		if recordEnd > length {
			return fmt.Errorf("record at offset %d: %w", pos, ErrUnexpectedEOF)
		}

		payload := m.view(payloadStart, header.Length)

		for _, b := range m.view(payloadStart+header.Length, padding) {
			if b != 0 {
				return fmt.Errorf("record at offset %d: non-zero padding: %w", pos, ErrHeader)
			}
		}

		idx.insert(header.Hash, payload, unvalidated)

		pos = recordEnd
	}

	return nil
}

// Insert computes the digest of b, appends it as a new record, and returns
// the digest. The returned digest's entry is Validated immediately, since
// this package itself computed it from the bytes being stored.
//
// Possible errors: [ErrClosed], [ErrPileTooLarge], and wrapped I/O errors.
func (p *Pile) Insert(b []byte) (Digest, error) {
	h := digest(b)

	if _, err := p.insertRaw(h, validated, b); err != nil {
		return Digest{}, err
	}

	return h, nil
}

// InsertUnvalidated appends b as a new record under the caller-supplied
// digest h, without computing or checking digest(b). The caller asserts
// that h == digest(b); the store records h as the content address and
// lazily checks it at the first Get. If the assertion is false, the first
// Get for h (and every one after it) returns a [ValidationError].
//
// Possible errors: [ErrClosed], [ErrPileTooLarge], and wrapped I/O errors.
func (p *Pile) InsertUnvalidated(h Digest, b []byte) ([]byte, error) {
	return p.insertRaw(h, unvalidated, b)
}

// insertRaw is the shared append protocol behind Insert and
// InsertUnvalidated (spec.md §4.4.4): it appends a framed record to the
// backing file and registers a zero-copy view of its payload in the index
// under h with the given initial validation state.
//
// The index is updated only after the write completes, so any digest
// visible in the index corresponds to bytes already written to the file and
// therefore visible through the mapping. The write is not synced here; see
// [Pile.Flush].
func (p *Pile) insertRaw(h Digest, state validationState, b []byte) ([]byte, error) {
	p.closedMu.RLock()
	closed := p.closed
	p.closedMu.RUnlock()

	if closed {
		return nil, ErrClosed
	}

	header := encodeRecordHeader(recordHeader{
		Magic:     magicMarker,
		Timestamp: uint64(time.Now().UnixMilli()),
		Length:    uint64(len(b)),
		Hash:      h,
	})
	padding := make([]byte, paddingFor(uint64(len(b))))

	offset, err := p.backing.append(header, b, padding, p.maxSize)
	if err != nil {
		return nil, err
	}

	view := p.mapping.view(offset+recordHeaderSize, uint64(len(b)))

	p.index.insert(h, view, state)

	return view, nil
}

// Get returns the bytes stored under digest h, or (nil, nil) if h is not
// present.
//
// If the entry is Unvalidated, Get computes digest(bytes) exactly once: on
// a match the entry transitions to Validated and future Gets skip
// recomputation; on a mismatch the entry transitions permanently to
// Invalid and this and every future Get for h returns a [ValidationError]
// without recomputing anything.
//
// Possible errors: [ErrClosed], [ValidationError] (wraps [ErrValidation]).
func (p *Pile) Get(h Digest) ([]byte, error) {
	p.closedMu.RLock()
	closed := p.closed
	p.closedMu.RUnlock()

	if closed {
		return nil, ErrClosed
	}

	entry := p.index.lookup(h)
	if entry == nil {
		return nil, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	switch entry.state {
	case validated:
		return entry.bytes, nil
	case invalid:
		return nil, &ValidationError{Digest: h, Bytes: entry.bytes}
	default: // unvalidated
		if digest(entry.bytes) == h {
			entry.state = validated
			return entry.bytes, nil
		}

		entry.state = invalid

		return nil, &ValidationError{Digest: h, Bytes: entry.bytes}
	}
}

// Flush durably flushes every record whose append returned success before
// Flush began. It does not re-walk the index or re-verify anything.
//
// Possible errors: [ErrClosed], wrapped I/O errors.
func (p *Pile) Flush() error {
	p.closedMu.RLock()
	closed := p.closed
	p.closedMu.RUnlock()

	if closed {
		return ErrClosed
	}

	return p.backing.sync()
}

// Len reports the number of distinct digests currently indexed, regardless
// of validation state.
func (p *Pile) Len() int {
	return p.index.len()
}

// Close unmaps the pile's memory mapping and closes its backing file. Close
// is idempotent; subsequent calls are no-ops returning nil.
//
// Views previously returned by Insert, InsertUnvalidated, or Get are not
// safe to dereference once every Pile referencing their mapping has been
// closed; see SPEC_FULL.md §9 for why Go cannot express this as a
// type-level contract the way the original Rust implementation's Arc does.
func (p *Pile) Close() error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	mapErr := p.mapping.close()
	backErr := p.backing.close()

	if mapErr != nil {
		return mapErr
	}

	return backErr
}

// UnvalidatedBlob pairs a caller-asserted digest with the bytes to store
// under it, for use with InsertUnvalidatedBatch.
type UnvalidatedBlob struct {
	Digest Digest
	Bytes  []byte
}

// BatchResult is the per-element outcome of a batch insert: either Digest
// and View are populated and Err is nil, or Err explains why that element
// failed and Digest/View are the zero value.
type BatchResult struct {
	Digest Digest
	View   []byte
	Err    error
}

// InsertBatch inserts each blob in order, equivalent to calling Insert for
// each one, and reports a result per element instead of stopping at the
// first failure. This is the primary bulk-insert API; see
// [Pile.InsertBatchBestEffort] for a thin wrapper that discards failures.
func (p *Pile) InsertBatch(blobs [][]byte) []BatchResult {
	results := make([]BatchResult, len(blobs))

	for i, b := range blobs {
		h := digest(b)

		view, err := p.insertRaw(h, validated, b)
		results[i] = BatchResult{Digest: h, View: view, Err: err}
	}

	return results
}

// InsertUnvalidatedBatch inserts each blob in order, equivalent to calling
// InsertUnvalidated for each one, and reports a result per element instead
// of stopping at the first failure.
func (p *Pile) InsertUnvalidatedBatch(blobs []UnvalidatedBlob) []BatchResult {
	results := make([]BatchResult, len(blobs))

	for i, blob := range blobs {
		view, err := p.insertRaw(blob.Digest, unvalidated, blob.Bytes)
		results[i] = BatchResult{Digest: blob.Digest, View: view, Err: err}
	}

	return results
}

// InsertBatchBestEffort inserts each blob, silently dropping any that fail,
// and returns the digests of those that succeeded.
//
// This mirrors the original implementation's bulk-insert behavior, which
// silently discarded per-element errors (spec.md §9 flags this as
// questionable). It is kept as an explicitly named, opt-in convenience
// wrapper over [Pile.InsertBatch] rather than the default bulk-insert
// behavior, so a caller who wants to silently drop failures has to say so.
func (p *Pile) InsertBatchBestEffort(blobs [][]byte) []Digest {
	results := p.InsertBatch(blobs)

	digests := make([]Digest, 0, len(results))

	for _, r := range results {
		if r.Err == nil {
			digests = append(digests, r.Digest)
		}
	}

	return digests
}

// InsertUnvalidatedBatchBestEffort inserts each blob, silently dropping any
// that fail, and returns the views of those that succeeded. See
// [Pile.InsertBatchBestEffort] for why this form exists alongside
// [Pile.InsertUnvalidatedBatch].
func (p *Pile) InsertUnvalidatedBatchBestEffort(blobs []UnvalidatedBlob) [][]byte {
	results := p.InsertUnvalidatedBatch(blobs)

	views := make([][]byte, 0, len(results))

	for _, r := range results {
		if r.Err == nil {
			views = append(views, r.View)
		}
	}

	return views
}
