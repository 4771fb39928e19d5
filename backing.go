package pile

import (
	"fmt"
	"os"
	"sync"
)

// backingFile owns the underlying pile file and its append cursor. It is
// the only component permitted to extend the file, and it holds a mutex for
// the duration of any append or sync so no reader ever observes the
// intermediate bytes of an in-flight record through this API. Readers
// instead go through the Mapping, which only ever sees fully-written bytes
// because the index is updated after the write completes (see Pile.insertRaw).
type backingFile struct {
	mu sync.Mutex

	file   *os.File
	length uint64 // bytes actually written; advances only under mu
}

// openBackingFile opens path for read+append, creating it if it doesn't
// exist, and reports its current on-disk length.
func openBackingFile(path string) (*backingFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open pile file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat pile file: %w", err)
	}

	return &backingFile{
		file:   f,
		length: uint64(info.Size()),
	}, nil
}

// append writes header, payload, and padding as a single ordered sequence
// of writes starting at the current length, provided the resulting length
// does not exceed maxSize. The size check and the write happen under the
// same lock, so concurrent appenders never observe each other's in-between
// state and never overrun maxSize.
//
// On success, the length advances by the framed size and the offset the
// record (its header) was written at is returned. On an ErrPileTooLarge rejection, the
// length is left unchanged. Partial-write recovery past that point is not
// attempted: a failure partway through a write leaves the file with a torn
// tail, which a subsequent Load will reject (see spec.md §9).
func (b *backingFile) append(header, payload, padding []byte, maxSize uint64) (offset uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := uint64(len(header)) + uint64(len(payload)) + uint64(len(padding))
	newLength := b.length + total

	if newLength > maxSize {
		return 0, ErrPileTooLarge
	}

	offset = b.length
	cursor := int64(offset)

	for _, chunk := range [][]byte{header, payload, padding} {
		if len(chunk) == 0 {
			continue
		}

		n, werr := b.file.WriteAt(chunk, cursor)
		if werr != nil {
			return 0, fmt.Errorf("write record: %w", werr)
		}

		cursor += int64(n)
	}

	b.length = newLength

	return offset, nil
}

// sync durably flushes file data to stable storage (data-sync semantics;
// metadata such as mtime need not be flushed).
func (b *backingFile) sync() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.file.Sync(); err != nil {
		return fmt.Errorf("sync pile file: %w", err)
	}

	return nil
}

// currentLength returns the backing file's logical length.
func (b *backingFile) currentLength() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.length
}

func (b *backingFile) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.file.Close(); err != nil {
		return fmt.Errorf("close pile file: %w", err)
	}

	return nil
}
