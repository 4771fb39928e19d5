package pile

import "fmt"

// Hardcoded implementation limits.
//
// These exist to keep size arithmetic safely away from the int/uint64
// boundary on 32-bit-length Go slices and to guard against obviously
// misconfigured callers; they are not tuned for any particular deployment.
const (
	// minPileSize is the smallest MaxSize that can hold a single zero-length
	// blob (one 128-byte record).
	minPileSize = 128

	// maxPileSize bounds the mmap window. This is a safety guardrail, not a
	// RAM limit — mmap does not fault in pages that are never touched — but
	// a multi-terabyte mapping is outside what this package implicitly
	// claims to support.
	maxPileSize = uint64(1) << 40 // 1 TiB
)

// Options configures opening or creating a pile file.
type Options struct {
	// Path is the filesystem path to the pile file. Required. The file is
	// created if it does not already exist.
	Path string

	// MaxSize is the maximum size in bytes the pile file may grow to. It
	// bounds both the memory mapping and the point at which Insert starts
	// failing with ErrPileTooLarge. Required, and fixed for the lifetime of
	// the Pile; a later Load of the same file may pass a larger MaxSize, and
	// the file can then grow up to that new bound.
	MaxSize uint64
}

func (o Options) validate() error {
	if o.Path == "" {
		return fmt.Errorf("path is required: %w", ErrInvalidOptions)
	}

	if o.MaxSize < minPileSize {
		return fmt.Errorf("max_size must be >= %d, got %d: %w", minPileSize, o.MaxSize, ErrInvalidOptions)
	}

	if o.MaxSize > maxPileSize {
		return fmt.Errorf("max_size %d exceeds max %d: %w", o.MaxSize, maxPileSize, ErrInvalidOptions)
	}

	return nil
}
