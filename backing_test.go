package pile

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func openTestBacking(t *testing.T) *backingFile {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pile.bin")

	b, err := openBackingFile(path)
	if err != nil {
		t.Fatalf("openBackingFile: %v", err)
	}

	t.Cleanup(func() { _ = b.close() })

	return b
}

func Test_OpenBackingFile_Creates_Empty_File_When_Path_Does_Not_Exist(t *testing.T) {
	t.Parallel()

	b := openTestBacking(t)

	if b.currentLength() != 0 {
		t.Errorf("currentLength() = %d, want 0", b.currentLength())
	}
}

func Test_Append_Advances_Length_By_Total_Chunk_Size_When_Write_Succeeds(t *testing.T) {
	t.Parallel()

	b := openTestBacking(t)

	header := make([]byte, recordHeaderSize)
	payload := []byte("payload")
	padding := make([]byte, paddingFor(uint64(len(payload))))

	offset, err := b.append(header, payload, padding, maxPileSize)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if offset != 0 {
		t.Errorf("offset = %d, want 0", offset)
	}

	want := uint64(len(header) + len(payload) + len(padding))
	if b.currentLength() != want {
		t.Errorf("currentLength() = %d, want %d", b.currentLength(), want)
	}
}

func Test_Append_Writes_Second_Record_At_Offset_Of_First_Records_Total_Size(t *testing.T) {
	t.Parallel()

	b := openTestBacking(t)

	header := make([]byte, recordHeaderSize)
	payload := []byte("first")
	padding := make([]byte, paddingFor(uint64(len(payload))))

	firstOffset, err := b.append(header, payload, padding, maxPileSize)
	if err != nil {
		t.Fatalf("append first: %v", err)
	}

	firstTotal := uint64(len(header) + len(payload) + len(padding))

	secondOffset, err := b.append(header, payload, padding, maxPileSize)
	if err != nil {
		t.Fatalf("append second: %v", err)
	}

	if secondOffset != firstOffset+firstTotal {
		t.Errorf("second offset = %d, want %d", secondOffset, firstOffset+firstTotal)
	}
}

func Test_Append_Rejects_Write_When_Resulting_Length_Exceeds_MaxSize(t *testing.T) {
	t.Parallel()

	b := openTestBacking(t)

	header := make([]byte, recordHeaderSize)
	payload := make([]byte, 64)
	padding := make([]byte, paddingFor(uint64(len(payload))))

	total := uint64(len(header) + len(payload) + len(padding))

	_, err := b.append(header, payload, padding, total-1)
	if err == nil {
		t.Fatal("append did not return an error for an oversized write")
	}

	if !errors.Is(err, ErrPileTooLarge) {
		t.Errorf("append error = %v, want ErrPileTooLarge", err)
	}

	if b.currentLength() != 0 {
		t.Errorf("currentLength() = %d after rejected append, want 0", b.currentLength())
	}
}

func Test_Append_Serializes_Concurrent_Callers_Without_Exceeding_MaxSize(t *testing.T) {
	t.Parallel()

	b := openTestBacking(t)

	header := make([]byte, recordHeaderSize)
	payload := make([]byte, 64)
	padding := make([]byte, paddingFor(uint64(len(payload))))
	recordSize := uint64(len(header) + len(payload) + len(padding))

	const attempts = 50
	maxSize := recordSize * 10

	var wg sync.WaitGroup

	successes := make([]bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			_, err := b.append(header, payload, padding, maxSize)
			successes[i] = err == nil
		}(i)
	}

	wg.Wait()

	var count int

	for _, ok := range successes {
		if ok {
			count++
		}
	}

	if uint64(count) != maxSize/recordSize {
		t.Errorf("successful appends = %d, want %d", count, maxSize/recordSize)
	}

	if b.currentLength() != recordSize*uint64(count) {
		t.Errorf("currentLength() = %d, want %d", b.currentLength(), recordSize*uint64(count))
	}
}
