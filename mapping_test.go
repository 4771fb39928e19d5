package pile

import (
	"os"
	"path/filepath"
	"testing"
)

func createMappingFile(t *testing.T, initial []byte, mapSize uint64) (*os.File, *mapping) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pile.bin")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if len(initial) > 0 {
		if _, err := f.WriteAt(initial, 0); err != nil {
			t.Fatalf("write initial bytes: %v", err)
		}
	}

	if err := f.Truncate(int64(mapSize)); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	m, err := newMapping(f.Fd(), mapSize)
	if err != nil {
		t.Fatalf("newMapping: %v", err)
	}

	t.Cleanup(func() {
		_ = m.close()
		_ = f.Close()
	})

	return f, m
}

func Test_NewMapping_Exposes_Bytes_Already_Present_In_File(t *testing.T) {
	t.Parallel()

	want := []byte("hello, mapped world")
	_, m := createMappingFile(t, want, 4096)

	got := m.view(0, uint64(len(want)))
	if string(got) != string(want) {
		t.Errorf("view(0, %d) = %q, want %q", len(want), got, want)
	}
}

func Test_Mapping_View_Observes_Bytes_Written_After_Mapping_Was_Created(t *testing.T) {
	t.Parallel()

	f, m := createMappingFile(t, nil, 4096)

	payload := []byte("written after mmap")
	if _, err := f.WriteAt(payload, 10); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := m.view(10, uint64(len(payload)))
	if string(got) != string(payload) {
		t.Errorf("view after write = %q, want %q", got, payload)
	}
}

func Test_Mapping_Close_Is_Idempotent(t *testing.T) {
	t.Parallel()

	_, m := createMappingFile(t, nil, 4096)

	if err := m.close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	if err := m.close(); err != nil {
		t.Errorf("second close: %v, want nil", err)
	}
}

func Test_Mapping_View_Three_Index_Slice_Caps_Capacity_At_View_Length(t *testing.T) {
	t.Parallel()

	_, m := createMappingFile(t, []byte("0123456789"), 4096)

	view := m.view(0, 4)
	if cap(view) != 4 {
		t.Errorf("cap(view) = %d, want 4", cap(view))
	}
}
