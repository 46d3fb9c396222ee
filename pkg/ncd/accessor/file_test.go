package accessor_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ens-ds23/ncd/pkg/ncd/accessor"
)

func TestFileAccessor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	want := []byte("0123456789abcdef")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	a, err := accessor.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer a.Close()

	length, err := a.Length()
	if err != nil {
		t.Fatalf("Length: %v", err)
	}
	if length != int64(len(want)) {
		t.Fatalf("Length = %d, want %d", length, len(want))
	}

	got, err := a.ReadRange(3, 4)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if !bytes.Equal(got, want[3:7]) {
		t.Fatalf("ReadRange = %q, want %q", got, want[3:7])
	}

	if _, err := a.ReadRange(int64(len(want))-1, 5); err == nil {
		t.Fatalf("expected short-read error past EOF")
	}
}
