// Package accessor provides the two concrete ncd.Accessor implementations a
// lookup CLI needs: a local file opened with os.Open, and an HTTP client
// that issues Range requests, the way ncd-lookup's "file" and "http"
// sources do.
package accessor

import (
	"fmt"
	"io"
	"os"

	"github.com/ens-ds23/ncd/pkg/ncd"
)

// File serves a store from a local, already-opened file via ReadAt, so
// concurrent ReadRange calls need no external locking.
type File struct {
	f *os.File
}

// OpenFile opens path for reading and returns a File accessor for it.
// Callers should Close it when done.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ncd.IOError{Op: "open", Err: err}
	}
	return &File{f: f}, nil
}

// Close closes the underlying file.
func (a *File) Close() error { return a.f.Close() }

// Length implements ncd.Accessor.
func (a *File) Length() (int64, error) {
	info, err := a.f.Stat()
	if err != nil {
		return 0, &ncd.IOError{Op: "stat", Err: err}
	}
	return info.Size(), nil
}

// ReadRange implements ncd.Accessor.
func (a *File) ReadRange(offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := a.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, &ncd.IOError{Op: "read", Err: err}
	}
	if int64(n) != length {
		return nil, &ncd.IOError{Op: "read", Err: fmt.Errorf("short read: got %d of %d bytes at offset %d", n, length, offset)}
	}
	return buf, nil
}
