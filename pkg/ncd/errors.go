// Package ncd implements the read-optimized, immutable, on-disk key→value
// store described by the NCD file format: a fixed header, a fixed number of
// fixed-size pages each holding an open-addressed hash slot table and an
// inline heap, and an external region for oversized values. The package
// exposes the on-disk codec (Header, Page), the placement function shared by
// the builder and the reader (HashKey), the Builder that packs a ValueSource
// into a store, and the Reader that looks values up through an Accessor.
package ncd

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Reader.Get when the key is absent from the
// store. It is not a failure of the store: a correctly operating lookup
// against a well-formed store returns it for any key that was never built
// in, and callers should treat it the way they treat a successful "no"
// rather than logging it as an error.
var ErrNotFound = errors.New("ncd: key not found")

// ErrSourceNotStable is returned by Builder.Attempt when a replay of the
// ValueSource yields a different number of records than the first pass
// counted. The builder relies on the source's restart contract to size and
// then pack the store in separate passes; a source that changes between
// passes cannot be packed correctly. Only the record count is compared: a
// replay that yields the same number of records with different contents is
// not detected.
var ErrSourceNotStable = errors.New("ncd: source produced a different sequence on replay")

// ErrDuplicateKey is wrapped by DuplicateKeyError; errors.Is(err,
// ErrDuplicateKey) reports whether a build failed because the source
// produced the same key twice.
var ErrDuplicateKey = errors.New("ncd: duplicate key")

// DuplicateKeyError reports the first key a ValueSource produced more than
// once. The store has no update semantics, so a repeated key is always a
// build-time error rather than an overwrite.
type DuplicateKeyError struct {
	Key []byte
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("ncd: duplicate key %q", e.Key)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// SourceError wraps an error returned by a ValueSource while it was
// producing records.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return fmt.Sprintf("ncd: source error: %v", e.Err) }
func (e *SourceError) Unwrap() error { return e.Err }

// IOError wraps an error encountered while reading or writing store bytes,
// whether through a local file or a byte-range Accessor.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("ncd: %s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// MalformedStoreError reports that the bytes read back from a store do not
// satisfy the format's invariants: a bad magic, an unsupported version, a
// checksum mismatch, or a page that decodes inconsistently.
type MalformedStoreError struct {
	Reason string
}

func (e *MalformedStoreError) Error() string { return "ncd: malformed store: " + e.Reason }

// PageOverflowError reports that a page could not hold every record routed
// to it, either because its slot table filled up or because its inline heap
// ran out of room. It is the builder's internal retry signal (see Builder);
// it only escapes Builder.Attempt as a fatal error once the configured
// bounds have been exhausted.
//
// SlotsFull distinguishes the two recoveries a retry can take: a full slot
// table (too many keys routed to this page) needs more pages or more
// capacity per page, which growing page_size alone does not reliably
// provide; a heap overflow (too many inline bytes) is fixed by a bigger
// page_size, the same way it always was.
type PageOverflowError struct {
	Page      uint32
	Reason    string
	SlotsFull bool
}

func (e *PageOverflowError) Error() string {
	return fmt.Sprintf("ncd: page %d overflow: %s", e.Page, e.Reason)
}
