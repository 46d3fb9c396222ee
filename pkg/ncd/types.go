package ncd

// ValueSource produces the key/value records a Builder packs into a store.
// It must be restartable: Restart followed by repeated Next calls must
// yield the exact same sequence of records every time, since the builder
// replays a source once to size the store and again (possibly several
// times, if a page overflows) to place records into it. A source that
// cannot make this guarantee should say so by failing Restart rather than
// silently producing a different sequence. The builder reports
// ErrSourceNotStable when a replay yields a different number of records
// than the first pass; a replay that changes records but keeps their count
// is not detected.
type ValueSource interface {
	// Restart rewinds the source so the next calls to Next begin the
	// sequence over again from the first record.
	Restart() error

	// Next returns the next record. ok is false once the source is
	// exhausted, with err nil. A non-nil err aborts the build and is
	// wrapped in a SourceError.
	Next() (key, value []byte, ok bool, err error)
}

// Accessor is the byte-range read contract the Reader is built against. A
// store never needs more than its length and arbitrary [offset, offset+length)
// slices of its bytes, so any backing medium that can answer those two
// questions - a local file, an HTTP server that honors Range requests, a
// slice held in memory - can serve as a store's Accessor.
type Accessor interface {
	// Length reports the total size of the store in bytes.
	Length() (int64, error)

	// ReadRange returns exactly length bytes starting at offset. It
	// returns an error (typically an *IOError) if that range cannot be
	// satisfied in full.
	ReadRange(offset, length int64) ([]byte, error)
}
