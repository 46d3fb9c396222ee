package ncd

// Reader looks keys up in a store reachable through an Accessor. It caches
// the header (read by New with two small range reads) for the
// life of the Reader, then costs exactly one range read per lookup for an
// inline value and two for an external one: one to find the slot holding
// the pointer, one to fetch the bytes it names.
type Reader struct {
	acc Accessor
	hdr *Header
}

// New opens a store for reading. It reads BootstrapSize bytes to learn the
// header's size and, if the header is larger than that bootstrap, issues
// one more range read for the remainder. For the current format version
// the header (HeaderSize, 48 bytes) is always larger than the 8-byte
// bootstrap, so New makes both reads; the size comes from the header
// itself so that a future, larger header does not break this reader.
func New(acc Accessor) (*Reader, error) {
	length, err := acc.Length()
	if err != nil {
		return nil, &IOError{Op: "length", Err: err}
	}
	if length < BootstrapSize {
		return nil, &MalformedStoreError{Reason: "store shorter than header bootstrap"}
	}

	bootstrap, err := acc.ReadRange(0, BootstrapSize)
	if err != nil {
		return nil, &IOError{Op: "read header bootstrap", Err: err}
	}
	headerSize, err := PeekHeaderSize(bootstrap)
	if err != nil {
		return nil, err
	}

	full := bootstrap
	if int64(headerSize) > BootstrapSize {
		rest, err := acc.ReadRange(BootstrapSize, int64(headerSize)-BootstrapSize)
		if err != nil {
			return nil, &IOError{Op: "read header remainder", Err: err}
		}
		full = append(append([]byte(nil), bootstrap...), rest...)
	}
	hdr, err := DecodeHeader(full)
	if err != nil {
		return nil, err
	}
	if length < hdr.ExternalRegionOffset+hdr.ExternalRegionLength {
		return nil, &MalformedStoreError{Reason: "store shorter than header's external region"}
	}
	return &Reader{acc: acc, hdr: hdr}, nil
}

// Header returns the store's decoded header.
func (r *Reader) Header() Header { return *r.hdr }

// Get looks up key, returning its value. It returns ErrNotFound, not an
// error, if key was never built into the store.
func (r *Reader) Get(key []byte) ([]byte, error) {
	h := HashKey(r.hdr.HashSeed, key)
	pageIdx := PageIndex(h, r.hdr.PageCount)
	pageOff := r.hdr.PagesOffset() + int64(pageIdx)*int64(r.hdr.PageSize)

	raw, err := r.acc.ReadRange(pageOff, int64(r.hdr.PageSize))
	if err != nil {
		return nil, &IOError{Op: "read page", Err: err}
	}
	page, err := DecodePage(raw, r.hdr.OffsetWidth)
	if err != nil {
		return nil, err
	}
	value, ext, found, err := page.Lookup(h, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	if ext == nil {
		return value, nil
	}
	extBytes, err := r.acc.ReadRange(int64(ext.Offset), int64(ext.Length))
	if err != nil {
		return nil, &IOError{Op: "read external value", Err: err}
	}
	return extBytes, nil
}
