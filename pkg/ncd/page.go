package ncd

import "encoding/binary"

// Slot tags. A slot's tag is its first byte; every other field is
// positional and fixed-size, so a slot can be read or written in isolation
// without parsing its neighbors.
const (
	slotEmpty    byte = 0
	slotInline   byte = 1
	slotExternal byte = 2
)

// slotSize returns the fixed size, in bytes, of one slot in a page whose
// header picked the given offset width for in-page fields. key_off and
// key_len are page-local and so are sized to offsetWidth; the third and
// fourth fields are always 8 bytes wide, since for an external slot they
// hold an absolute file offset and length that can exceed what offsetWidth
// bytes could address. Keeping every slot the same size regardless of its
// tag is what lets the page be probed by direct index arithmetic instead of
// a scan.
func slotSize(offsetWidth uint8) int {
	return 1 + 2*int(offsetWidth) + 16
}

// PageEntry is one record already routed to a page and assigned a slot,
// ready to be encoded. Exactly one of Value or (ExtOff, ExtLen)
// applies, selected by External.
type PageEntry struct {
	Slot     uint32
	Key      []byte
	Value    []byte
	External bool
	ExtOff   uint64
	ExtLen   uint64
}

// EncodedSize returns the number of inline heap bytes entry e would consume
// were it placed in a page: the key bytes always, plus the value bytes if
// e is not external.
func (e PageEntry) EncodedSize() int {
	n := len(e.Key)
	if !e.External {
		n += len(e.Value)
	}
	return n
}

// EncodePage renders capacity slots (some empty, per entries) plus the
// inline heap into a buffer exactly pageSize bytes long. It fails with a
// *PageOverflowError if the slot table and heap together cannot fit.
func EncodePage(pageSize uint32, offsetWidth uint8, capacity uint32, page uint32, entries []PageEntry) ([]byte, error) {
	ss := slotSize(offsetWidth)
	slotTableBytes := int(offsetWidth) + int(capacity)*ss
	if slotTableBytes > int(pageSize) {
		return nil, &PageOverflowError{Page: page, Reason: "slot table does not fit in page"}
	}

	buf := make([]byte, pageSize)
	putUint(buf[0:offsetWidth], offsetWidth, uint64(capacity))

	heap := slotTableBytes
	for _, e := range entries {
		if e.Slot >= capacity {
			return nil, &PageOverflowError{Page: page, Reason: "slot index out of range"}
		}
		slotOff := int(offsetWidth) + int(e.Slot)*ss
		slot := buf[slotOff : slotOff+ss]

		keyOff := heap
		if keyOff+len(e.Key) > int(pageSize) {
			return nil, &PageOverflowError{Page: page, Reason: "inline heap overflow"}
		}
		copy(buf[keyOff:], e.Key)
		heap += len(e.Key)

		if e.External {
			slot[0] = slotExternal
			putUint(slot[1:1+offsetWidth], offsetWidth, uint64(keyOff))
			putUint(slot[1+offsetWidth:1+2*offsetWidth], offsetWidth, uint64(len(e.Key)))
			binary.LittleEndian.PutUint64(slot[1+2*offsetWidth:], e.ExtOff)
			binary.LittleEndian.PutUint64(slot[1+2*offsetWidth+8:], e.ExtLen)
			continue
		}

		valOff := heap
		if valOff+len(e.Value) > int(pageSize) {
			return nil, &PageOverflowError{Page: page, Reason: "inline heap overflow"}
		}
		copy(buf[valOff:], e.Value)
		heap += len(e.Value)

		slot[0] = slotInline
		putUint(slot[1:1+offsetWidth], offsetWidth, uint64(keyOff))
		putUint(slot[1+offsetWidth:1+2*offsetWidth], offsetWidth, uint64(len(e.Key)))
		binary.LittleEndian.PutUint64(slot[1+2*offsetWidth:], uint64(valOff))
		binary.LittleEndian.PutUint64(slot[1+2*offsetWidth+8:], uint64(len(e.Value)))
	}
	return buf, nil
}

// ExternalPointer locates a value stored outside its page, in the store's
// external region.
type ExternalPointer struct {
	Offset uint64
	Length uint64
}

// DecodedPage is a page's bytes together with the offset width needed to
// interpret its slot table. It is cheap to construct: nothing is parsed
// until Lookup reads the specific slots a probe visits.
type DecodedPage struct {
	data        []byte
	offsetWidth uint8
	capacity    uint32
}

// DecodePage wraps a page's raw bytes for lookups. It validates that the
// page announces a slot table no larger than the page itself; every other
// field is validated lazily, per slot, as Lookup visits it.
func DecodePage(data []byte, offsetWidth uint8) (*DecodedPage, error) {
	if offsetWidth != 2 && offsetWidth != 4 {
		return nil, &MalformedStoreError{Reason: "invalid offset width"}
	}
	if len(data) < int(offsetWidth) {
		return nil, &MalformedStoreError{Reason: "page shorter than its slot count field"}
	}
	capacity := uint32(getUint(data[0:offsetWidth], offsetWidth))
	ss := slotSize(offsetWidth)
	slotTableBytes := int(offsetWidth) + int(capacity)*ss
	if slotTableBytes > len(data) {
		return nil, &MalformedStoreError{Reason: "page slot table exceeds page size"}
	}
	return &DecodedPage{data: data, offsetWidth: offsetWidth, capacity: capacity}, nil
}

// Capacity returns the number of slots this page was built with.
func (p *DecodedPage) Capacity() uint32 { return p.capacity }

func (p *DecodedPage) slotBytes(i uint32) []byte {
	ss := slotSize(p.offsetWidth)
	off := int(p.offsetWidth) + int(i)*ss
	return p.data[off : off+ss]
}

// Lookup probes the page for key, starting at the slot chosen by h and
// stepping linearly (wrapping around) until it finds either a match or an
// empty slot, which terminates the search the same way it would in any
// open-addressed table: nothing beyond the first gap in the probe sequence
// could have been placed for this key, so its absence is certain.
//
// found reports whether key is present. When found, value holds the bytes
// of an inline record, or ext holds the pointer for an external one - never
// both.
func (p *DecodedPage) Lookup(h uint64, key []byte) (value []byte, ext *ExternalPointer, found bool, err error) {
	if p.capacity == 0 {
		return nil, nil, false, nil
	}
	ow := p.offsetWidth
	start := probeStart(h, p.capacity)
	for i := uint32(0); i < p.capacity; i++ {
		idx := (start + i) % p.capacity
		slot := p.slotBytes(idx)
		tag := slot[0]
		if tag == slotEmpty {
			return nil, nil, false, nil
		}
		keyOff := getUint(slot[1:1+ow], ow)
		keyLen := getUint(slot[1+ow:1+2*ow], ow)
		if keyOff+keyLen > uint64(len(p.data)) {
			return nil, nil, false, &MalformedStoreError{Reason: "slot key extends past page"}
		}
		candidate := p.data[keyOff : keyOff+keyLen]
		if string(candidate) != string(key) {
			continue
		}
		switch tag {
		case slotInline:
			valOff := binary.LittleEndian.Uint64(slot[1+2*ow:])
			valLen := binary.LittleEndian.Uint64(slot[1+2*ow+8:])
			if valOff+valLen > uint64(len(p.data)) {
				return nil, nil, false, &MalformedStoreError{Reason: "slot value extends past page"}
			}
			return p.data[valOff : valOff+valLen], nil, true, nil
		case slotExternal:
			extOff := binary.LittleEndian.Uint64(slot[1+2*ow:])
			extLen := binary.LittleEndian.Uint64(slot[1+2*ow+8:])
			return nil, &ExternalPointer{Offset: extOff, Length: extLen}, true, nil
		default:
			return nil, nil, false, &MalformedStoreError{Reason: "unknown slot tag"}
		}
	}
	return nil, nil, false, nil
}

func putUint(b []byte, width uint8, v uint64) {
	switch width {
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

func getUint(b []byte, width uint8) uint64 {
	switch width {
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return 0
}
