package ncd

import (
	"encoding/binary"
	"hash/crc32"
)

var magicBytes = [4]byte{'N', 'C', 'D', 0}

const (
	formatVersion uint16 = 1

	// BootstrapSize is the number of bytes a Reader must read first: just
	// enough to learn the magic, the format version, and the header's
	// own size, so that it knows how many more bytes (if any) the rest
	// of the header needs.
	BootstrapSize = 8

	// HeaderSize is the fixed, current on-disk size of the header. It is
	// also written into the header itself (as HeaderSize) so that a
	// future format version free to grow the header is still
	// self-describing to old and new readers alike.
	HeaderSize = 48
)

// Header is the store's fixed 48-byte preamble: everything a Reader needs
// to locate every page and the external region without reading anything
// else from the file.
type Header struct {
	FormatVersion        uint16
	PageSize             uint32
	PageCount            uint32
	HashSeed             uint64
	OffsetWidth          uint8
	ExternalRegionOffset uint64
	ExternalRegionLength uint64
}

// Encode renders h as the HeaderSize-byte preamble, including its trailing
// CRC32 checksum.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], magicBytes[:])
	binary.LittleEndian.PutUint16(buf[4:6], formatVersion)
	binary.LittleEndian.PutUint16(buf[6:8], HeaderSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.PageSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.PageCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.HashSeed)
	buf[24] = h.OffsetWidth
	// buf[25:28] reserved, left zero
	binary.LittleEndian.PutUint64(buf[28:36], h.ExternalRegionOffset)
	binary.LittleEndian.PutUint64(buf[36:44], h.ExternalRegionLength)
	binary.LittleEndian.PutUint32(buf[44:48], crc32.ChecksumIEEE(buf[:44]))
	return buf
}

// PagesOffset returns the file offset of page 0, i.e. HeaderSize.
func (h Header) PagesOffset() int64 { return int64(HeaderSize) }

// DecodeHeader parses a full HeaderSize-byte header previously produced by
// Encode, validating its magic, version, and checksum.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < BootstrapSize {
		return nil, &MalformedStoreError{Reason: "store shorter than header bootstrap"}
	}
	if string(buf[0:4]) != string(magicBytes[:]) {
		return nil, &MalformedStoreError{Reason: "bad magic"}
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != formatVersion {
		return nil, &MalformedStoreError{Reason: "unsupported format version"}
	}
	size := binary.LittleEndian.Uint16(buf[6:8])
	if int(size) != HeaderSize {
		return nil, &MalformedStoreError{Reason: "unexpected header size"}
	}
	if len(buf) < HeaderSize {
		return nil, &MalformedStoreError{Reason: "store shorter than its own header"}
	}
	want := crc32.ChecksumIEEE(buf[:44])
	got := binary.LittleEndian.Uint32(buf[44:48])
	if want != got {
		return nil, &MalformedStoreError{Reason: "header checksum mismatch"}
	}
	ow := buf[24]
	if ow != 2 && ow != 4 {
		return nil, &MalformedStoreError{Reason: "invalid offset width in header"}
	}
	return &Header{
		FormatVersion:        version,
		PageSize:             binary.LittleEndian.Uint32(buf[8:12]),
		PageCount:            binary.LittleEndian.Uint32(buf[12:16]),
		HashSeed:             binary.LittleEndian.Uint64(buf[16:24]),
		OffsetWidth:          ow,
		ExternalRegionOffset: binary.LittleEndian.Uint64(buf[28:36]),
		ExternalRegionLength: binary.LittleEndian.Uint64(buf[36:44]),
	}, nil
}

// PeekHeaderSize reads just enough of a bootstrap buffer (BootstrapSize
// bytes) to check the magic and learn the header's total size, and so how
// many more bytes, if any, the full header needs. It does not check the
// format version; DecodeHeader does.
func PeekHeaderSize(bootstrap []byte) (headerSize uint16, err error) {
	if len(bootstrap) < BootstrapSize {
		return 0, &MalformedStoreError{Reason: "store shorter than header bootstrap"}
	}
	if string(bootstrap[0:4]) != string(magicBytes[:]) {
		return 0, &MalformedStoreError{Reason: "bad magic"}
	}
	return binary.LittleEndian.Uint16(bootstrap[6:8]), nil
}
