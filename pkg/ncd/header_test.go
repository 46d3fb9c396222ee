package ncd

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		FormatVersion:        formatVersion,
		PageSize:             32768,
		PageCount:            12,
		HashSeed:             0xdeadbeefcafef00d,
		OffsetWidth:          2,
		ExternalRegionOffset: 48 + 12*32768,
		ExternalRegionLength: 4096,
	}
	buf := h.Encode()
	if len(buf) != HeaderSize {
		t.Fatalf("Encode length = %d, want %d", len(buf), HeaderSize)
	}
	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if *got != h {
		t.Fatalf("DecodeHeader = %+v, want %+v", *got, h)
	}
}

func TestHeaderChecksumMismatch(t *testing.T) {
	h := Header{PageSize: 4096, PageCount: 1, OffsetWidth: 2}
	buf := h.Encode()
	buf[10] ^= 0xff // corrupt a byte inside the checksummed region
	if _, err := DecodeHeader(buf); err == nil {
		t.Fatalf("expected checksum mismatch error")
	}
}

func TestHeaderBadMagic(t *testing.T) {
	h := Header{PageSize: 4096, PageCount: 1, OffsetWidth: 2}
	buf := h.Encode()
	buf[0] = 'X'
	if _, err := DecodeHeader(buf); err == nil {
		t.Fatalf("expected bad magic error")
	}
}

func TestPeekHeaderSize(t *testing.T) {
	h := Header{PageSize: 4096, PageCount: 1, OffsetWidth: 2}
	buf := h.Encode()
	size, err := PeekHeaderSize(buf[:BootstrapSize])
	if err != nil {
		t.Fatalf("PeekHeaderSize: %v", err)
	}
	if size != HeaderSize {
		t.Fatalf("PeekHeaderSize = %d, want %d", size, HeaderSize)
	}
}
