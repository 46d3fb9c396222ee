package sniff_test

import (
	"strings"
	"testing"

	"github.com/ens-ds23/ncd/internal/sniff"
)

func TestLooksLikeUTF8Plain(t *testing.T) {
	if !sniff.LooksLikeUTF8([]byte("alice 30 engineer\nbob 25 artist\n")) {
		t.Fatalf("expected plain ASCII text to look like UTF-8")
	}
}

func TestLooksLikeUTF8Multibyte(t *testing.T) {
	if !sniff.LooksLikeUTF8([]byte("café au lait, naïve, 日本語")) {
		t.Fatalf("expected valid multi-byte UTF-8 to look like UTF-8")
	}
}

func TestLooksLikeUTF8RejectsInvalidLeadByte(t *testing.T) {
	if sniff.LooksLikeUTF8([]byte{0xC0, 0x80}) {
		t.Fatalf("0xC0 is never valid in UTF-8")
	}
	if sniff.LooksLikeUTF8([]byte{0xFF, 0x00}) {
		t.Fatalf("0xFF is never valid in UTF-8")
	}
}

func TestLooksLikeUTF8RejectsBinary(t *testing.T) {
	if sniff.LooksLikeUTF8([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		t.Fatalf("PNG magic bytes should not look like UTF-8")
	}
}

func TestLooksLikeUTF8TruncatedMidCodepoint(t *testing.T) {
	full := []byte("日本語")
	// Cut off the last continuation byte of the final multi-byte rune,
	// simulating a prefix read that stopped mid-character.
	truncated := full[:len(full)-1]
	if !sniff.LooksLikeUTF8(truncated) {
		t.Fatalf("expected a prefix truncated mid-codepoint to still look like UTF-8")
	}
}

func TestLooksLikeUTF8RejectsMultipleTrailingLeadBytes(t *testing.T) {
	// Two trailing lead bytes in a row are not a single truncated
	// codepoint; only one trailing incomplete sequence may be trimmed.
	if sniff.LooksLikeUTF8([]byte{0x21, 0x21, 0xF3, 0xF1}) {
		t.Fatalf("a run of multiple lead bytes should not look like UTF-8")
	}
}

func TestLooksLikeUTF8RejectsLeadByteWithTooFewContinuations(t *testing.T) {
	if sniff.LooksLikeUTF8([]byte{0xF3, 0x90}) {
		t.Fatalf("a lead byte expecting 3 continuation bytes with only 1 present should not look like UTF-8")
	}
}

func TestLooksLikeUTF8RejectsOverlongContinuationRun(t *testing.T) {
	// Trimming recovers at most 3 trailing continuation bytes; a longer
	// run still leaves an incomplete codepoint behind.
	if sniff.LooksLikeUTF8([]byte{0x21, 0x21, 0xF3, 0x90, 0x90, 0x90, 0x90}) {
		t.Fatalf("an over-long run of continuation bytes should not look like UTF-8")
	}
}

func TestLooksLikeUTF8FromReader(t *testing.T) {
	ok, err := sniff.LooksLikeUTF8FromReader(strings.NewReader("hello, world\n"))
	if err != nil {
		t.Fatalf("LooksLikeUTF8FromReader: %v", err)
	}
	if !ok {
		t.Fatalf("expected plain text to look like UTF-8")
	}
}
