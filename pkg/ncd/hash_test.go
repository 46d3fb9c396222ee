package ncd

import "testing"

func TestHashKeyDeterministic(t *testing.T) {
	a := HashKey(42, []byte("hello"))
	b := HashKey(42, []byte("hello"))
	if a != b {
		t.Fatalf("HashKey not deterministic: %d != %d", a, b)
	}
}

func TestHashKeySeedChangesDigest(t *testing.T) {
	a := HashKey(1, []byte("hello"))
	b := HashKey(2, []byte("hello"))
	if a == b {
		t.Fatalf("HashKey ignored seed")
	}
}

func TestPageIndexBounded(t *testing.T) {
	h := HashKey(0, []byte("some-key"))
	for _, pc := range []uint32{1, 2, 7, 1000} {
		idx := PageIndex(h, pc)
		if idx >= pc {
			t.Fatalf("PageIndex(%d) = %d out of range for pageCount %d", h, idx, pc)
		}
	}
}

func TestProbeStartIndependentOfPageIndex(t *testing.T) {
	// Two keys landing on the same page (mod a small page count) should
	// not always start probing at the same slot; otherwise collisions on
	// a page would degrade to a linked-list scan.
	pageCount := uint32(4)
	capacity := uint32(97)
	starts := map[uint32]bool{}
	for i := 0; i < 100; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		h := HashKey(0, key)
		if PageIndex(h, pageCount) != 0 {
			continue
		}
		starts[probeStart(h, capacity)] = true
	}
	if len(starts) < 2 {
		t.Fatalf("expected multiple distinct probe starts on page 0, got %d", len(starts))
	}
}
