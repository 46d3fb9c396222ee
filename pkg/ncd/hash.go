package ncd

import "github.com/cespare/xxhash/v2"

// HashKey computes the seedable 64-bit digest used to place a key: first to
// choose its page (h mod page_count), then - independently - to choose its
// starting probe slot within that page. The seed is chosen once by the
// builder and recorded in the header, so a lookup only ever needs the bytes
// already on disk to reproduce it.
func HashKey(seed uint64, key []byte) uint64 {
	d := xxhash.NewWithSeed(seed)
	d.Write(key) // Digest.Write never fails
	return d.Sum64()
}

// PageIndex chooses the page a key with digest h belongs to.
func PageIndex(h uint64, pageCount uint32) uint32 {
	return uint32(h % uint64(pageCount))
}

// probeStart chooses the first slot to try within a page of the given
// capacity. It remixes h rather than reusing it directly, so that a key's
// page choice and its in-page placement are independent: otherwise every
// key hashing to the same page would also start probing at the same slot,
// which would turn the open-addressing scheme into a linked list on any
// page with more than a handful of collisions.
func probeStart(h uint64, capacity uint32) uint32 {
	return uint32(mix64(h) % uint64(capacity))
}

// mix64 is MurmurHash3's fmix64 finalizer, a small, well-known bit mixer used
// here purely to decorrelate the page and in-page hashes derived from a
// single xxHash digest.
func mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
