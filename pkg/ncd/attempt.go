package ncd

import "math"

// packPlan is the fully-placed content of one successful attempt: enough to
// encode every page and the external region without reading the source
// again.
type packPlan struct {
	pageSize    uint32
	pageCount   uint32
	capacity    uint32
	offsetWidth uint8
	seed        uint64

	pages    [][]PageEntry // per-page entries, in slot-assignment order
	external [][]byte      // external values, in the order they were assigned offsets
}

// externalRegionLength returns the total size of the external region this
// plan would write.
func (p *packPlan) externalRegionLength() uint64 {
	var n uint64
	for _, v := range p.external {
		n += uint64(len(v))
	}
	return n
}

// estimatePageCount chooses an initial page count for a store of n records
// whose combined inline bytes are inlineBytes, following the target load
// factor and min-entries-per-page knobs, then grows the count further if
// the resulting per-page share of inlineBytes would not fit within
// heapWiggleRoom of pageSize.
func estimatePageCount(n uint64, inlineBytes uint64, cfg Config, pageSize uint32) uint32 {
	if n == 0 {
		return 1
	}
	pageCount := uint64(math.Ceil(float64(n) / (cfg.TargetLoadFactor * float64(cfg.MinEntriesPerPage))))
	if pageCount < 1 {
		pageCount = 1
	}
	maxHeapPerPage := float64(pageSize) / cfg.HeapWiggleRoom
	for {
		perPage := float64(inlineBytes) / float64(pageCount)
		if perPage <= maxHeapPerPage || pageCount >= n {
			break
		}
		pageCount++
	}
	if pageCount > uint64(math.MaxUint32) {
		pageCount = uint64(math.MaxUint32)
	}
	return uint32(pageCount)
}

// capacityForPageCount derives the uniform per-page slot count that keeps n
// records spread over pageCount pages within the target load factor, raised
// to MinEntriesPerPage when it falls below that and n is at least
// MinEntriesPerPage.
func capacityForPageCount(n uint64, pageCount uint32, cfg Config) uint32 {
	if n == 0 {
		return 1
	}
	capacity := uint64(math.Ceil(float64(n) / (cfg.TargetLoadFactor * float64(pageCount))))
	if n >= cfg.MinEntriesPerPage && capacity < cfg.MinEntriesPerPage {
		capacity = cfg.MinEntriesPerPage
	}
	if capacity < 1 {
		capacity = 1
	}
	return uint32(capacity)
}

// place replays src once, routing every record to a page and a slot within
// that page. It returns a *PageOverflowError (not wrapped) the first time a
// page cannot hold what was routed to it, so Builder.Attempt can grow the
// page size (heap overflow) or the page count (SlotsFull) and retry.
func place(src ValueSource, cfg Config, pageSize, pageCount, capacity uint32, seed uint64) (*packPlan, uint64, error) {
	offsetWidth, err := cfg.offsetWidthFor(pageSize, capacity)
	if err != nil {
		return nil, 0, err
	}

	if err := src.Restart(); err != nil {
		return nil, 0, &SourceError{Err: err}
	}

	plan := &packPlan{
		pageSize:    pageSize,
		pageCount:   pageCount,
		capacity:    capacity,
		offsetWidth: offsetWidth,
		seed:        seed,
		pages:       make([][]PageEntry, pageCount),
	}
	occupied := make([]uint32, pageCount) // slots used per page
	threshold := cfg.ExternalThreshold * float64(pageSize)

	slotTableBytes := int(offsetWidth) + int(capacity)*slotSize(offsetWidth)
	heapUsed := make([]int, pageCount)
	slotOf := make([]map[uint32]bool, pageCount)

	var n uint64
	pagesOffset := int64(HeaderSize) + int64(pageCount)*int64(pageSize)
	var extOffset uint64

	for {
		key, value, ok, err := src.Next()
		if err != nil {
			return nil, 0, &SourceError{Err: err}
		}
		if !ok {
			break
		}
		n++

		h := HashKey(seed, key)
		pageIdx := PageIndex(h, pageCount)

		if slotOf[pageIdx] == nil {
			slotOf[pageIdx] = make(map[uint32]bool, capacity)
		}
		slotIdx, ok := findSlot(slotOf[pageIdx], probeStart(h, capacity), capacity)
		if !ok {
			return nil, 0, &PageOverflowError{Page: pageIdx, Reason: "slot table full", SlotsFull: true}
		}
		slotOf[pageIdx][slotIdx] = true
		occupied[pageIdx]++

		external := float64(len(value)) > threshold
		entry := PageEntry{Slot: slotIdx, Key: append([]byte(nil), key...), External: external}
		if external {
			entry.ExtOff = uint64(pagesOffset) + extOffset
			entry.ExtLen = uint64(len(value))
			plan.external = append(plan.external, append([]byte(nil), value...))
			extOffset += uint64(len(value))
		} else {
			entry.Value = append([]byte(nil), value...)
		}

		size := slotTableBytes + heapUsed[pageIdx] + entry.EncodedSize()
		if size > int(pageSize) {
			return nil, 0, &PageOverflowError{Page: pageIdx, Reason: "inline heap overflow"}
		}
		heapUsed[pageIdx] += entry.EncodedSize()
		plan.pages[pageIdx] = append(plan.pages[pageIdx], entry)
	}

	return plan, n, nil
}

// findSlot performs the same linear probe Lookup uses at read time, but
// against an in-memory occupancy map, to find the first empty slot for a
// key whose probe sequence starts at start.
func findSlot(occupied map[uint32]bool, start, capacity uint32) (uint32, bool) {
	for i := uint32(0); i < capacity; i++ {
		idx := (start + i) % capacity
		if !occupied[idx] {
			return idx, true
		}
	}
	return 0, false
}
