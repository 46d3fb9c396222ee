package ncd

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Builder packs a ValueSource into an NCD store at a target path, following
// the classic size-then-pack-then-grow loop: INIT (not yet counted) ->
// SIZED (record count and a page-size guess known) -> PACKED (every record
// placed without overflow) -> DONE (written to disk). A page overflow
// during packing moves the state back to SIZED (GROW) instead of failing
// the build outright: with a larger page size after an inline heap
// overflow, or with more pages after a full slot table.
//
// Call DescribeAttempt, then Attempt, then Result in a loop until Attempt
// reports success:
//
//	b := ncd.NewBuilder(cfg, source, path)
//	for {
//	    fmt.Println(b.DescribeAttempt())
//	    done, err := b.Attempt()
//	    fmt.Println(b.Result())
//	    if done || err != nil { break }
//	}
type Builder struct {
	cfg    Config
	source ValueSource
	path   string
	seed   uint64

	counted     bool
	n           uint64
	inlineBytes uint64

	pageSize        uint32
	pageCountFactor float64
	result          string
}

// NewBuilder creates a Builder that will write to path once packing
// succeeds.
func NewBuilder(cfg Config, source ValueSource, path string) *Builder {
	return &Builder{
		cfg:             cfg,
		source:          source,
		path:            path,
		seed:            cfg.seed(),
		pageSize:        cfg.TargetPageSize,
		pageCountFactor: 1,
		result:          "not yet attempted",
	}
}

// DescribeAttempt describes the page size and (once known) record count the
// next call to Attempt will try.
func (b *Builder) DescribeAttempt() string {
	if !b.counted {
		return fmt.Sprintf("page_size=%s (counting records)", humanize.IBytes(uint64(b.pageSize)))
	}
	return fmt.Sprintf("page_size=%s records=%d target_load_factor=%.2f",
		humanize.IBytes(uint64(b.pageSize)), b.n, b.cfg.TargetLoadFactor)
}

// Result describes the outcome of the most recent call to Attempt.
func (b *Builder) Result() string { return b.result }

// countPass replays the source once to learn the record count, a rough
// estimate of inline bytes (using the starting page size's external
// threshold - later attempts at a larger page size may reclassify some
// values from external to inline, which this estimate does not count), and
// whether the source repeats any key.
func (b *Builder) countPass() error {
	if err := b.source.Restart(); err != nil {
		return &SourceError{Err: err}
	}
	threshold := b.cfg.ExternalThreshold * float64(b.cfg.TargetPageSize)
	seen := make(map[string]struct{})
	var n, inlineBytes uint64
	for {
		key, value, ok, err := b.source.Next()
		if err != nil {
			return &SourceError{Err: err}
		}
		if !ok {
			break
		}
		ks := string(key)
		if _, dup := seen[ks]; dup {
			return &DuplicateKeyError{Key: append([]byte(nil), key...)}
		}
		seen[ks] = struct{}{}
		n++
		if float64(len(value)) <= threshold {
			inlineBytes += uint64(len(key)) + uint64(len(value))
		} else {
			inlineBytes += uint64(len(key))
		}
	}
	b.n = n
	b.inlineBytes = inlineBytes
	b.counted = true
	return nil
}

// Attempt runs one iteration of the pack loop. It returns true once the
// store has been fully packed and written to disk. A false return with a
// nil error means a page overflowed and the page size (heap overflow) or
// the page count (full slot table) was grown; call Attempt again to retry.
// A non-nil error is fatal.
func (b *Builder) Attempt() (bool, error) {
	if !b.counted {
		if err := b.countPass(); err != nil {
			b.result = err.Error()
			return false, err
		}
	}

	pageCount := estimatePageCount(b.n, b.inlineBytes, b.cfg, b.pageSize)
	if b.pageCountFactor > 1 {
		pageCount = uint32(math.Ceil(float64(pageCount) * b.pageCountFactor))
		if pageCount < 1 {
			pageCount = 1
		}
	}
	capacity := capacityForPageCount(b.n, pageCount, b.cfg)

	plan, n, err := place(b.source, b.cfg, b.pageSize, pageCount, capacity, b.seed)
	if err != nil {
		var overflow *PageOverflowError
		if errors.As(err, &overflow) {
			if overflow.SlotsFull {
				return b.growPageCount(overflow)
			}
			grown := uint32(float64(b.pageSize) * b.cfg.RebuildPageFactor)
			if grown <= b.pageSize {
				grown = b.pageSize + 1
			}
			if grown > b.cfg.MaxPageSize {
				b.result = fmt.Sprintf("fatal: %v (page size bound %s reached)", overflow, humanize.IBytes(uint64(b.cfg.MaxPageSize)))
				return false, overflow
			}
			b.result = fmt.Sprintf("%v; growing page size %s -> %s", overflow,
				humanize.IBytes(uint64(b.pageSize)), humanize.IBytes(uint64(grown)))
			b.pageSize = grown
			return false, nil
		}
		b.result = err.Error()
		return false, err
	}
	if n != b.n {
		err := ErrSourceNotStable
		b.result = err.Error()
		return false, err
	}

	if err := b.write(plan); err != nil {
		b.result = err.Error()
		return false, err
	}
	b.result = fmt.Sprintf("wrote %s: %d records across %d pages (%s external)",
		b.path, b.n, plan.pageCount, humanize.IBytes(plan.externalRegionLength()))
	return true, nil
}

// growPageCount recovers from a full slot table: too many keys hashed onto
// one page, which a bigger page_size alone would not fix, since page_size
// does not change which page a key hashes to. Instead it scales up the
// estimated page count by RebuildPageFactor, compounding on repeat
// overflows, so the next attempt spreads keys over a different number of
// pages. capacityForPageCount re-derives the per-page capacity from the new
// count, so a page's capacity does not grow with it. Growth stops when
// subdividing further would need more pages than there are records - at
// which point no amount of page-count growth can help and the overflow is
// reported as fatal.
func (b *Builder) growPageCount(overflow *PageOverflowError) (bool, error) {
	next := b.pageCountFactor * b.cfg.RebuildPageFactor
	if next <= b.pageCountFactor {
		next = b.pageCountFactor + 0.1
	}
	base := estimatePageCount(b.n, b.inlineBytes, b.cfg, b.pageSize)
	prospective := uint64(math.Ceil(float64(base) * next))
	if prospective < 1 {
		prospective = 1
	}
	if b.n > 0 && prospective > b.n {
		b.result = fmt.Sprintf("fatal: %v (page count cannot usefully exceed record count %d)", overflow, b.n)
		return false, overflow
	}
	b.result = fmt.Sprintf("%v; growing page count factor %.2f -> %.2f (~%d pages)",
		overflow, b.pageCountFactor, next, prospective)
	b.pageCountFactor = next
	return false, nil
}

// write encodes every page and the external region, then atomically
// installs the result at b.path via a temp file in the same directory
// followed by a rename.
func (b *Builder) write(plan *packPlan) (err error) {
	dir := filepath.Dir(b.path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(b.path), uuid.NewString()))

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return &IOError{Op: "create temp file", Err: err}
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	hdr := Header{
		PageSize:             plan.pageSize,
		PageCount:            plan.pageCount,
		HashSeed:             plan.seed,
		OffsetWidth:          plan.offsetWidth,
		ExternalRegionOffset: uint64(HeaderSize) + uint64(plan.pageCount)*uint64(plan.pageSize),
		ExternalRegionLength: plan.externalRegionLength(),
	}
	if _, err = f.Write(hdr.Encode()); err != nil {
		return &IOError{Op: "write header", Err: err}
	}

	for i := uint32(0); i < plan.pageCount; i++ {
		page, encErr := EncodePage(plan.pageSize, plan.offsetWidth, plan.capacity, i, plan.pages[i])
		if encErr != nil {
			return encErr
		}
		if _, err = f.Write(page); err != nil {
			return &IOError{Op: "write page", Err: err}
		}
	}

	for _, v := range plan.external {
		if _, err = f.Write(v); err != nil {
			return &IOError{Op: "write external region", Err: err}
		}
	}

	if err = f.Sync(); err != nil {
		return &IOError{Op: "sync", Err: err}
	}
	if err = f.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	if err = os.Rename(tmpPath, b.path); err != nil {
		return &IOError{Op: "rename", Err: err}
	}
	return nil
}
