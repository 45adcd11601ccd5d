package ftl

import (
	"fmt"
	"log"

	"flashstore/internal/blockdev"
	"flashstore/internal/ftlerr"
)

// Partition is a contiguous run of erase blocks addressed by the FTL as a
// flat sequence of subpages (spec §3's Partition type). Partitions are
// append-only: NextSubpage is the next free slot, and data below it can
// only be reclaimed by erasing (and thus invalidating) the whole partition.
type Partition struct {
	dev *Device

	firstBlock uint32
	blockCount uint32

	// NextSubpage is the append cursor: the next subpage index that has
	// never been written since the partition's last Format/Erase.
	NextSubpage uint32

	// ErasedUntil is the subpage index up to which the underlying blocks
	// are known to be erased. Construction and Format set it to
	// Capacity(); the single-block Erase leaves it unchanged. A
	// partially-erased partition (ErasedUntil < Capacity()) can only be
	// discovered by an operator tracking erase state out of band, since
	// flash offers no "is this erased" query of its own.
	ErasedUntil uint32
}

func newPartition(dev *Device, firstBlock, blockCount uint32) *Partition {
	p := &Partition{dev: dev, firstBlock: firstBlock, blockCount: blockCount}
	p.ErasedUntil = p.Capacity()
	return p
}

// Capacity returns the number of subpages the partition spans.
func (p *Partition) Capacity() uint32 {
	subpagesPerBlock := p.dev.PagesPerBlock() * uint32(p.dev.SubpagesPerPage())
	return p.blockCount * subpagesPerBlock
}

// subpageToPage converts a partition-relative subpage index into an
// absolute device page index and a byte offset within that page.
func (p *Partition) subpageToPage(subpage uint32) (page uint32, byteOffset int) {
	perPage := uint32(p.dev.SubpagesPerPage())
	absoluteSubpage := p.firstBlock*p.dev.PagesPerBlock()*perPage + subpage
	page = absoluteSubpage / perPage
	byteOffset = int(absoluteSubpage%perPage) * p.dev.SubpageSize()
	return
}

// checkSubpage validates a partition-relative subpage index.
func (p *Partition) checkSubpage(subpage uint32) error {
	if subpage >= p.Capacity() {
		return fmt.Errorf("ftl: subpage %d out of range (capacity %d): %w",
			subpage, p.Capacity(), ftlerr.ErrOutOfRange)
	}
	return nil
}

// Erase erases the single partition-relative block, without touching the
// partition's append cursor (spec §4.1, erase). Unlike Format, this does not
// assume the whole partition should be reclaimed: it is the primitive a
// caller uses to reclaim individual blocks out of band, e.g. as part of a
// wear-levelling or garbage-collection policy layered above the FTL.
func (p *Partition) Erase(block uint32) error {
	if block >= p.blockCount {
		return fmt.Errorf("ftl: block %d out of range (partition has %d blocks): %w",
			block, p.blockCount, ftlerr.ErrOutOfRange)
	}
	return p.dev.bd.Erase(p.firstBlock + block)
}

// Format erases every block in the partition and resets its cursors,
// mirroring the original's full-partition erase at ftl_init / ftl_format.
func (p *Partition) Format() error {
	if be, ok := p.dev.bd.(blockdev.BulkEraser); ok {
		if err := be.BulkErase(p.firstBlock, p.blockCount); err != nil {
			return err
		}
	} else {
		for b := p.firstBlock; b < p.firstBlock+p.blockCount; b++ {
			if err := p.dev.bd.Erase(b); err != nil {
				return err
			}
		}
	}
	p.NextSubpage = 0
	p.ErasedUntil = p.Capacity()
	return nil
}

// Recover restores the in-memory append cursor after a restart by scanning
// forward from subpage 0 for the first subpage that still reads back as
// virgin (0xFF). This supplements the original's single-page index lookup
// (which only ever checked one candidate page and asserted on the rest,
// sys/storage/ftl/ftl.c's _find_first_index_page) with a full linear scan,
// which is the only way to recover an arbitrary-length append log without
// an out-of-band cursor.
func (p *Partition) Recover() error {
	var n uint32
	for n < p.Capacity() {
		page, off := p.subpageToPage(n)
		buf := make([]byte, p.dev.SubpageSize())
		if err := p.dev.bd.ReadAt(buf, page, off, len(buf)); err != nil {
			return err
		}
		if isVirgin(buf) {
			break
		}
		n++
	}
	if n > p.ErasedUntil {
		log.Printf("ftl: partition at block %d refusing to recover: cursor %d exceeds erased watermark %d",
			p.firstBlock, n, p.ErasedUntil)
		return fmt.Errorf(
			"ftl: recovered cursor %d exceeds erased watermark %d, partition needs re-erase: %w",
			n, p.ErasedUntil, ftlerr.ErrNotInitialised)
	}
	p.NextSubpage = n
	return nil
}

// MarkErasedUntil records that blocks up to (but not including) subpage
// watermark are known-erased, e.g. after an out-of-band partial erase. It
// is a bookkeeping hint only; Recover consults it to refuse resuming past a
// watermark that does not cover the recovered cursor (spec §9, open
// question on partially-erased partition recovery).
func (p *Partition) MarkErasedUntil(watermark uint32) {
	p.ErasedUntil = watermark
}
