// Package blockdev defines the narrow capability interface the FTL consumes
// to talk to a raw NAND-like device, plus two reference collaborators for
// host testing: an in-memory simulator and a file-backed simulator.
//
// Implementations are not safe for concurrent use — exactly one FTL device
// drives one BlockDevice, synchronously, from one goroutine.
package blockdev

import "flashstore/internal/ftlerr"

// BlockDevice is the four-operation trait consumed by the FTL (spec §6).
// All offsets and lengths are in bytes; page and block indices are
// absolute (not partition-relative).
type BlockDevice interface {
	// ReadAt reads byteLength bytes from the given page, starting at
	// byteOffset within that page, into buf.
	ReadAt(buf []byte, page uint32, byteOffset, byteLength int) error

	// WriteAt programs byteLength bytes at byteOffset within the given
	// page. The hardware contract is write-once-per-erase: callers never
	// rewrite a byte range without an intervening Erase.
	WriteAt(buf []byte, page uint32, byteOffset, byteLength int) error

	// Erase erases the given absolute block, resetting every byte in it
	// to 0xFF.
	Erase(block uint32) error
}

// BulkEraser is an optional capability. A BlockDevice that does not
// implement it causes the FTL to fall back to erasing block-by-block.
type BulkEraser interface {
	BulkErase(firstBlock, blockCount uint32) error
}

// Geometry describes the fixed physical layout a BlockDevice exposes. Both
// reference simulators carry one; a hardware driver would derive it from
// the chip's datasheet.
type Geometry struct {
	TotalPages    uint32
	PageSize      int
	PagesPerBlock uint32
}

// BlockCount returns the number of erase blocks the geometry describes.
func (g Geometry) BlockCount() uint32 {
	return g.TotalPages / g.PagesPerBlock
}

func (g Geometry) checkRange(page uint32, byteOffset, byteLength int) error {
	if page >= g.TotalPages {
		return ftlerr.ErrOutOfRange
	}
	if byteOffset < 0 || byteLength < 0 || byteOffset+byteLength > g.PageSize {
		return ftlerr.ErrOutOfRange
	}
	return nil
}

func (g Geometry) checkBlock(block uint32) error {
	if block >= g.BlockCount() {
		return ftlerr.ErrOutOfRange
	}
	return nil
}
