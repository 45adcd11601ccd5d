package blockdev

// MemoryDevice is an in-RAM BlockDevice simulator, grounded on the flash
// simulator's byte-addressed backing store but adapted to a plain []byte
// instead of a backing file — the same adaptation the teacher applies to
// go from a disk-oriented interface (backend_disk.go) to an in-memory one
// (backend_memory.go). Newly "erased" bytes read back as 0xFF, matching
// NAND erase semantics.
type MemoryDevice struct {
	geo  Geometry
	data []byte
}

// NewMemoryDevice allocates a simulator of the given geometry, pre-filled
// with 0xFF (the erased state of NAND flash).
func NewMemoryDevice(geo Geometry) *MemoryDevice {
	d := &MemoryDevice{
		geo:  geo,
		data: make([]byte, int(geo.TotalPages)*geo.PageSize),
	}
	for i := range d.data {
		d.data[i] = 0xFF
	}
	return d
}

func (d *MemoryDevice) offset(page uint32, byteOffset int) int {
	return int(page)*d.geo.PageSize + byteOffset
}

// ReadAt implements BlockDevice.
func (d *MemoryDevice) ReadAt(buf []byte, page uint32, byteOffset, byteLength int) error {
	if err := d.geo.checkRange(page, byteOffset, byteLength); err != nil {
		return err
	}
	off := d.offset(page, byteOffset)
	copy(buf, d.data[off:off+byteLength])
	return nil
}

// WriteAt implements BlockDevice.
func (d *MemoryDevice) WriteAt(buf []byte, page uint32, byteOffset, byteLength int) error {
	if err := d.geo.checkRange(page, byteOffset, byteLength); err != nil {
		return err
	}
	off := d.offset(page, byteOffset)
	copy(d.data[off:off+byteLength], buf[:byteLength])
	return nil
}

// Erase implements BlockDevice, resetting the block's bytes to 0xFF.
func (d *MemoryDevice) Erase(block uint32) error {
	if err := d.geo.checkBlock(block); err != nil {
		return err
	}
	blockBytes := int(d.geo.PagesPerBlock) * d.geo.PageSize
	start := int(block) * blockBytes
	for i := start; i < start+blockBytes; i++ {
		d.data[i] = 0xFF
	}
	return nil
}

// BulkErase implements BulkEraser for faster multi-block wipes, e.g. during
// Format.
func (d *MemoryDevice) BulkErase(firstBlock, blockCount uint32) error {
	for b := firstBlock; b < firstBlock+blockCount; b++ {
		if err := d.Erase(b); err != nil {
			return err
		}
	}
	return nil
}

// Geometry returns the simulator's configured geometry.
func (d *MemoryDevice) Geometry() Geometry { return d.geo }
