// Package ftl implements the Flash Translation Layer: partitioned,
// ECC-framed, subpage-addressed access on top of a raw block device.
//
// Device and Partition are not safe for concurrent use. Every operation
// is a synchronous call that completes before returning; there are no
// suspension points (spec §5).
package ftl

import (
	"fmt"

	"github.com/google/uuid"

	"flashstore/internal/blockdev"
	"flashstore/internal/ecc"
	"flashstore/internal/ftlerr"
)

// IndexReserve is the default size (in bytes) reserved for the metadata
// index partition when partitions are auto-derived (spec §6,
// FTL_INDEX_RESERVE).
const IndexReserve = 4 * 1024 * 1024

// Config describes the fixed geometry of a device, mirroring spec §3's
// Device data model. It is typically loaded via internal/config from YAML.
type Config struct {
	TotalPages    uint32
	PageSize      int
	SubpageSize   int
	PagesPerBlock uint32

	// IndexReserveBytes overrides IndexReserve when non-zero.
	IndexReserveBytes int64
}

// Device is the immutable-geometry root of the FTL: it owns the block
// device and ECC codec collaborators, the shared scratch buffers, and the
// index/data partition pair derived at Init time.
type Device struct {
	InstanceID uuid.UUID

	cfg Config
	bd  blockdev.BlockDevice
	ecc ecc.Codec

	eccSize int
	scratch []byte // one subpage, used to frame writes
	eccBuf  []byte // scratch for ECC parity bytes

	IndexPartition *Partition
	DataPartition  *Partition
}

// Init creates a Device over bd using the given geometry and ECC codec,
// and derives the index (metadata anchor) and data partitions per spec
// §4.1 (init(device)): the index partition is sized from IndexReserve, the
// data partition spans the remainder of the device.
func Init(cfg Config, bd blockdev.BlockDevice, codec ecc.Codec) (*Device, error) {
	if cfg.SubpageSize <= 0 || cfg.PageSize <= 0 || cfg.SubpageSize > cfg.PageSize ||
		cfg.PageSize%cfg.SubpageSize != 0 {
		return nil, fmt.Errorf("ftl: invalid subpage/page size (%d/%d): %w",
			cfg.SubpageSize, cfg.PageSize, ftlerr.ErrOutOfRange)
	}
	if cfg.PagesPerBlock == 0 {
		return nil, fmt.Errorf("ftl: pages per block must be > 0: %w", ftlerr.ErrOutOfRange)
	}

	d := &Device{
		InstanceID: uuid.New(),
		cfg:        cfg,
		bd:         bd,
		ecc:        codec,
	}
	d.eccSize = codec.Size(cfg.SubpageSize)
	d.scratch = make([]byte, cfg.SubpageSize)
	d.eccBuf = make([]byte, d.eccSize)

	indexReserve := uint64(cfg.IndexReserveBytes)
	if indexReserve == 0 {
		indexReserve = IndexReserve
	}

	capacity := uint64(cfg.TotalPages) * uint64(cfg.PageSize)
	if capacity < indexReserve {
		return nil, fmt.Errorf("ftl: device capacity %d below index reserve %d: %w",
			capacity, indexReserve, ftlerr.ErrOutOfMemory)
	}

	blockSize := uint64(cfg.PagesPerBlock) * uint64(cfg.PageSize)
	indexBlocks := uint32(indexReserve / blockSize)
	if indexReserve%blockSize != 0 {
		indexBlocks++
	}

	totalBlocks := cfg.TotalPages / cfg.PagesPerBlock
	if indexBlocks >= totalBlocks {
		return nil, fmt.Errorf("ftl: index reserve leaves no room for data partition: %w",
			ftlerr.ErrOutOfMemory)
	}

	d.IndexPartition = newPartition(d, 0, indexBlocks)
	d.DataPartition = newPartition(d, indexBlocks, totalBlocks-indexBlocks)

	return d, nil
}

// SubpagesPerPage returns how many subpages make up one page.
func (d *Device) SubpagesPerPage() int { return d.cfg.PageSize / d.cfg.SubpageSize }

// SubpageSize returns the configured subpage size in bytes.
func (d *Device) SubpageSize() int { return d.cfg.SubpageSize }

// PageSize returns the configured page size in bytes.
func (d *Device) PageSize() int { return d.cfg.PageSize }

// PagesPerBlock returns the number of pages per erase block.
func (d *Device) PagesPerBlock() uint32 { return d.cfg.PagesPerBlock }

// TotalBlocks returns the total number of erase blocks on the device.
func (d *Device) TotalBlocks() uint32 { return d.cfg.TotalPages / d.cfg.PagesPerBlock }

// ECCSize returns the number of ECC parity bytes covering one subpage.
func (d *Device) ECCSize() int { return d.eccSize }

// Format erases both partitions and resets their cursors, discarding every
// collection and metadata blob ever written. Used for a fresh device or a
// deliberate wipe; a device being restarted against existing flash contents
// should call Recover instead.
func (d *Device) Format() error {
	if err := d.IndexPartition.Format(); err != nil {
		return err
	}
	return d.DataPartition.Format()
}

// Recover restores both partitions' append cursors by scanning their flash
// contents, for a device being reopened after a restart rather than
// formatted fresh (spec §4.2.6, init).
func (d *Device) Recover() error {
	if err := d.IndexPartition.Recover(); err != nil {
		return err
	}
	return d.DataPartition.Recover()
}

// DataPerSubpage returns the usable payload capacity of a subpage frame,
// spec §4.1: subpage_size - header(3) - (eccEnabled ? ecc_size : 0).
func (d *Device) DataPerSubpage(eccEnabled bool) int {
	n := d.cfg.SubpageSize - subpageHeaderSize
	if eccEnabled {
		n -= d.eccSize
	}
	return n
}
