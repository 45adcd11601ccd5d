package blockdev

import (
	"fmt"
	"os"

	"flashstore/internal/ftlerr"
)

// FileDevice is a file-backed BlockDevice simulator, grounded on the
// original flash simulator (sys/fs/flash_sim/flash_sim.c) and styled after
// the teacher's disk backend (internal/storage/backend_disk.go): explicit
// os.OpenFile with O_RDWR|O_CREATE, ReadAt/WriteAt instead of Seek+Read, and
// an explicit Sync for durability.
type FileDevice struct {
	geo  Geometry
	f    *os.File
	path string
}

// OpenFileDevice opens or creates a file-backed simulator at path. A newly
// created file is pre-filled with 0xFF for every page in the geometry.
func OpenFileDevice(path string, geo Geometry) (*FileDevice, error) {
	isNew := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open block device file: %w", err)
	}

	d := &FileDevice{geo: geo, f: f, path: path}
	if isNew {
		if err := d.formatVirgin(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *FileDevice) formatVirgin() error {
	blank := make([]byte, d.geo.PageSize)
	for i := range blank {
		blank[i] = 0xFF
	}
	for p := uint32(0); p < d.geo.TotalPages; p++ {
		if _, err := d.f.WriteAt(blank, int64(p)*int64(d.geo.PageSize)); err != nil {
			return fmt.Errorf("format block device file: %w", err)
		}
	}
	return d.f.Sync()
}

func (d *FileDevice) absOffset(page uint32, byteOffset int) int64 {
	return int64(page)*int64(d.geo.PageSize) + int64(byteOffset)
}

// ReadAt implements BlockDevice.
func (d *FileDevice) ReadAt(buf []byte, page uint32, byteOffset, byteLength int) error {
	if err := d.geo.checkRange(page, byteOffset, byteLength); err != nil {
		return err
	}
	if _, err := d.f.ReadAt(buf[:byteLength], d.absOffset(page, byteOffset)); err != nil {
		return fmt.Errorf("%w: %v", ftlerr.ErrIO, err)
	}
	return nil
}

// WriteAt implements BlockDevice.
func (d *FileDevice) WriteAt(buf []byte, page uint32, byteOffset, byteLength int) error {
	if err := d.geo.checkRange(page, byteOffset, byteLength); err != nil {
		return err
	}
	if _, err := d.f.WriteAt(buf[:byteLength], d.absOffset(page, byteOffset)); err != nil {
		return fmt.Errorf("%w: %v", ftlerr.ErrIO, err)
	}
	return nil
}

// Erase implements BlockDevice, resetting the block's bytes to 0xFF.
func (d *FileDevice) Erase(block uint32) error {
	if err := d.geo.checkBlock(block); err != nil {
		return err
	}
	blank := make([]byte, int(d.geo.PagesPerBlock)*d.geo.PageSize)
	for i := range blank {
		blank[i] = 0xFF
	}
	off := int64(block) * int64(len(blank))
	if _, err := d.f.WriteAt(blank, off); err != nil {
		return fmt.Errorf("%w: %v", ftlerr.ErrIO, err)
	}
	return nil
}

// Sync flushes the backing file to stable storage.
func (d *FileDevice) Sync() error {
	return d.f.Sync()
}

// Close closes the backing file.
func (d *FileDevice) Close() error {
	return d.f.Close()
}

// Path returns the backing file path.
func (d *FileDevice) Path() string { return d.path }

// Geometry returns the simulator's configured geometry.
func (d *FileDevice) Geometry() Geometry { return d.geo }
