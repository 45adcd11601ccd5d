package blockdev

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"flashstore/internal/ftlerr"
)

func testGeometry() Geometry {
	return Geometry{TotalPages: 64, PageSize: 512, PagesPerBlock: 8}
}

func TestMemoryDevice_ErasedBytesAreAllOnes(t *testing.T) {
	d := NewMemoryDevice(testGeometry())
	buf := make([]byte, 512)
	if err := d.ReadAt(buf, 0, 0, 512); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range buf {
		if b != 0xFF {
			t.Fatalf("byte %d = %#x, want 0xFF", i, b)
		}
	}
}

func TestMemoryDevice_WriteReadRoundTrip(t *testing.T) {
	d := NewMemoryDevice(testGeometry())
	want := bytes.Repeat([]byte{0x42}, 100)
	if err := d.WriteAt(want, 3, 10, len(want)); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got := make([]byte, len(want))
	if err := d.ReadAt(got, 3, 10, len(got)); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch")
	}
}

func TestMemoryDevice_EraseResetsBlock(t *testing.T) {
	d := NewMemoryDevice(testGeometry())
	full := bytes.Repeat([]byte{0x01}, 512)
	if err := d.WriteAt(full, 0, 0, 512); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := d.Erase(0); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	buf := make([]byte, 512)
	if err := d.ReadAt(buf, 0, 0, 512); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range buf {
		if b != 0xFF {
			t.Fatalf("byte %d after erase = %#x, want 0xFF", i, b)
		}
	}
}

func TestMemoryDevice_OutOfRange(t *testing.T) {
	d := NewMemoryDevice(testGeometry())
	buf := make([]byte, 512)
	if err := d.ReadAt(buf, 64, 0, 512); !errors.Is(err, ftlerr.ErrOutOfRange) {
		t.Fatalf("ReadAt page 64 error = %v, want ErrOutOfRange", err)
	}
	if err := d.Erase(8); !errors.Is(err, ftlerr.ErrOutOfRange) {
		t.Fatalf("Erase block 8 error = %v, want ErrOutOfRange", err)
	}
}

func TestFileDevice_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flash.img")
	geo := testGeometry()

	d, err := OpenFileDevice(path, geo)
	if err != nil {
		t.Fatalf("OpenFileDevice: %v", err)
	}
	want := bytes.Repeat([]byte{0x7E}, 512)
	if err := d.WriteAt(want, 2, 0, 512); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := OpenFileDevice(path, geo)
	if err != nil {
		t.Fatalf("reopen OpenFileDevice: %v", err)
	}
	defer d2.Close()
	got := make([]byte, 512)
	if err := d2.ReadAt(got, 2, 0, 512); err != nil {
		t.Fatalf("ReadAt after reopen: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("data did not survive reopen")
	}
}

func TestFileDevice_NewFileIsVirgin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flash.img")
	d, err := OpenFileDevice(path, testGeometry())
	if err != nil {
		t.Fatalf("OpenFileDevice: %v", err)
	}
	defer d.Close()

	buf := make([]byte, 512)
	if err := d.ReadAt(buf, 5, 0, 512); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range buf {
		if b != 0xFF {
			t.Fatalf("byte %d = %#x, want 0xFF", i, b)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	wantSize := int64(testGeometry().TotalPages) * int64(testGeometry().PageSize)
	if info.Size() != wantSize {
		t.Fatalf("file size = %d, want %d", info.Size(), wantSize)
	}
}
