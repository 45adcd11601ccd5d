package ftl

import (
	"bytes"
	"errors"
	"testing"

	"flashstore/internal/blockdev"
	"flashstore/internal/ecc"
	"flashstore/internal/ftlerr"
)

// newTestDevice builds the geometry used throughout spec scenario 1: 32768
// pages of 512 bytes, 512-byte subpages, 1024 pages/block.
func newTestDevice(t *testing.T) (*Device, blockdev.BlockDevice) {
	t.Helper()
	geo := blockdev.Geometry{TotalPages: 32768, PageSize: 512, PagesPerBlock: 1024}
	bd := blockdev.NewMemoryDevice(geo)
	dev, err := Init(Config{
		TotalPages:    32768,
		PageSize:      512,
		SubpageSize:   512,
		PagesPerBlock: 1024,
	}, bd, ecc.Hamming256{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := dev.Format(); err != nil {
		t.Fatalf("Format: %v", err)
	}
	return dev, bd
}

func TestRawRoundTrip(t *testing.T) {
	dev, _ := newTestDevice(t)
	p := dev.DataPartition

	buf := bytes.Repeat([]byte{0xAB}, dev.SubpageSize())
	if err := p.WriteRaw(buf, 0); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}

	out := make([]byte, dev.SubpageSize())
	if err := p.ReadRaw(out, 0); err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if !bytes.Equal(out, buf) {
		t.Fatalf("raw round trip mismatch")
	}
	if p.NextSubpage != 0 {
		t.Fatalf("raw I/O must not move the append cursor, got %d", p.NextSubpage)
	}
}

func TestFramedWriteSizeCheck(t *testing.T) {
	dev, _ := newTestDevice(t)
	p := dev.DataPartition

	if got := dev.DataPerSubpage(false); got != 509 {
		t.Fatalf("DataPerSubpage(false) = %d, want 509", got)
	}

	buf := bytes.Repeat([]byte{0xAB}, 512)
	if err := p.Write(buf, 512); !errors.Is(err, ftlerr.ErrTooMuchData) {
		t.Fatalf("Write(512) error = %v, want ErrTooMuchData", err)
	}

	if err := p.Write(buf, 509); err != nil {
		t.Fatalf("Write(509): %v", err)
	}

	out := make([]byte, dev.SubpageSize())
	hdr, err := p.Read(out, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if hdr.DataLength != 509 {
		t.Fatalf("hdr.DataLength = %d, want 509", hdr.DataLength)
	}
	if !bytes.Equal(out[:509], buf[:509]) {
		t.Fatalf("payload mismatch")
	}
}

func TestECCCorrectsSingleBitFlip(t *testing.T) {
	dev, _ := newTestDevice(t)
	p := dev.DataPartition

	payload := bytes.Repeat([]byte{0xAB}, 503)
	if err := p.WriteECC(payload, 503); err != nil {
		t.Fatalf("WriteECC: %v", err)
	}

	// Corrupt one payload byte directly on the device, bypassing the FTL,
	// then confirm Read still recovers the original content.
	raw := make([]byte, dev.SubpageSize())
	if err := p.ReadRaw(raw, 0); err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	raw[subpageHeaderSize+dev.ECCSize()+27] ^= 0x01
	if err := p.WriteRaw(raw, 0); err != nil {
		t.Fatalf("WriteRaw corrupted frame: %v", err)
	}

	out := make([]byte, dev.SubpageSize())
	hdr, err := p.Read(out, 0)
	if err != nil {
		t.Fatalf("Read after single-bit flip: %v", err)
	}
	if hdr.DataLength != 503 {
		t.Fatalf("hdr.DataLength = %d, want 503", hdr.DataLength)
	}
	if !bytes.Equal(out[:503], payload) {
		t.Fatalf("single-bit error not corrected")
	}
}

func TestECCReportsMultiBitCorruption(t *testing.T) {
	dev, _ := newTestDevice(t)
	p := dev.DataPartition

	payload := bytes.Repeat([]byte{0xAB}, 503)
	if err := p.WriteECC(payload, 503); err != nil {
		t.Fatalf("WriteECC: %v", err)
	}

	raw := make([]byte, dev.SubpageSize())
	if err := p.ReadRaw(raw, 0); err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	base := subpageHeaderSize + dev.ECCSize()
	raw[base+26] ^= 0x01
	raw[base+27] ^= 0x01
	if err := p.WriteRaw(raw, 0); err != nil {
		t.Fatalf("WriteRaw corrupted frame: %v", err)
	}

	out := make([]byte, dev.SubpageSize())
	if _, err := p.Read(out, 0); !errors.Is(err, ftlerr.ErrCorruptFrame) {
		t.Fatalf("Read after double-bit flip error = %v, want ErrCorruptFrame", err)
	}
}

func TestVirginSubpageReadsAsNoDataYet(t *testing.T) {
	dev, _ := newTestDevice(t)
	out := make([]byte, dev.SubpageSize())
	if _, err := dev.DataPartition.Read(out, 5); !errors.Is(err, ftlerr.ErrNoDataYet) {
		t.Fatalf("Read virgin subpage error = %v, want ErrNoDataYet", err)
	}
}

func TestFormatResetsEverySubpageToVirgin(t *testing.T) {
	dev, _ := newTestDevice(t)
	p := dev.DataPartition

	if err := p.Write(bytes.Repeat([]byte{0x01}, 10), 10); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := dev.Format(); err != nil {
		t.Fatalf("Format: %v", err)
	}

	out := make([]byte, dev.SubpageSize())
	for _, b := range out {
		if b != 0 {
			t.Fatalf("read buffer not reset between checks")
		}
	}
	for s := uint32(0); s < p.Capacity(); s++ {
		if _, err := p.Read(out, s); !errors.Is(err, ftlerr.ErrNoDataYet) {
			t.Fatalf("post-format Read(%d) error = %v, want ErrNoDataYet", s, err)
		}
	}
}

func TestOutOfRangeSubpageNeverTouchesDevice(t *testing.T) {
	dev, _ := newTestDevice(t)
	p := dev.DataPartition
	out := make([]byte, dev.SubpageSize())
	if _, err := p.Read(out, p.Capacity()); !errors.Is(err, ftlerr.ErrOutOfRange) {
		t.Fatalf("out-of-range Read error = %v, want ErrOutOfRange", err)
	}
	if err := p.WriteRaw(out, p.Capacity()); !errors.Is(err, ftlerr.ErrOutOfRange) {
		t.Fatalf("out-of-range WriteRaw error = %v, want ErrOutOfRange", err)
	}
}

func TestEraseWipesSingleBlockWithoutMovingCursor(t *testing.T) {
	dev, _ := newTestDevice(t)
	p := dev.DataPartition

	// PagesPerBlock=1024, SubpageSize==PageSize, so subpage 0 lives in
	// partition-relative block 0.
	if err := p.Write(bytes.Repeat([]byte{0xAB}, 10), 10); err != nil {
		t.Fatalf("Write: %v", err)
	}
	cursorBefore := p.NextSubpage

	if err := p.Erase(0); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if p.NextSubpage != cursorBefore {
		t.Fatalf("Erase moved the append cursor: got %d, want %d", p.NextSubpage, cursorBefore)
	}

	raw := make([]byte, dev.SubpageSize())
	if err := p.ReadRaw(raw, 0); err != nil {
		t.Fatalf("ReadRaw after Erase: %v", err)
	}
	if !isVirgin(raw) {
		t.Fatalf("subpage not virgin after erasing its block")
	}
}

func TestEraseRejectsOutOfRangeBlock(t *testing.T) {
	dev, _ := newTestDevice(t)
	p := dev.DataPartition

	if err := p.Erase(p.blockCount); !errors.Is(err, ftlerr.ErrOutOfRange) {
		t.Fatalf("Erase(blockCount) error = %v, want ErrOutOfRange", err)
	}
}

func TestRecoverRestoresAppendCursor(t *testing.T) {
	dev, bd := newTestDevice(t)
	p := dev.DataPartition
	for i := 0; i < 5; i++ {
		if err := p.Write([]byte{byte(i)}, 1); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	dev2, err := Init(Config{
		TotalPages:    32768,
		PageSize:      512,
		SubpageSize:   512,
		PagesPerBlock: 1024,
	}, bd, ecc.Hamming256{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := dev2.Recover(); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if dev2.DataPartition.NextSubpage != 5 {
		t.Fatalf("recovered NextSubpage = %d, want 5", dev2.DataPartition.NextSubpage)
	}
}
