package ftl

import (
	"fmt"
	"log"

	"flashstore/internal/ecc"
	"flashstore/internal/ftlerr"
)

// ReadRaw copies exactly one subpage's worth of bytes from the device into
// buf, with no framing interpretation. It does not touch the partition's
// append cursor (spec §4.1).
func (p *Partition) ReadRaw(buf []byte, subpage uint32) error {
	if err := p.checkSubpage(subpage); err != nil {
		return err
	}
	if len(buf) < p.dev.SubpageSize() {
		return fmt.Errorf("ftl: read buffer smaller than subpage size: %w", ftlerr.ErrOutOfRange)
	}
	page, off := p.subpageToPage(subpage)
	return p.dev.bd.ReadAt(buf, page, off, p.dev.SubpageSize())
}

// WriteRaw programs exactly one subpage's worth of bytes to an externally
// addressed subpage, with no framing. It does not touch the partition's
// append cursor (spec §4.1): raw writes are the caller's responsibility to
// address correctly, typically used to seed fixtures or replay recovery.
func (p *Partition) WriteRaw(buf []byte, subpage uint32) error {
	if err := p.checkSubpage(subpage); err != nil {
		return err
	}
	if len(buf) < p.dev.SubpageSize() {
		return fmt.Errorf("ftl: write buffer smaller than subpage size: %w", ftlerr.ErrOutOfRange)
	}
	page, off := p.subpageToPage(subpage)
	return p.dev.bd.WriteAt(buf, page, off, p.dev.SubpageSize())
}

// Write frames buf[:length] into an ECC-disabled subpage and appends it at
// the partition's current cursor, advancing the cursor on success (spec
// §4.1, write).
func (p *Partition) Write(buf []byte, length int) error {
	return p.writeFramed(buf, length, false)
}

// WriteECC frames buf[:length] into an ECC-protected subpage and appends it
// at the partition's current cursor, advancing the cursor on success (spec
// §4.1, write_ecc).
func (p *Partition) WriteECC(buf []byte, length int) error {
	return p.writeFramed(buf, length, true)
}

func (p *Partition) writeFramed(buf []byte, length int, eccEnabled bool) error {
	if length < 0 || length > p.dev.DataPerSubpage(eccEnabled) {
		return fmt.Errorf("ftl: %d bytes exceeds subpage capacity %d: %w",
			length, p.dev.DataPerSubpage(eccEnabled), ftlerr.ErrTooMuchData)
	}
	if p.NextSubpage >= p.Capacity() {
		return fmt.Errorf("ftl: partition exhausted at subpage %d: %w",
			p.NextSubpage, ftlerr.ErrOutOfMemory)
	}

	scratch := p.dev.scratch
	for i := range scratch {
		scratch[i] = 0
	}
	marshalSubpageHeader(subpageHeader{DataLength: uint16(length), ECCEnabled: eccEnabled}, scratch)

	payloadStart := subpageHeaderSize
	if eccEnabled {
		payloadStart += p.dev.eccSize
	}
	copy(scratch[payloadStart:payloadStart+length], buf[:length])

	if eccEnabled {
		// Hamming parity covers the whole subpage (header, zeroed ECC
		// region, and payload) so a single bit flip in the header's length
		// field is correctable, not just one within the payload (spec §4.1,
		// write_ecc).
		eccRegion := scratch[subpageHeaderSize : subpageHeaderSize+p.dev.eccSize]
		for i := range eccRegion {
			eccRegion[i] = 0
		}
		p.dev.ecc.Compute(scratch, p.dev.eccBuf)
		copy(eccRegion, p.dev.eccBuf)
	}

	if err := p.WriteRaw(scratch, p.NextSubpage); err != nil {
		return err
	}
	p.NextSubpage++
	return nil
}

// Read loads and de-frames the subpage at the given partition-relative
// index, returning the header and copying hdr.DataLength bytes of payload
// into buf (spec §4.1, read).
//
// A virgin (all-0xFF) subpage reports ErrNoDataYet. Single-bit corruption
// in the header's length field or in the payload is corrected in place
// before re-parsing; multi-bit corruption, or a flipped bit in the stored
// ECC bytes themselves (ecc.ResultEccError), reports ErrCorruptFrame.
func (p *Partition) Read(buf []byte, subpage uint32) (subpageHeader, error) {
	scratch := make([]byte, p.dev.SubpageSize())
	if err := p.ReadRaw(scratch, subpage); err != nil {
		return subpageHeader{}, err
	}
	if isVirgin(scratch) {
		return subpageHeader{}, fmt.Errorf("ftl: subpage %d: %w", subpage, ftlerr.ErrNoDataYet)
	}

	hdr := unmarshalSubpageHeader(scratch)
	payloadStart := subpageHeaderSize
	if hdr.ECCEnabled {
		payloadStart += p.dev.eccSize

		eccRegion := make([]byte, p.dev.eccSize)
		copy(eccRegion, scratch[subpageHeaderSize:payloadStart])
		for i := subpageHeaderSize; i < payloadStart; i++ {
			scratch[i] = 0
		}

		result := p.dev.ecc.Verify(scratch, eccRegion)
		switch result {
		case ecc.ResultMultipleBits, ecc.ResultEccError:
			return subpageHeader{}, fmt.Errorf("ftl: subpage %d: %w", subpage, ftlerr.ErrCorruptFrame)
		case ecc.ResultSingleBit:
			log.Printf("ftl: subpage %d: corrected single-bit error", subpage)
			// The correction may have touched the header itself; re-parse.
			hdr = unmarshalSubpageHeader(scratch)
		}
	}

	if int(hdr.DataLength) > len(scratch)-payloadStart {
		return subpageHeader{}, fmt.Errorf("ftl: subpage %d: header length %d exceeds subpage: %w",
			subpage, hdr.DataLength, ftlerr.ErrCorruptFrame)
	}
	if len(buf) < int(hdr.DataLength) {
		return subpageHeader{}, fmt.Errorf("ftl: read buffer shorter than frame payload: %w", ftlerr.ErrOutOfRange)
	}
	copy(buf[:hdr.DataLength], scratch[payloadStart:payloadStart+int(hdr.DataLength)])
	return hdr, nil
}
