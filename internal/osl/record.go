// Package osl implements the Object Storage Layer: named, fixed-record,
// append-only collections (streams and queues) built on top of one FTL
// data partition, with crash-consistent checkpoints through the FTL's
// metadata anchor.
package osl

import "encoding/binary"

// recordHeaderSize is the size, in bytes, of the header prefixed to every
// record: predecessor.subpage(4) + predecessor.offset(2) + packed
// length/is_first/has_meta(2) = 8 bytes (spec §6).
const recordHeaderSize = 8

// Location addresses a record by the absolute subpage it lives in and its
// byte offset within that subpage's payload.
type Location struct {
	Subpage uint32
	Offset  int16
}

// IsNil reports whether loc is the sentinel "no predecessor"/"empty
// collection" location: subpage 0, offset 0.
func (loc Location) IsNil() bool {
	return loc.Subpage == 0 && loc.Offset == 0
}

// recordHeader is the fixed-size header preceding every record's datum.
type recordHeader struct {
	Predecessor Location
	Length      uint16 // 14 bits used
	IsFirst     bool
	HasMeta     bool
}

func marshalRecordHeader(h recordHeader, buf []byte) {
	if len(buf) < recordHeaderSize {
		panic("osl: buffer too small for record header")
	}
	binary.LittleEndian.PutUint32(buf[0:4], h.Predecessor.Subpage)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(h.Predecessor.Offset))

	packed := h.Length & 0x3FFF
	if h.IsFirst {
		packed |= 1 << 14
	}
	if h.HasMeta {
		packed |= 1 << 15
	}
	binary.LittleEndian.PutUint16(buf[6:8], packed)
}

func unmarshalRecordHeader(buf []byte) recordHeader {
	packed := binary.LittleEndian.Uint16(buf[6:8])
	return recordHeader{
		Predecessor: Location{
			Subpage: binary.LittleEndian.Uint32(buf[0:4]),
			Offset:  int16(binary.LittleEndian.Uint16(buf[4:6])),
		},
		Length:  packed & 0x3FFF,
		IsFirst: packed&(1<<14) != 0,
		HasMeta: packed&(1<<15) != 0,
	}
}
