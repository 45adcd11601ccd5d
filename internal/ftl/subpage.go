package ftl

import "encoding/binary"

// subpageHeaderSize is the size, in bytes, of the header prefixed to every
// subpage frame. The spec's prose description ("2-byte packed header") does
// not leave room for its own three fields (length:16 | ecc_enabled:1 |
// reserved:7 = 24 bits), but the worked capacity example resolves it
// unambiguously: a 512-byte subpage with ECC disabled carries 509 bytes of
// payload, 512-509 = 3. The header is laid out byte-aligned rather than as
// a bitfield: a full 16-bit length followed by one flags byte.
const subpageHeaderSize = 3

const subpageFlagECC = 0x01

// subpageHeader is the fixed-size header written at the start of every
// subpage frame, ahead of the optional ECC region and the payload.
type subpageHeader struct {
	DataLength uint16
	ECCEnabled bool
}

// marshalSubpageHeader writes h into the first subpageHeaderSize bytes of
// buf.
func marshalSubpageHeader(h subpageHeader, buf []byte) {
	if len(buf) < subpageHeaderSize {
		panic("ftl: buffer too small for subpage header")
	}
	binary.LittleEndian.PutUint16(buf[0:2], h.DataLength)
	var flags byte
	if h.ECCEnabled {
		flags |= subpageFlagECC
	}
	buf[2] = flags
}

// unmarshalSubpageHeader reads a subpageHeader from the first
// subpageHeaderSize bytes of buf.
func unmarshalSubpageHeader(buf []byte) subpageHeader {
	return subpageHeader{
		DataLength: binary.LittleEndian.Uint16(buf[0:2]),
		ECCEnabled: buf[2]&subpageFlagECC != 0,
	}
}

// isVirgin reports whether buf looks like an erased (never-written) region:
// every byte still at the NAND erased value of 0xFF. A virgin subpage header
// is how write-once flash represents "no data yet" (spec §4.2, ErrNoDataYet).
func isVirgin(buf []byte) bool {
	for _, b := range buf {
		if b != 0xFF {
			return false
		}
	}
	return true
}
