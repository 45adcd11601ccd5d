package ecc

// Hamming256 implements the classic two-dimensional Hamming SEC-DED code
// used for NAND flash pages: every disjoint 256-byte group of the input is
// treated as a 256×8 bit matrix (256 "rows" of one byte each, 8 "columns"
// of one bit position each). Row parity (16 bits, one complementary pair
// per row-address bit) locates the byte containing a single flipped bit;
// column parity (6 bits, one complementary pair per column-address bit)
// locates the bit within that byte. The 22 resulting bits are packed into
// 3 bytes per group, with the 2 unused high bits of the last byte set to 1.
//
// Only whole 256-byte groups are covered — a trailing partial group (when
// the input length is not a multiple of 256) is left unprotected, matching
// the integer-division sizing used throughout the FTL (ecc_size is derived
// from subpage_size/256).
type Hamming256 struct{}

const (
	groupSize           = 256
	parityBytesPerGroup = 3
)

// Size implements Codec.
func (Hamming256) Size(dataLen int) int {
	return (dataLen / groupSize) * parityBytesPerGroup
}

// Compute implements Codec.
func (Hamming256) Compute(data []byte, parityOut []byte) {
	groups := len(data) / groupSize
	for g := 0; g < groups; g++ {
		block := data[g*groupSize : (g+1)*groupSize]
		rp, cp := computeParity(block)
		packParity(rp, cp, parityOut[g*parityBytesPerGroup:(g+1)*parityBytesPerGroup])
	}
}

// Verify implements Codec. If a single group reports a correctable error,
// the corresponding bit of data is flipped in place.
func (Hamming256) Verify(data []byte, parity []byte) VerifyResult {
	groups := len(data) / groupSize
	worst := ResultNone
	for g := 0; g < groups; g++ {
		block := data[g*groupSize : (g+1)*groupSize]
		groupParity := parity[g*parityBytesPerGroup : (g+1)*parityBytesPerGroup]
		res := verifyGroup(block, groupParity)
		if res > worst {
			worst = res
		}
	}
	return worst
}

func parityOfByte(b byte) bool {
	b ^= b >> 4
	b ^= b >> 2
	b ^= b >> 1
	return b&1 != 0
}

// computeParity returns the 16 row-parity bits and 6 column-parity bits
// for one 256-byte group.
func computeParity(block []byte) (rp [16]bool, cp [6]bool) {
	var bitParity [8]bool
	for r, b := range block {
		if parityOfByte(b) {
			for k := 0; k < 8; k++ {
				if r&(1<<uint(k)) != 0 {
					rp[2*k] = !rp[2*k]
				} else {
					rp[2*k+1] = !rp[2*k+1]
				}
			}
		}
		for c := 0; c < 8; c++ {
			if b&(1<<uint(c)) != 0 {
				bitParity[c] = !bitParity[c]
			}
		}
	}
	for c := 0; c < 8; c++ {
		if !bitParity[c] {
			continue
		}
		for k := 0; k < 3; k++ {
			if c&(1<<uint(k)) != 0 {
				cp[2*k] = !cp[2*k]
			} else {
				cp[2*k+1] = !cp[2*k+1]
			}
		}
	}
	return
}

func packParity(rp [16]bool, cp [6]bool, out []byte) {
	var bits [24]bool
	copy(bits[0:16], rp[:])
	copy(bits[16:22], cp[:])
	bits[22] = true
	bits[23] = true
	for i := 0; i < parityBytesPerGroup; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			if bits[i*8+j] {
				b |= 1 << uint(j)
			}
		}
		out[i] = b
	}
}

func unpackParity(in []byte) (rp [16]bool, cp [6]bool) {
	var bits [24]bool
	for i := 0; i < parityBytesPerGroup; i++ {
		b := in[i]
		for j := 0; j < 8; j++ {
			bits[i*8+j] = b&(1<<uint(j)) != 0
		}
	}
	copy(rp[:], bits[0:16])
	copy(cp[:], bits[16:22])
	return
}

// verifyGroup checks one 256-byte group against its 3-byte parity,
// correcting a single bit of block in place if that is all that is wrong.
func verifyGroup(block []byte, parity []byte) VerifyResult {
	actualRP, actualCP := computeParity(block)
	storedRP, storedCP := unpackParity(parity)

	var diffRP [16]bool
	var diffCP [6]bool
	total := 0
	for i := range diffRP {
		diffRP[i] = actualRP[i] != storedRP[i]
		if diffRP[i] {
			total++
		}
	}
	for i := range diffCP {
		diffCP[i] = actualCP[i] != storedCP[i]
		if diffCP[i] {
			total++
		}
	}

	if total == 0 {
		return ResultNone
	}

	singleBitPattern := true
	for k := 0; k < 8 && singleBitPattern; k++ {
		if diffRP[2*k] == diffRP[2*k+1] {
			singleBitPattern = false
		}
	}
	for k := 0; k < 3 && singleBitPattern; k++ {
		if diffCP[2*k] == diffCP[2*k+1] {
			singleBitPattern = false
		}
	}

	if singleBitPattern && total == 11 {
		var row, col int
		for k := 0; k < 8; k++ {
			if diffRP[2*k] {
				row |= 1 << uint(k)
			}
		}
		for k := 0; k < 3; k++ {
			if diffCP[2*k] {
				col |= 1 << uint(k)
			}
		}
		if row < len(block) {
			block[row] ^= 1 << uint(col)
		}
		return ResultSingleBit
	}

	if total == 1 {
		// A lone, unpaired difference means only the parity bytes
		// themselves are inconsistent; the data was not touched.
		return ResultEccError
	}

	return ResultMultipleBits
}
