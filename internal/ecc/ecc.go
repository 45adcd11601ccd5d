// Package ecc defines the ECC capability interface the FTL consumes (spec
// §6) and a concrete Hamming-256 codec satisfying it.
package ecc

// VerifyResult classifies the outcome of verifying a data block against
// its parity.
type VerifyResult int

const (
	// ResultNone means the data matched its parity exactly.
	ResultNone VerifyResult = iota
	// ResultSingleBit means exactly one bit was wrong and has been
	// corrected in place.
	ResultSingleBit
	// ResultMultipleBits means more errors were present than the code
	// can correct in at least one 256-byte group; that group was not
	// modified, though a single-bit error in another group may have been
	// corrected in place.
	ResultMultipleBits
	// ResultEccError means the parity itself appears corrupt (an
	// internal inconsistency distinct from a data bit flip).
	ResultEccError
)

func (r VerifyResult) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultSingleBit:
		return "single-bit-corrected"
	case ResultMultipleBits:
		return "multiple-bits"
	case ResultEccError:
		return "ecc-error"
	default:
		return "unknown"
	}
}

// Codec is the two-operation ECC trait consumed by the FTL (spec §6).
type Codec interface {
	// Size returns the number of parity bytes Compute produces for dataLen
	// input bytes.
	Size(dataLen int) int

	// Compute writes Size(len(data)) parity bytes to parityOut.
	Compute(data []byte, parityOut []byte)

	// Verify checks data against parity, correcting a single bit in data
	// in place if that is all that is wrong.
	Verify(data []byte, parity []byte) VerifyResult
}
