// Package binary implements the binary reads and writes the pack format
// needs: big-endian fixed-width integers, raw hashes and the git VLQ
// used by ofs-delta base displacements.
package binary

import (
	"encoding/binary"
	"io"

	"github.com/go-pack/packcheck/plumbing"
)

// ReadVariableWidthInt reads and returns an int in Git VLQ special format:
//
// Ordinary VLQ has some redundancies, example:  the number 358 can be
// encoded as the 2-octet VLQ 0x8166 or the 3-octet VLQ 0x808166 or the
// 4-octet VLQ 0x80808166 and so forth.
//
// To avoid these redundancies, the VLQ format used in Git removes this
// prepending redundancy and extends the representable range of shorter
// VLQs by adding an offset to VLQs of 2 or more octets in such a way
// that the lowest possible value for such an (N+1)-octet VLQ becomes
// exactly one more than the maximum possible value for an N-octet VLQ.
//
// In particular, to represent the integer f, we determine how many octets
// g are required. We then generate a g-octet VLQ where the most
// significant 7-bit group equals f's most significant 7-bit group minus 1.
//
// This MSB-encoding is used by ofs-delta base references.
func ReadVariableWidthInt(r io.ByteReader) (int64, error) {
	var c byte
	var err error

	c, err = r.ReadByte()
	if err != nil {
		return 0, err
	}

	var v = int64(c & maskLength)
	for c&maskContinue > 0 {
		v++
		if c, err = r.ReadByte(); err != nil {
			return 0, err
		}

		v = (v << lengthBits) + int64(c&maskLength)
	}

	return v, nil
}

const (
	maskContinue = uint8(128) // 1000 0000
	maskLength   = uint8(127) // 0111 1111
	lengthBits   = uint8(7)   // subsequent bytes has 7 bits to store the length
)

// ReadUint32 reads 4 bytes and returns them as a BigEndian uint32.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}

	return v, nil
}

// ReadHash reads a plumbing.Hash from r.
func ReadHash(r io.Reader) (plumbing.Hash, error) {
	var h plumbing.Hash
	if err := binary.Read(r, binary.BigEndian, h[:]); err != nil {
		return plumbing.ZeroHash, err
	}

	return h, nil
}
