// Package packtest builds small packfiles in memory, so tests can exercise
// scanning and verification against packs with known contents.
package packtest

import (
	"bytes"
	"compress/zlib"

	"github.com/go-pack/packcheck/plumbing"
	"github.com/go-pack/packcheck/plumbing/hash"
	"github.com/go-pack/packcheck/utils/binary"
)

// Builder assembles a version 2 packfile entry by entry. The entry count
// is fixed upfront, as it is part of the pack header; Build appends the
// trailer checksum and returns the pack bytes.
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder returns a Builder for a pack holding objects entries.
func NewBuilder(objects uint32) *Builder {
	b := &Builder{}
	b.buf.WriteString("PACK")
	binary.WriteUint32(&b.buf, 2)
	binary.WriteUint32(&b.buf, objects)
	return b
}

// Object appends a non-delta entry with the given type and content, and
// returns its offset within the pack.
func (b *Builder) Object(t plumbing.ObjectType, content []byte) int64 {
	offset := int64(b.buf.Len())
	b.entryHead(t, int64(len(content)))
	b.deflate(content)
	return offset
}

// OFSDelta appends an ofs-delta entry whose base is the entry starting at
// baseOffset, and returns its offset within the pack.
func (b *Builder) OFSDelta(baseOffset int64, delta []byte) int64 {
	offset := int64(b.buf.Len())
	b.entryHead(plumbing.OFSDeltaObject, int64(len(delta)))
	binary.WriteVariableWidthInt(&b.buf, offset-baseOffset)
	b.deflate(delta)
	return offset
}

// REFDelta appends a ref-delta entry whose base is identified by ref, and
// returns its offset within the pack.
func (b *Builder) REFDelta(ref plumbing.Hash, delta []byte) int64 {
	offset := int64(b.buf.Len())
	b.entryHead(plumbing.REFDeltaObject, int64(len(delta)))
	b.buf.Write(ref[:])
	b.deflate(delta)
	return offset
}

// Raw appends arbitrary bytes, for tests that need malformed entries.
func (b *Builder) Raw(p []byte) int64 {
	offset := int64(b.buf.Len())
	b.buf.Write(p)
	return offset
}

// Build appends the pack checksum and returns the complete pack.
func (b *Builder) Build() []byte {
	h := hash.New(hash.CryptoType)
	h.Write(b.buf.Bytes())
	return append(append([]byte{}, b.buf.Bytes()...), h.Sum(nil)...)
}

// BuildBroken returns the pack bytes with a deliberately wrong trailer
// checksum.
func (b *Builder) BuildBroken() []byte {
	out := b.Build()
	out[len(out)-1] ^= 0xff
	return out
}

func (b *Builder) entryHead(t plumbing.ObjectType, size int64) {
	c := (int64(t) << 4) | (size & 0x0f)
	size >>= 4
	for size != 0 {
		b.buf.WriteByte(byte(c | 0x80))
		c = size & 0x7f
		size >>= 7
	}
	b.buf.WriteByte(byte(c))
}

func (b *Builder) deflate(content []byte) {
	zw := zlib.NewWriter(&b.buf)
	zw.Write(content)
	zw.Close()
}

// Deflate returns the zlib stream for p, for tests that build entries by
// hand via Raw.
func Deflate(p []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(p)
	zw.Close()
	return buf.Bytes()
}

// InsertDelta returns a delta that reconstructs target using only insert
// instructions. base is used for the source size header only.
func InsertDelta(base, target []byte) []byte {
	out := leb128(len(base))
	out = append(out, leb128(len(target))...)
	for len(target) > 0 {
		n := len(target)
		if n > 127 {
			n = 127
		}
		out = append(out, byte(n))
		out = append(out, target[:n]...)
		target = target[n:]
	}
	return out
}

// AppendDelta returns a delta producing base+suffix: one copy instruction
// covering the whole base followed by insert instructions for suffix.
func AppendDelta(base, suffix []byte) []byte {
	out := leb128(len(base))
	out = append(out, leb128(len(base)+len(suffix))...)

	cmd := byte(0x80)
	var sizeBytes []byte
	for i, mask := 0, byte(0x10); i < 3; i, mask = i+1, mask<<1 {
		v := byte(len(base) >> (8 * i))
		if v != 0 {
			cmd |= mask
			sizeBytes = append(sizeBytes, v)
		}
	}
	out = append(out, cmd)
	out = append(out, sizeBytes...)

	for len(suffix) > 0 {
		n := len(suffix)
		if n > 127 {
			n = 127
		}
		out = append(out, byte(n))
		out = append(out, suffix[:n]...)
		suffix = suffix[n:]
	}
	return out
}

func leb128(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			return out
		}
	}
}
