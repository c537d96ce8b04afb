package plumbing

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/go-pack/packcheck/plumbing/hash"
)

// Hash is the canonical content hash of an object: the digest of its
// type, size and fully expanded payload.
type Hash [hash.Size]byte

// ZeroHash is Hash with value zero.
var ZeroHash Hash

// ComputeHash compute the hash for a given ObjectType and content.
func ComputeHash(t ObjectType, content []byte) Hash {
	h := NewHasher(t, int64(len(content)))
	h.Write(content)
	return h.Sum()
}

// NewHash return a new Hash from a hexadecimal hash representation.
func NewHash(s string) Hash {
	b, _ := hex.DecodeString(s)

	var h Hash
	copy(h[:], b)

	return h
}

// IsZero returns true if the hash is zero.
func (h Hash) IsZero() bool {
	var empty Hash
	return h == empty
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Compare compares the hash with a slice of bytes.
func (h Hash) Compare(b []byte) int {
	return bytes.Compare(h[:], b)
}

// Hasher computes content hashes. The object header (type and size)
// is written on Reset, the payload through Write.
type Hasher struct {
	hash.Hash
}

// NewHasher returns a new Hasher for the given ObjectType and size.
func NewHasher(t ObjectType, size int64) Hasher {
	h := Hasher{hash.New(hash.CryptoType)}
	h.Reset(t, size)
	return h
}

// Reset resets the underlying hash and writes a new object header to it.
func (h Hasher) Reset(t ObjectType, size int64) {
	h.Hash.Reset()
	h.Write(t.Bytes())
	h.Write([]byte(" "))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte{0})
}

// Sum returns the hash of the content written so far.
func (h Hasher) Sum() (hash Hash) {
	copy(hash[:], h.Hash.Sum(nil))
	return
}
