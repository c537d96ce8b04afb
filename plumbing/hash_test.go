package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeHash(t *testing.T) {
	h := ComputeHash(BlobObject, []byte(""))
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", h.String())

	h = ComputeHash(BlobObject, []byte("hello\n"))
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", h.String())

	h = ComputeHash(TreeObject, []byte(""))
	assert.Equal(t, "4b825dc642cb6eb9a060e54bf8d69288fbee4904", h.String())
}

func TestNewHash(t *testing.T) {
	h := ComputeHash(BlobObject, []byte("hello\n"))
	assert.Equal(t, h, NewHash(h.String()))
}

func TestIsZero(t *testing.T) {
	assert.True(t, ZeroHash.IsZero())
	assert.True(t, NewHash("not a hash").IsZero())
	assert.False(t, NewHash("8697c8f9fd3d59ae2b2c2bd757589e7a8a2d5fb5").IsZero())
}

func TestHasherReset(t *testing.T) {
	h := NewHasher(BlobObject, 6)
	h.Write([]byte("hello\n"))
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", h.Sum().String())

	// Reusing the hasher after a reset must produce the same digest as a
	// fresh one.
	h.Reset(BlobObject, 0)
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", h.Sum().String())
}

func TestHashCompare(t *testing.T) {
	a := NewHash("1111111111111111111111111111111111111111")
	b := NewHash("2222222222222222222222222222222222222222")

	assert.Equal(t, -1, a.Compare(b[:]))
	assert.Equal(t, 0, a.Compare(a[:]))
	assert.Equal(t, 1, b.Compare(a[:]))
}
