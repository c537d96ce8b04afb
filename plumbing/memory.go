package plumbing

import (
	"bytes"
	"io"
)

// EncodedObject is a generic representation of an object within a pack,
// with its content fully expanded.
type EncodedObject interface {
	Hash() Hash
	Type() ObjectType
	Size() int64
	Reader() (io.ReadCloser, error)
}

// MemoryObject is an EncodedObject held fully in memory.
type MemoryObject struct {
	t    ObjectType
	h    Hash
	cont []byte
	sz   int64
}

// NewMemoryObject returns a MemoryObject for the given type and content.
// The hash is computed lazily, unless one is provided upfront.
func NewMemoryObject(t ObjectType, h Hash, cont []byte) *MemoryObject {
	return &MemoryObject{t: t, h: h, cont: cont, sz: int64(len(cont))}
}

// Hash returns the object Hash. The hash is calculated on-the-fly the
// first time it is invoked.
func (o *MemoryObject) Hash() Hash {
	if o.h == ZeroHash && int64(len(o.cont)) == o.sz {
		o.h = ComputeHash(o.t, o.cont)
	}

	return o.h
}

// Type returns the ObjectType.
func (o *MemoryObject) Type() ObjectType { return o.t }

// Size returns the size of the object.
func (o *MemoryObject) Size() int64 { return o.sz }

// Contents returns the raw expanded payload.
func (o *MemoryObject) Contents() []byte { return o.cont }

// Reader returns an io.ReadCloser over the object payload.
func (o *MemoryObject) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(o.cont)), nil
}
