package packfile

import (
	"github.com/go-pack/packcheck/plumbing"
)

// packIndex holds the entries seen during a scan, addressable by offset
// and, once their canonical hash is known, by hash. Offsets are unique
// within a pack; two entries with identical expanded content share a hash
// and the last one added wins the byHash slot, which is harmless as both
// describe the same content.
//
// This is not thread safe by itself, and relies on the Verifier to
// enforce thread-safety.
type packIndex struct {
	byHash   map[plumbing.Hash]*ObjectHeader
	byOffset map[int64]*ObjectHeader
}

func newPackIndex() *packIndex {
	return &packIndex{}
}

func (c *packIndex) reset(n int) {
	if c.byHash == nil {
		c.byHash = make(map[plumbing.Hash]*ObjectHeader, n)
		c.byOffset = make(map[int64]*ObjectHeader, n)
		return
	}

	for k := range c.byHash {
		delete(c.byHash, k)
	}
	for k := range c.byOffset {
		delete(c.byOffset, k)
	}
}

// add indexes oh by offset, and by hash once the hash is known. Adding
// the same entry again after its hash has been resolved completes the
// byHash side.
func (c *packIndex) add(oh *ObjectHeader) {
	if c.byOffset == nil {
		c.reset(0)
	}

	c.byOffset[oh.Offset] = oh
	if !oh.Hash.IsZero() {
		c.byHash[oh.Hash] = oh
	}
}

func (c *packIndex) entryByOffset(offset int64) (*ObjectHeader, bool) {
	oh, ok := c.byOffset[offset]
	return oh, ok
}

func (c *packIndex) entryByHash(h plumbing.Hash) (*ObjectHeader, bool) {
	oh, ok := c.byHash[h]
	return oh, ok
}
