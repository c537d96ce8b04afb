package packfile

import (
	"bytes"

	"github.com/go-pack/packcheck/plumbing"
	"github.com/go-pack/packcheck/plumbing/cache"
	packsync "github.com/go-pack/packcheck/utils/sync"
)

var (
	// ErrInvalidObject is returned when an entry with an invalid object
	// type is found in the packfile.
	ErrInvalidObject = NewError("invalid object")
	// ErrBaseNotFound is returned when the base of a delta entry cannot be
	// located within the pack, either because the referenced offset holds
	// no known object or because no object with the referenced hash has
	// been seen.
	ErrBaseNotFound = NewError("delta base not found")
)

// Materializer fully resolves any object within a pack, given the offset
// of its entry. Delta entries are followed transitively down to their
// ultimate non-delta base.
type Materializer interface {
	Materialize(offset int64) (*ResolvedObject, error)
}

// packMaterializer implements Materializer on top of a scanned pack.
// Base lookups go through the index built during the scan, so an offset
// or hash can only be materialized once the scan has passed it. Expanded
// objects whose hash is already known are kept in a bounded cache, so a
// base shared by many deltas is inflated once.
type packMaterializer struct {
	scanner *Scanner
	index   *packIndex
	cache   cache.Object
}

func newPackMaterializer(s *Scanner, idx *packIndex, c cache.Object) *packMaterializer {
	if c == nil {
		c = cache.NewObjectLRUDefault()
	}

	return &packMaterializer{
		scanner: s,
		index:   idx,
		cache:   c,
	}
}

// Materialize returns the fully expanded object whose entry starts at
// offset. ErrBaseNotFound is returned when offset does not hold a known
// entry.
func (m *packMaterializer) Materialize(offset int64) (*ResolvedObject, error) {
	oh, ok := m.index.entryByOffset(offset)
	if !ok {
		return nil, ErrBaseNotFound.AddDetails("no object found at offset %d", offset)
	}

	return m.resolve(oh)
}

func (m *packMaterializer) resolve(oh *ObjectHeader) (*ResolvedObject, error) {
	if !oh.Hash.IsZero() {
		if obj, ok := m.cache.Get(oh.Hash); ok {
			mo := obj.(*plumbing.MemoryObject)
			chain, err := m.chain(oh)
			if err != nil {
				return nil, err
			}

			return &ResolvedObject{
				Type:    mo.Type(),
				Size:    mo.Size(),
				Content: mo.Contents(),
				Chain:   chain,
			}, nil
		}
	}

	var res *ResolvedObject
	if !oh.IsDelta() {
		var buf bytes.Buffer
		buf.Grow(int(oh.Size))
		if err := m.scanner.inflateContent(oh.ContentOffset, &buf); err != nil {
			return nil, ErrMalformedPackfile.AddDetails(
				"cannot inflate object at offset %d: %s", oh.Offset, err)
		}

		res = &ResolvedObject{
			Type:    oh.Type,
			Size:    int64(buf.Len()),
			Content: buf.Bytes(),
		}
	} else {
		base, ptr, err := m.base(oh)
		if err != nil {
			return nil, err
		}

		resolvedBase, err := m.resolve(base)
		if err != nil {
			return nil, err
		}

		delta := packsync.GetBytesBuffer()
		defer packsync.PutBytesBuffer(delta)
		if err := m.scanner.inflateContent(oh.ContentOffset, delta); err != nil {
			return nil, ErrMalformedPackfile.AddDetails(
				"cannot inflate delta at offset %d: %s", oh.Offset, err)
		}

		content, err := PatchDelta(resolvedBase.Content, delta.Bytes())
		if err != nil {
			return nil, err
		}

		chain := make([]BasePointer, 0, len(resolvedBase.Chain)+1)
		chain = append(chain, ptr)
		chain = append(chain, resolvedBase.Chain...)

		res = &ResolvedObject{
			Type:    resolvedBase.Type,
			Size:    int64(len(content)),
			Content: content,
			Chain:   chain,
		}
	}

	if !oh.Hash.IsZero() {
		m.cache.Put(plumbing.NewMemoryObject(res.Type, oh.Hash, res.Content))
	}

	return res, nil
}

// chain walks the delta pointers from oh to its ultimate non-delta base
// without expanding any content.
func (m *packMaterializer) chain(oh *ObjectHeader) ([]BasePointer, error) {
	var chain []BasePointer
	for oh.IsDelta() {
		base, ptr, err := m.base(oh)
		if err != nil {
			return nil, err
		}

		chain = append(chain, ptr)
		oh = base
	}

	return chain, nil
}

// base returns the entry that oh is a delta against, along with the
// pointer identifying it. Offset pointers reference strictly earlier
// entries; hash pointers can only be satisfied by entries whose hash is
// already known, so chains cannot loop.
func (m *packMaterializer) base(oh *ObjectHeader) (*ObjectHeader, BasePointer, error) {
	switch oh.diskType {
	case plumbing.OFSDeltaObject:
		ptr := BasePointer{Offset: oh.OffsetReference}
		base, ok := m.index.entryByOffset(oh.OffsetReference)
		if !ok {
			return nil, ptr, ErrBaseNotFound.AddDetails(
				"no object found at offset %d", oh.OffsetReference)
		}
		return base, ptr, nil

	case plumbing.REFDeltaObject:
		ptr := BasePointer{Ref: oh.Reference}
		base, ok := m.index.entryByHash(oh.Reference)
		if !ok {
			return nil, ptr, ErrBaseNotFound.AddDetails(
				"no object found with hash %s", oh.Reference)
		}
		return base, ptr, nil

	default:
		return nil, BasePointer{}, ErrInvalidObject.AddDetails("type %q", oh.diskType)
	}
}
