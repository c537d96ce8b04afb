package packfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/emirpasic/gods/sets/treeset"

	"github.com/go-pack/packcheck/plumbing"
	"github.com/go-pack/packcheck/plumbing/cache"
)

var (
	// ErrMissingIndexEntry is returned when a pending hash has no record in
	// the object index. It indicates an internal invariant violation, not
	// bad user input.
	ErrMissingIndexEntry = NewError("pending hash missing from object index")
	// ErrVerifyNotRun is returned when a report is requested before a
	// successful call to Verify.
	ErrVerifyNotRun = NewError("pack has not been verified")
)

// progressCadence is how many entries are scanned between two progress
// updates.
const progressCadence = 256

// IndexRecord binds a pack entry to its canonical hash and, for delta
// entries, to the pointer identifying its immediate base and the length
// of its delta chain.
type IndexRecord struct {
	// Entry is the on-disk entry, with Type corrected to the resolved
	// object type and ActualSize to the fully expanded size.
	Entry ObjectHeader
	// Base is nil for non-delta entries.
	Base *BasePointer
	// Depth is the number of delta hops down to the ultimate non-delta
	// base; zero for non-delta entries.
	Depth int
}

// Verifier runs a single verification pass over a packfile: a sequential
// scan of every entry, delta resolution through a Materializer, and the
// incremental build of the object and offset indexes. Once Verify has
// succeeded, WriteReport emits one line per distinct object in ascending
// hash order.
//
// A Verifier is single-use and not safe for concurrent access: the scan
// owns all its structures, the report borrows them read-only.
type Verifier struct {
	scanner *Scanner
	mat     Materializer
	cache   cache.Object

	index   *packIndex
	records map[plumbing.Hash]*IndexRecord
	pending *treeset.Set

	checksum  plumbing.Hash
	remaining uint32
	progress  io.Writer
	verified  bool
}

// NewVerifier returns a Verifier for the packfile read from rs.
//
// rs should also implement io.Seeker; packs that contain delta entries
// cannot be materialized from a plain stream.
func NewVerifier(rs io.Reader, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		scanner: NewScanner(rs),
		records: make(map[plumbing.Hash]*IndexRecord),
		pending: treeset.NewWith(hashComparator),
		index:   newPackIndex(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	if v.cache == nil {
		v.cache = cache.NewObjectLRUDefault()
	}
	v.mat = newPackMaterializer(v.scanner, v.index, v.cache)

	return v
}

// Verify scans the whole pack and resolves every delta entry. On any
// failure the verification is aborted as a whole; no partial index is
// retained for reporting.
func (v *Verifier) Verify() error {
	var deltas []*ObjectHeader

	for v.scanner.Scan() {
		data := v.scanner.Data()
		switch data.Section {
		case HeaderSection:
			header := data.Value().(Header)
			v.index.reset(int(header.ObjectsQty))
			v.remaining = header.ObjectsQty

		case ObjectSection:
			oh := data.Value().(ObjectHeader)
			entry := oh
			v.index.add(&entry)

			if entry.IsDelta() {
				// Hashing a delta needs its fully expanded content, which
				// may depend on entries not seen yet. Resolution happens
				// once the scan is complete.
				deltas = append(deltas, &entry)
			} else {
				v.add(&entry, nil, 0)
			}
			v.tick()

		case FooterSection:
			v.checksum = data.Value().(plumbing.Hash)
		}
	}

	if err := v.scanner.Error(); err != nil {
		return err
	}

	if v.scanner.ObjectsQty() == 0 {
		return ErrEmptyPackfile
	}

	for _, oh := range deltas {
		if err := v.resolveDelta(oh); err != nil {
			return fmt.Errorf("resolving delta at offset %d: %w", oh.Offset, err)
		}
	}

	v.verified = true
	return nil
}

// resolveDelta materializes the delta entry at oh, derives its canonical
// hash from the expanded content, and indexes it. Deltas are resolved in
// file order, so by the time an entry is resolved every possible base
// before it already carries a hash.
func (v *Verifier) resolveDelta(oh *ObjectHeader) error {
	obj, err := v.mat.Materialize(oh.Offset)
	if err != nil {
		return err
	}

	oh.Type = obj.Type
	oh.ActualSize = obj.Size
	oh.Hash = plumbing.ComputeHash(obj.Type, obj.Content)

	// Re-adding completes the hash side of the index, making this entry
	// visible to ref-deltas and offset lookups further down the pack.
	v.index.add(oh)
	v.cache.Put(plumbing.NewMemoryObject(obj.Type, oh.Hash, obj.Content))

	ptr := obj.Chain[0]
	v.add(oh, &ptr, obj.Depth())

	return nil
}

// add records the entry under its hash and marks the hash as pending for
// the report. Identical content reachable from several offsets collapses
// into a single record; re-insertions are idempotent.
func (v *Verifier) add(oh *ObjectHeader, base *BasePointer, depth int) {
	v.pending.Add(oh.Hash)

	if _, ok := v.records[oh.Hash]; ok {
		return
	}

	v.records[oh.Hash] = &IndexRecord{Entry: *oh, Base: base, Depth: depth}
}

func (v *Verifier) tick() {
	if v.remaining > 0 {
		v.remaining--
	}

	if v.progress != nil && v.remaining%progressCadence == 0 {
		fmt.Fprintf(v.progress, "Verifying objects: %d remaining\n", v.remaining)
	}
}

// Checksum returns the pack trailer checksum. Only valid after Verify.
func (v *Verifier) Checksum() plumbing.Hash {
	return v.checksum
}

// WriteReport emits one line per distinct object, in ascending order of
// the canonical binary hash, independent of on-disk order:
//
//	non-delta: <hash> <kind:%-6s> <actualSize> <storedSize> <offset>
//	delta:     <hash> <kind:%-6s> <actualSize> <storedSize> <offset> <chainLength> <parentHash>
//
// Re-running a verification over an unchanged pack produces byte-identical
// output.
func (v *Verifier) WriteReport(w io.Writer) error {
	if !v.verified {
		return ErrVerifyNotRun
	}

	it := v.pending.Iterator()
	for it.Next() {
		h := it.Value().(plumbing.Hash)
		rec, ok := v.records[h]
		if !ok {
			return ErrMissingIndexEntry.AddDetails("hash %s", h)
		}

		if rec.Base == nil {
			if _, err := fmt.Fprintf(w, "%s %-6s %d %d %d\n",
				h, rec.Entry.Type, rec.Entry.ActualSize, rec.Entry.Size, rec.Entry.Offset); err != nil {
				return err
			}
			continue
		}

		parent, err := v.parentHash(rec)
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, "%s %-6s %d %d %d %d %s\n",
			h, rec.Entry.Type, rec.Entry.ActualSize, rec.Entry.Size, rec.Entry.Offset,
			rec.Depth, parent); err != nil {
			return err
		}
	}

	return nil
}

// WriteStats emits a histogram of the verified pack: the number of
// non-delta objects and, per chain length, the number of delta objects at
// that depth.
func (v *Verifier) WriteStats(w io.Writer) error {
	if !v.verified {
		return ErrVerifyNotRun
	}

	var maxDepth int
	counts := map[int]int{}
	for _, rec := range v.records {
		counts[rec.Depth]++
		if rec.Depth > maxDepth {
			maxDepth = rec.Depth
		}
	}

	if _, err := fmt.Fprintf(w, "non delta: %d objects\n", counts[0]); err != nil {
		return err
	}

	for depth := 1; depth <= maxDepth; depth++ {
		if counts[depth] == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "chain length = %d: %d objects\n", depth, counts[depth]); err != nil {
			return err
		}
	}

	return nil
}

// parentHash resolves the hash of a delta's immediate base. Hash pointers
// carry it directly; offset pointers are looked up in the offset index,
// and an unknown offset is a fatal ErrBaseNotFound, never a skipped line.
func (v *Verifier) parentHash(rec *IndexRecord) (plumbing.Hash, error) {
	if rec.Base.ByHash() {
		return rec.Base.Ref, nil
	}

	base, ok := v.index.entryByOffset(rec.Base.Offset)
	if !ok || base.Hash.IsZero() {
		return plumbing.ZeroHash, ErrBaseNotFound.AddDetails(
			"no object found at offset %d", rec.Base.Offset)
	}

	return base.Hash, nil
}

// hashComparator orders hashes by their canonical binary representation.
func hashComparator(a, b interface{}) int {
	ha := a.(plumbing.Hash)
	hb := b.(plumbing.Hash)
	return bytes.Compare(ha[:], hb[:])
}
