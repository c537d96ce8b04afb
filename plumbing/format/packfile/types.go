package packfile

import (
	"github.com/go-pack/packcheck/plumbing"
)

// Version represents the packfile version.
type Version uint32

// Packfile versions.
const (
	V2 Version = 2
)

// Supported returns true if the version is supported.
func (v Version) Supported() bool {
	switch v {
	case V2:
		return true
	default:
		return false
	}
}

// ObjectHeader contains the information related to a pack entry, collected
// from the bytes preceding the entry content.
//
// Size is the decompressed size claimed by the entry header: the payload
// size for non-delta entries, the delta data size for delta entries.
// ActualSize is the size of the fully expanded object; for non-delta
// entries the scanner sets it while inflating, for delta entries it is
// filled in once the delta chain is resolved.
type ObjectHeader struct {
	Type            plumbing.ObjectType
	Offset          int64
	ContentOffset   int64
	Size            int64
	ActualSize      int64
	Reference       plumbing.Hash
	OffsetReference int64
	Crc32           uint32
	Hash            plumbing.Hash

	diskType plumbing.ObjectType
}

// IsDelta returns true if the entry is stored in delta form.
func (oh *ObjectHeader) IsDelta() bool {
	return oh.diskType.IsDelta()
}

// SectionType represents the type of section in a packfile.
type SectionType int

// Section types.
const (
	HeaderSection SectionType = iota
	ObjectSection
	FooterSection
)

// Header represents the packfile header.
type Header struct {
	Version    Version
	ObjectsQty uint32
}

// PackData represents the data returned by the scanner.
type PackData struct {
	Section      SectionType
	header       Header
	objectHeader ObjectHeader
	checksum     plumbing.Hash
}

// Value returns the value of the PackData based on its section type.
func (p PackData) Value() interface{} {
	switch p.Section {
	case HeaderSection:
		return p.header
	case ObjectSection:
		return p.objectHeader
	case FooterSection:
		return p.checksum
	default:
		return nil
	}
}

// BasePointer identifies the immediate base of a delta entry: either by
// content hash (ref-delta) or by offset within the same pack (ofs-delta).
// Offsets are kept in absolute form; the relative displacement stored on
// disk is Delta.Offset - Base.Offset.
type BasePointer struct {
	Ref    plumbing.Hash
	Offset int64
}

// ByHash returns true when the base is identified by content hash.
func (p BasePointer) ByHash() bool {
	return !p.Ref.IsZero()
}

// ResolvedObject is the fully expanded form of any object in the pack.
// For delta entries, Chain holds the pointers traversed to reach the
// ultimate non-delta base, immediate parent first; for non-delta entries
// Chain is empty.
type ResolvedObject struct {
	Type    plumbing.ObjectType
	Size    int64
	Content []byte
	Chain   []BasePointer
}

// Depth returns the number of delta hops to the ultimate non-delta base.
func (r *ResolvedObject) Depth() int {
	return len(r.Chain)
}
