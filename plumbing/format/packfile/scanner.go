package packfile

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"sync"

	"github.com/go-pack/packcheck/plumbing"
	packhash "github.com/go-pack/packcheck/plumbing/hash"
	"github.com/go-pack/packcheck/utils/binary"
	"github.com/go-pack/packcheck/utils/ioutil"
	packsync "github.com/go-pack/packcheck/utils/sync"
)

var (
	// ErrEmptyPackfile is returned by ReadHeader when no data is found in the packfile.
	ErrEmptyPackfile = NewError("empty packfile")
	// ErrBadSignature is returned by ReadHeader when the signature in the packfile is incorrect.
	ErrBadSignature = NewError("malformed pack file signature")
	// ErrMalformedPackfile is returned when the packfile format is incorrect.
	ErrMalformedPackfile = NewError("malformed pack file")
	// ErrUnsupportedVersion is returned by ReadHeader when the packfile
	// version is one that Version.Supported rejects.
	ErrUnsupportedVersion = NewError("unsupported packfile version")
	// ErrSeekNotSupported returned if seek is not support.
	ErrSeekNotSupported = NewError("not seek support")
)

// Scanner provides sequential access to the data stored in a packfile.
//
// A packfile is a compressed binary format that stores multiple objects:
// commits, trees, blobs and tags, plus delta objects encoded against a
// base object. Packfiles are used to reduce the size of data when
// transferring or storing content-addressed repositories.
//
// A packfile is structured as follows:
//
//	+----------------------------------------------------+
//	|                 PACK File Header                   |
//	+----------------------------------------------------+
//	| "PACK"  | Version Number | Number of Objects       |
//	| (4 bytes)  |  (4 bytes)   |    (4 bytes)           |
//	+----------------------------------------------------+
//	|                  Object Entry #1                   |
//	+----------------------------------------------------+
//	|  Object Header  |  Compressed Object Data / Delta  |
//	| (type + size)   |  (var-length, zlib compressed)   |
//	+----------------------------------------------------+
//	|                         ...                        |
//	+----------------------------------------------------+
//	|                  PACK File Footer                  |
//	+----------------------------------------------------+
//	|                SHA-1 Checksum (20 bytes)           |
//	+----------------------------------------------------+
//
// For upstream docs, refer to https://git-scm.com/docs/gitformat-pack.
type Scanner struct {
	// version holds the packfile version.
	version Version
	// objects holds the quantity of objects within the packfile.
	objects uint32
	// objIndex is the current index when going through the packfile objects.
	objIndex int
	// hasher is used to hash non-delta objects.
	hasher plumbing.Hasher
	// crc is used to generate the CRC-32 checksum of each object's content.
	crc hash.Hash32
	// packhash hashes the pack contents so that at the end it is able to
	// validate the packfile's footer checksum against the calculated hash.
	packhash packhash.Hash

	// nextFn holds what state function should be executed on the next
	// call to Scan().
	nextFn stateFn
	// packData holds the data for the last successful call to Scan().
	packData PackData
	// err holds the first error that occurred.
	err error

	m sync.Mutex

	*scannerReader
	zr packsync.ZLibReader
}

// NewScanner creates a new instance of Scanner.
func NewScanner(rs io.Reader) *Scanner {
	dict := make([]byte, 16*1024)
	crc := crc32.NewIEEE()
	ph := packhash.New(packhash.CryptoType)

	return &Scanner{
		scannerReader: newScannerReader(rs, io.MultiWriter(crc, ph)),
		zr:            packsync.NewZlibReader(&dict),
		objIndex:      -1,
		hasher:        plumbing.NewHasher(plumbing.InvalidObject, 0),
		crc:           crc,
		packhash:      ph,
		nextFn:        packHeaderSignature,
	}
}

// Scan scans a packfile sequentially. Each call will navigate from a
// section to the next, until the entire file is read.
//
// The section data can be accessed via calls to Data(). Example:
//
//	for scanner.Scan() {
//	    v := scanner.Data().Value()
//
//		switch scanner.Data().Section {
//		case HeaderSection:
//			header := v.(Header)
//			fmt.Println("[Header] Objects Qty:", header.ObjectsQty)
//		case ObjectSection:
//			oh := v.(ObjectHeader)
//			fmt.Println("[Object] Object Type:", oh.Type)
//		case FooterSection:
//			checksum := v.(plumbing.Hash)
//			fmt.Println("[Footer] Checksum:", checksum)
//		}
//	}
func (r *Scanner) Scan() bool {
	r.m.Lock()
	defer r.m.Unlock()

	if r.err != nil || r.nextFn == nil {
		return false
	}

	if err := scan(r); err != nil {
		r.err = err
		return false
	}

	return true
}

// Reset resets the current scanner, enabling it to be used to scan the
// same packfile again.
func (r *Scanner) Reset() error {
	r.scannerReader.Flush()
	if _, err := r.scannerReader.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r.packhash.Reset()

	r.objIndex = -1
	r.version = 0
	r.objects = 0
	r.packData = PackData{}
	r.err = nil
	r.nextFn = packHeaderSignature

	return nil
}

// Data returns the pack data based on the last call to Scan().
func (r *Scanner) Data() PackData {
	return r.packData
}

// Error returns the first error that occurred on the last call to Scan().
// Once an error occurs, calls to Scan() become a no-op.
func (r *Scanner) Error() error {
	return r.err
}

// ObjectsQty returns the number of objects the pack header announced.
// Only valid once the header section has been scanned.
func (r *Scanner) ObjectsQty() uint32 {
	return r.objects
}

// inflateContent seeks to contentOffset and inflates the zlib stream found
// there into writer. It requires the underlying reader to be seekable.
func (s *Scanner) inflateContent(contentOffset int64, writer io.Writer) error {
	if s.seeker == nil {
		return ErrSeekNotSupported
	}

	_, err := s.scannerReader.Seek(contentOffset, io.SeekStart)
	if err != nil {
		return err
	}

	err = s.zr.Reset(s.scannerReader)
	if err != nil {
		return fmt.Errorf("zlib reset error: %s", err)
	}

	_, err = ioutil.CopyBufferPool(writer, &s.zr)
	return err
}

// scan goes through the next stateFn.
//
// State functions are chained by returning a non-nil value for stateFn.
// In such cases, the returned stateFn will be called immediately after
// the current func.
func scan(r *Scanner) error {
	var err error
	for state := r.nextFn; state != nil; {
		state, err = state(r)
		if err != nil {
			return err
		}
	}
	return nil
}

// stateFn defines each individual state within the state machine that
// represents a packfile.
type stateFn func(*Scanner) (stateFn, error)

// packHeaderSignature validates the packfile's header signature and
// returns [ErrBadSignature] if the value provided is invalid.
//
// This is always the first state of a packfile and starts the chain
// that handles the entire packfile header.
func packHeaderSignature(r *Scanner) (stateFn, error) {
	start := make([]byte, 4)
	_, err := io.ReadFull(r, start)
	if err == io.EOF {
		return nil, ErrEmptyPackfile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSignature, err)
	}

	if bytes.Equal(start, signature) {
		return packVersion, nil
	}

	return nil, ErrBadSignature
}

// packVersion parses the packfile version. It returns [ErrMalformedPackfile]
// when the version cannot be parsed. If a valid version is parsed, but it is
// not currently supported, it returns [ErrUnsupportedVersion] instead.
func packVersion(r *Scanner) (stateFn, error) {
	version, err := binary.ReadUint32(r.scannerReader)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read version", ErrMalformedPackfile)
	}

	v := Version(version)
	if !v.Supported() {
		return nil, ErrUnsupportedVersion
	}

	r.version = v
	return packObjectsQty, nil
}

// packObjectsQty parses the quantity of objects that the packfile contains.
// If the value cannot be parsed, [ErrMalformedPackfile] is returned.
//
// This state ends the packfile header chain.
func packObjectsQty(r *Scanner) (stateFn, error) {
	qty, err := binary.ReadUint32(r.scannerReader)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read number of objects", ErrMalformedPackfile)
	}

	r.objects = qty
	r.packData = PackData{
		Section: HeaderSection,
		header:  Header{Version: r.version, ObjectsQty: r.objects},
	}
	if qty == 0 {
		r.nextFn = packFooter
	} else {
		r.nextFn = objectEntry
	}

	return nil, nil
}

// objectEntry handles the object entries within a packfile. This is
// generally split between object headers and their contents.
//
// The object header contains the object type and size. If the type cannot
// be parsed, [ErrMalformedPackfile] is returned.
func objectEntry(r *Scanner) (stateFn, error) {
	if r.objIndex+1 >= int(r.objects) {
		return packFooter, nil
	}
	r.objIndex++

	offset := r.scannerReader.offset

	r.scannerReader.Flush()
	r.crc.Reset()

	b, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPackfile, err)
	}

	typ := parseType(b)
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: invalid object type: %v", ErrMalformedPackfile, b)
	}

	size, err := readVariableLengthSize(b, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPackfile, err)
	}

	oh := ObjectHeader{
		Offset:   offset,
		Type:     typ,
		diskType: typ,
		Size:     int64(size),
	}

	switch oh.Type {
	case plumbing.OFSDeltaObject:
		no, err := binary.ReadVariableWidthInt(r.scannerReader)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPackfile, err)
		}
		oh.OffsetReference = oh.Offset - no
		if oh.OffsetReference < 0 || oh.OffsetReference >= oh.Offset {
			return nil, ErrMalformedPackfile.AddDetails(
				"invalid base offset %d for delta at %d", oh.OffsetReference, oh.Offset)
		}
	case plumbing.REFDeltaObject:
		ref, err := binary.ReadHash(r.scannerReader)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPackfile, err)
		}
		oh.Reference = ref
	}

	oh.ContentOffset = r.scannerReader.offset
	if err := r.zr.Reset(r.scannerReader); err != nil {
		return nil, fmt.Errorf("%w: zlib reset error: %s", ErrMalformedPackfile, err)
	}

	buf := packsync.GetByteSlice()
	if !oh.Type.IsDelta() {
		// For non-delta objects, hash the content while inflating it.
		r.hasher.Reset(oh.Type, oh.Size)
		n, err := io.CopyBuffer(r.hasher, &r.zr, *buf)
		if err != nil {
			packsync.PutByteSlice(buf)
			return nil, fmt.Errorf("%w: %w", ErrMalformedPackfile, err)
		}
		oh.ActualSize = n
		oh.Hash = r.hasher.Sum()
	} else {
		// Delta contents are decoded on demand by the materializer, so
		// that the expansion cost is not paid twice. We don't know the
		// compressed length upfront, so we must consume the stream to
		// find the next entry.
		n, err := io.CopyBuffer(io.Discard, &r.zr, *buf)
		if err != nil {
			packsync.PutByteSlice(buf)
			return nil, fmt.Errorf("%w: %w", ErrMalformedPackfile, err)
		}
		oh.ActualSize = n
	}
	packsync.PutByteSlice(buf)

	if oh.ActualSize != oh.Size {
		return nil, ErrMalformedPackfile.AddDetails(
			"entry at %d inflates to %d bytes, header claims %d", oh.Offset, oh.ActualSize, oh.Size)
	}

	r.scannerReader.Flush()
	oh.Crc32 = r.crc.Sum32()

	r.packData.Section = ObjectSection
	r.packData.objectHeader = oh

	return nil, nil
}

// packFooter parses the packfile checksum.
// If the checksum cannot be parsed, or it does not match the checksum
// calculated during the scanning process, an [ErrMalformedPackfile] is
// returned.
func packFooter(r *Scanner) (stateFn, error) {
	r.scannerReader.Flush()
	actual := r.packhash.Sum(nil)

	checksum, err := binary.ReadHash(r.scannerReader)
	if err != nil {
		return nil, fmt.Errorf("cannot read PACK checksum: %w", ErrMalformedPackfile)
	}

	if !bytes.Equal(actual, checksum[:]) {
		return nil, fmt.Errorf("checksum mismatch expected %q but found %q: %w",
			hex.EncodeToString(actual), checksum, ErrMalformedPackfile)
	}

	r.packData.Section = FooterSection
	r.packData.checksum = checksum
	r.nextFn = nil

	return nil, nil
}

func readVariableLengthSize(first byte, reader io.ByteReader) (uint64, error) {
	// Extract the first part of the size (last 4 bits of the first byte).
	size := uint64(first & maskFirstLength)

	// |  0xxx xxxx | xxxx xxxx | ...
	//
	//	  ^^^ ^^^^    ^^^^ ^^^^
	//	 Type+Size1    Size Part 2
	//
	// Check if more bytes are needed to fully determine the size.
	if first&maskContinue != 0 {
		shift := uint(firstLengthBits)

		for {
			b, err := reader.ReadByte()
			if err != nil {
				return 0, err
			}

			// Add the next 7 bits to the size.
			size |= uint64(b&maskLength) << shift

			// Check if the continuation bit is set.
			if b&maskContinue == 0 {
				break
			}

			// Prepare for the next byte.
			shift += 7
		}
	}
	return size, nil
}

func parseType(b byte) plumbing.ObjectType {
	return plumbing.ObjectType((b & maskType) >> firstLengthBits)
}
