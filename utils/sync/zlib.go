package sync

import (
	"bytes"
	"compress/zlib"
	"io"
)

var zlibInitBytes = []byte{0x78, 0x9c, 0x01, 0x00, 0x00, 0xff, 0xff, 0x00, 0x00, 0x00, 0x01}

type zlibReadCloser interface {
	io.ReadCloser
	zlib.Resetter
}

// ZLibReader is a poolable zlib reader.
type ZLibReader struct {
	dict   *[]byte
	reader zlibReadCloser
}

// Read reads data from the zlib reader.
func (r *ZLibReader) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

// Close closes the zlib reader.
func (r *ZLibReader) Close() error {
	return r.reader.Close()
}

// Reset resets the reader to read from in.
func (r *ZLibReader) Reset(in io.Reader) error {
	return r.reader.Reset(in, *r.dict)
}

// NewZlibReader returns a ZLibReader using the given dictionary. The
// reader is meant to be long-lived and reused through Reset, the way the
// pack scanner holds one for the lifetime of a scan.
func NewZlibReader(dict *[]byte) ZLibReader {
	r, _ := zlib.NewReader(bytes.NewReader(zlibInitBytes))
	return ZLibReader{
		dict:   dict,
		reader: r.(zlibReadCloser),
	}
}
