package packfile

import (
	"bufio"
	"io"
)

// scannerReader is the buffered reader the scan runs on. It keeps the
// absolute read position, so entry offsets can be recorded even when the
// underlying reader is a plain stream, and it tees everything it reads
// into the crc/pack digest writer through a small buffer, so the hash
// writers don't pay for byte-sized writes.
//
// When the underlying reader is an io.ReadSeeker, Seek allows jumping
// back into already scanned entries; the materializer relies on this to
// inflate delta bases after the scan has moved past them.
//
// Note that this is passed on to zlib, and it must support io.ByteReader,
// else it won't be able to just read the content of the current object, but
// rather it will read the entire packfile.
//
// scannerReader is not thread-safe.
type scannerReader struct {
	reader io.Reader
	crc    io.Writer
	rbuf   *bufio.Reader
	wbuf   *bufio.Writer
	offset int64
	seeker io.Seeker
}

func newScannerReader(r io.Reader, h io.Writer) *scannerReader {
	sr := &scannerReader{
		rbuf: bufio.NewReader(nil),
		wbuf: bufio.NewWriterSize(nil, 64),
		crc:  h,
	}
	sr.Reset(r)

	return sr
}

func (r *scannerReader) Reset(reader io.Reader) {
	r.reader = reader
	r.rbuf.Reset(r.reader)
	r.wbuf.Reset(r.crc)

	r.offset = 0

	seeker, ok := r.reader.(io.ReadSeeker)
	r.seeker = seeker

	if ok {
		r.offset, _ = seeker.Seek(0, io.SeekCurrent)
	}
}

func (r *scannerReader) Read(p []byte) (n int, err error) {
	n, err = r.rbuf.Read(p)

	r.offset += int64(n)
	if _, err := r.wbuf.Write(p[:n]); err != nil {
		return n, err
	}
	return
}

func (r *scannerReader) ReadByte() (b byte, err error) {
	b, err = r.rbuf.ReadByte()
	if err == nil {
		r.offset++
		return b, r.wbuf.WriteByte(b)
	}
	return
}

func (r *scannerReader) Flush() error {
	return r.wbuf.Flush()
}

// Seek moves the read position and resets the buffered state. It fails
// with ErrSeekNotSupported when the underlying reader cannot seek.
//
// Seeking during a scan would corrupt the running pack digest; the only
// callers are Scanner.Reset and the post-scan inflate path.
func (r *scannerReader) Seek(offset int64, whence int) (int64, error) {
	if r.seeker == nil {
		return -1, ErrSeekNotSupported
	}

	var err error
	r.offset, err = r.seeker.Seek(offset, whence)
	r.rbuf.Reset(r.reader)

	return r.offset, err
}
