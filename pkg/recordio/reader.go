package recordio

import (
	"bufio"
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader provides sequential access to the records of a stream
type Reader struct {
	source  io.Reader
	reader  *bufio.Reader
	header  [HeaderSize]byte
	scratch []byte
	offset  int64
	count   int
	closed  bool
}

// NewReader wraps r. The Reader takes ownership of r: Close closes it when it
// implements io.Closer.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		source: r,
		reader: bufio.NewReaderSize(r, defaultBufferSize),
	}
}

// Open opens the record file at path for reading
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}
	return NewReader(file), nil
}

// ReadRecord reads the next record and returns its payload in a new buffer.
// It returns io.EOF once the stream ends on a record boundary.
func (r *Reader) ReadRecord() ([]byte, error) {
	length, err := r.readHeader()
	if err != nil {
		return nil, err
	}

	data := make([]byte, length)
	if err := r.readPayload(data); err != nil {
		return nil, err
	}
	return data, nil
}

// ReadSized reads the next record into dst. The declared length must equal
// len(dst); otherwise ErrSizeMismatch is returned and the payload is left
// unread. dst is only modified when the whole record was read.
func (r *Reader) ReadSized(dst []byte) error {
	length, err := r.readHeader()
	if err != nil {
		return err
	}
	if length != uint64(len(dst)) {
		return fmt.Errorf("%w: declared %d bytes, expected %d at offset %d",
			ErrSizeMismatch, length, len(dst), r.offset-HeaderSize)
	}

	if cap(r.scratch) < len(dst) {
		r.scratch = make([]byte, len(dst))
	}
	buf := r.scratch[:len(dst)]
	if err := r.readPayload(buf); err != nil {
		return err
	}
	copy(dst, buf)
	return nil
}

// Read reads a record of exactly size bytes and unmarshals it into m
func (r *Reader) Read(m encoding.BinaryUnmarshaler, size int) error {
	buf := make([]byte, size)
	if err := r.ReadSized(buf); err != nil {
		return err
	}
	return m.UnmarshalBinary(buf)
}

// readHeader consumes the magic and length fields of the next record
func (r *Reader) readHeader() (uint64, error) {
	if r.closed {
		return 0, ErrClosed
	}

	magic := r.header[0:4]
	n, err := io.ReadFull(r.reader, magic)
	r.offset += int64(n)
	if err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("%w: partial magic at offset %d", ErrTruncated, r.offset-int64(n))
		}
		return 0, fmt.Errorf("failed to read record magic: %w", err)
	}

	if got := binary.LittleEndian.Uint32(magic); got != Magic {
		return 0, fmt.Errorf("%w: bad magic 0x%08x at offset %d", ErrCorruption, got, r.offset-4)
	}

	lengthField := r.header[4:12]
	n, err = io.ReadFull(r.reader, lengthField)
	r.offset += int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("%w: partial length at offset %d", ErrTruncated, r.offset-int64(n))
		}
		return 0, fmt.Errorf("failed to read record length: %w", err)
	}

	length := binary.LittleEndian.Uint64(lengthField)
	if length > MaxRecordSize {
		return 0, fmt.Errorf("%w: declared length %d exceeds limit", ErrCorruption, length)
	}
	return length, nil
}

// readPayload fills buf with the payload of the current record
func (r *Reader) readPayload(buf []byte) error {
	n, err := io.ReadFull(r.reader, buf)
	r.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: got %d of %d payload bytes", ErrTruncated, n, len(buf))
		}
		return fmt.Errorf("failed to read record payload: %w", err)
	}
	r.count++
	return nil
}

// Offset returns the number of bytes consumed from the stream
func (r *Reader) Offset() int64 {
	return r.offset
}

// Count returns the number of complete records read
func (r *Reader) Count() int {
	return r.count
}

// Close releases the underlying stream. Further reads fail with ErrClosed.
func (r *Reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	if c, ok := r.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
