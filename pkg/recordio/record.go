package recordio

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	// Magic marks the start of every record.
	Magic uint32 = 0x3ed7230a

	// HeaderSize is the size of the magic and length fields.
	HeaderSize = 12

	// MaxRecordSize bounds the declared payload length accepted by a Reader.
	// Anything larger is treated as corruption rather than allocated.
	MaxRecordSize = 64 << 20
)

// Errors
var (
	ErrCorruption   = &RecordError{"record corruption detected"}
	ErrTruncated    = &RecordError{"record truncated"}
	ErrSizeMismatch = &RecordError{"record size mismatch"}
	ErrClosed       = &RecordError{"record stream closed"}
)

// RecordError represents a framing error
type RecordError struct {
	Message string
}

func (e *RecordError) Error() string {
	return e.Message
}

// IsEndOfStream reports whether err marks a clean end of the record stream.
func IsEndOfStream(err error) bool {
	return errors.Is(err, io.EOF)
}

// putHeader fills buf[:HeaderSize] with the record header for a payload of n bytes.
func putHeader(buf []byte, n uint64) {
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint64(buf[4:12], n)
}

// EncodedLen returns the number of bytes a record with an n byte payload occupies.
func EncodedLen(n int) int64 {
	return HeaderSize + int64(n)
}
