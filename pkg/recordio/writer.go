package recordio

import (
	"bufio"
	"encoding"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const defaultBufferSize = 64 * 1024

// Writer appends framed records to a sequential sink
type Writer struct {
	sink   io.Writer
	writer *bufio.Writer
	header [HeaderSize]byte
	mutex  sync.Mutex
	offset int64 // bytes accepted so far
	count  int
	closed bool
}

// NewWriter wraps w. The Writer takes ownership of w: Close closes it when it
// implements io.Closer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		sink:   w,
		writer: bufio.NewWriterSize(w, defaultBufferSize),
	}
}

// Create truncates or creates the file at path and returns a Writer for it
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create record file: %w", err)
	}

	return NewWriter(file), nil
}

// WriteRecord appends a single record holding payload
func (w *Writer) WriteRecord(payload []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrClosed
	}

	putHeader(w.header[:], uint64(len(payload)))
	if _, err := w.writer.Write(w.header[:]); err != nil {
		return fmt.Errorf("failed to write record header: %w", err)
	}
	if _, err := w.writer.Write(payload); err != nil {
		return fmt.Errorf("failed to write record payload: %w", err)
	}

	w.offset += EncodedLen(len(payload))
	w.count++
	return nil
}

// Write appends the binary form of m as a single record
func (w *Writer) Write(m encoding.BinaryMarshaler) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return w.WriteRecord(data)
}

// Flush pushes buffered records to the sink
func (w *Writer) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrClosed
	}
	return w.writer.Flush()
}

// Close flushes, syncs file sinks and releases the sink. Further calls fail
// with ErrClosed.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.closed = true

	err := w.writer.Flush()
	if f, ok := w.sink.(*os.File); ok && err == nil {
		err = f.Sync()
	}
	if c, ok := w.sink.(io.Closer); ok {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// Offset returns the number of bytes written, including buffered bytes
func (w *Writer) Offset() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Count returns the number of records written
func (w *Writer) Count() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.count
}
