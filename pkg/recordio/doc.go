// Package recordio provides append-only framing of opaque byte payloads for
// Infinipic's persisted thumbnail corpus.
//
// # Record Format
//
// Every record is written back to back with no file header:
//
//	[Magic(4)][Length(8)][Payload]
//
// Fields:
//   - Magic: the constant 0x3ED7230A, identical for every record (little-endian)
//   - Length: 64-bit unsigned payload length in bytes (little-endian)
//   - Payload: Length raw bytes, never transformed
//
// The total record size is: 12 bytes (header) + Length
//
// The magic number only detects gross misalignment. There is no checksum, so a
// payload with flipped bits is returned as-is.
//
// # Read Outcomes
//
// Reads distinguish the ways a stream can end:
//   - io.EOF: the stream ended cleanly on a record boundary
//   - ErrCorruption: the sentinel did not match, or the declared length is absurd
//   - ErrTruncated: the stream ended part way through a record
//   - ErrSizeMismatch: a sized read found a record of a different length
//
// Any other error is an I/O failure of the underlying reader. Use errors.Is to
// tell them apart.
//
// # Usage
//
//	w, err := recordio.Create("thumbnails.bin")
//	if err != nil {
//	    return err
//	}
//	if err := w.WriteRecord(payload); err != nil {
//	    return err
//	}
//	if err := w.Close(); err != nil {
//	    return err
//	}
//
//	r, err := recordio.Open("thumbnails.bin")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	for {
//	    data, err := r.ReadRecord()
//	    if recordio.IsEndOfStream(err) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    use(data)
//	}
//
// # Thread Safety
//
// A Writer serialises concurrent WriteRecord calls. A Reader must be used by a
// single goroutine. Neither may be used after Close.
package recordio
