package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ssargent/infinipic/pkg/recordio"
	"github.com/ssargent/infinipic/pkg/thumbnail"
)

// RestoreResult describes how a restore ended
type RestoreResult struct {
	Loaded    int
	BytesRead int64
	// Stop is nil when the stream ended cleanly, otherwise the read error
	// that ended the restore. Records before it are kept.
	Stop      error
	Truncated bool
	Duration  time.Duration
}

// Clean reports whether every byte of the stream was a complete record
func (r *RestoreResult) Clean() bool {
	return r.Stop == nil
}

// StopReason names the condition that ended the restore
func (r *RestoreResult) StopReason() string {
	switch {
	case r.Stop == nil:
		return "eof"
	case errors.Is(r.Stop, recordio.ErrTruncated):
		return "truncated"
	case errors.Is(r.Stop, recordio.ErrSizeMismatch):
		return "size_mismatch"
	case errors.Is(r.Stop, recordio.ErrCorruption):
		return "corruption"
	default:
		return "io_error"
	}
}

// Persist writes every thumbnail to path. The file is written beside path and
// renamed over it once complete.
func (c *Corpus) Persist(path string) error {
	tmp := path + ".tmp"

	w, err := recordio.Create(tmp)
	if err != nil {
		return err
	}
	if err := c.writeAll(w); err != nil {
		_ = w.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close corpus file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move corpus file into place: %w", err)
	}

	c.logger.Info().
		Str("path", path).
		Int("thumbnails", len(c.thumbnails)).
		Msg("corpus persisted")
	return nil
}

// WriteTo writes every thumbnail to dst as framed records
func (c *Corpus) WriteTo(dst io.Writer) (int64, error) {
	w := recordio.NewWriter(writerOnly{dst})
	if err := c.writeAll(w); err != nil {
		return w.Offset(), err
	}
	if err := w.Flush(); err != nil {
		return w.Offset(), err
	}
	return w.Offset(), nil
}

func (c *Corpus) writeAll(w *recordio.Writer) error {
	buf := make([]byte, 0, thumbnail.EncodedSize)
	for i := range c.thumbnails {
		var err error
		buf, err = c.thumbnails[i].AppendBinary(buf[:0])
		if err != nil {
			return err
		}
		if err := w.WriteRecord(buf); err != nil {
			return fmt.Errorf("failed to write thumbnail %d: %w", i, err)
		}
	}
	return nil
}

// Restore replaces the corpus with the thumbnails stored at path. Reading
// stops at the first record that cannot be read; that condition is reported
// in the result, not as an error. Only failing to open path is an error.
func (c *Corpus) Restore(path string) (*RestoreResult, error) {
	r, err := recordio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	result := c.restore(r)
	c.logger.Info().
		Str("path", path).
		Int("thumbnails", result.Loaded).
		Dur("duration", result.Duration).
		Msg("corpus restored")
	return result, nil
}

// RestoreFrom replaces the corpus with the thumbnails read from src
func (c *Corpus) RestoreFrom(src io.Reader) (*RestoreResult, error) {
	return c.restore(recordio.NewReader(readerOnly{src})), nil
}

func (c *Corpus) restore(r *recordio.Reader) *RestoreResult {
	start := time.Now()
	restored := make([]thumbnail.Thumbnail, 0, 1024)
	var buf [thumbnail.EncodedSize]byte

	var stop error
	for {
		if err := r.ReadSized(buf[:]); err != nil {
			if !recordio.IsEndOfStream(err) {
				stop = err
			}
			break
		}
		restored = append(restored, thumbnail.Decode(&buf))
	}

	c.thumbnails = restored

	result := &RestoreResult{
		Loaded:    len(restored),
		BytesRead: r.Offset(),
		Stop:      stop,
		Truncated: errors.Is(stop, recordio.ErrTruncated),
		Duration:  time.Since(start),
	}
	if stop != nil {
		c.logger.Warn().
			Err(stop).
			Int("thumbnails", result.Loaded).
			Int64("offset", result.BytesRead).
			Msg("corpus restore stopped early")
	}
	c.metrics.RecordRestore(result.Loaded, result.StopReason())
	return result
}

// writerOnly and readerOnly hide Close so recordio leaves caller-owned
// streams open
type writerOnly struct{ io.Writer }

type readerOnly struct{ io.Reader }
