// Package thumbcache remembers decoded thumbnails between corpus builds so
// unchanged images are not decoded again.
package thumbcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/ssargent/infinipic/pkg/thumbnail"
)

const (
	markerThumbnail byte = 'T'
	markerRejected  byte = 'R'
)

// Entry is a cached processing result for one image file
type Entry struct {
	Rejected  bool // the image failed the aspect check
	Thumbnail thumbnail.Thumbnail
}

// Cache is a pebble-backed map from image file identity to Entry
type Cache struct {
	db *pebble.DB
}

// Open opens or creates the cache in dir
func Open(dir string, logger zerolog.Logger) (*Cache, error) {
	db, err := pebble.Open(dir, &pebble.Options{Logger: pebbleLogger{logger}})
	if err != nil {
		return nil, fmt.Errorf("failed to open thumbnail cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Key identifies a file by path, size and modification time
func Key(path string, info fs.FileInfo) []byte {
	key := make([]byte, 0, len(path)+1+16)
	key = append(key, path...)
	key = append(key, 0)
	key = binary.BigEndian.AppendUint64(key, uint64(info.Size()))
	key = binary.BigEndian.AppendUint64(key, uint64(info.ModTime().UnixNano()))
	return key
}

// Get looks up key. The boolean is false when nothing is cached.
func (c *Cache) Get(key []byte) (Entry, bool, error) {
	value, closer, err := c.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	defer closer.Close()

	if len(value) == 1 && value[0] == markerRejected {
		return Entry{Rejected: true}, true, nil
	}
	if len(value) != 1+thumbnail.EncodedSize || value[0] != markerThumbnail {
		// Unknown layout, treat as a miss and let the caller overwrite it
		return Entry{}, false, nil
	}

	var e Entry
	if err := e.Thumbnail.UnmarshalBinary(value[1:]); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// PutThumbnail caches an accepted thumbnail
func (c *Cache) PutThumbnail(key []byte, t *thumbnail.Thumbnail) error {
	value := make([]byte, 1, 1+thumbnail.EncodedSize)
	value[0] = markerThumbnail
	value, err := t.AppendBinary(value)
	if err != nil {
		return err
	}
	return c.db.Set(key, value, pebble.NoSync)
}

// PutRejected caches an aspect ratio rejection
func (c *Cache) PutRejected(key []byte) error {
	return c.db.Set(key, []byte{markerRejected}, pebble.NoSync)
}

// Close flushes and closes the cache
func (c *Cache) Close() error {
	if err := c.db.Flush(); err != nil {
		_ = c.db.Close()
		return err
	}
	return c.db.Close()
}

// pebbleLogger routes pebble's log output through zerolog
type pebbleLogger struct {
	logger zerolog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatal().Msgf(format, args...)
}
