// Package scanner enumerates candidate images for the thumbnail corpus.
package scanner

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExtensions are matched case-sensitively against file names
var DefaultExtensions = []string{".jpg", ".jpeg"}

// Scanner walks a directory tree in lexical order
type Scanner struct {
	root       string
	blacklist  map[string]struct{}
	patterns   *ignore.GitIgnore
	extensions []string
}

// Option configures a Scanner
type Option func(*Scanner)

// WithExtensions replaces the accepted file name suffixes
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		s.extensions = exts
	}
}

// New creates a scanner for root. Each blacklist entry is either a directory
// path, compared to walked paths exactly, or a gitignore-style pattern
// evaluated relative to root.
func New(root string, blacklist []string, opts ...Option) *Scanner {
	s := &Scanner{
		root:       root,
		blacklist:  make(map[string]struct{}, len(blacklist)),
		patterns:   ignore.CompileIgnoreLines(blacklist...),
		extensions: DefaultExtensions,
	}
	for _, entry := range blacklist {
		s.blacklist[entry] = struct{}{}
		s.blacklist[filepath.Clean(entry)] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory being scanned
func (s *Scanner) Root() string {
	return s.root
}

// Paths lazily yields every matching file under the root in lexical order.
// Symlinked directories are followed; a link back to a directory already being
// walked is skipped. Directory read errors are yielded with an empty path and
// the walk continues past them. The sequence can be iterated any number of
// times.
func (s *Scanner) Paths(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.walk(ctx, s.root, make(map[string]struct{}), yield)
	}
}

// walk visits dir and reports whether the walk should go on. ancestors holds
// the resolved paths of the directories on the current descent.
func (s *Scanner) walk(ctx context.Context, dir string, ancestors map[string]struct{}, yield func(string, error) bool) bool {
	if err := ctx.Err(); err != nil {
		yield("", err)
		return false
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return yield("", err)
	}
	if _, loop := ancestors[resolved]; loop {
		return true
	}
	ancestors[resolved] = struct{}{}
	defer delete(ancestors, resolved)

	// ReadDir returns the entries it managed to read alongside the error
	entries, err := os.ReadDir(dir)
	if err != nil && !yield("", err) {
		return false
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			yield("", err)
			return false
		}

		path := filepath.Join(dir, entry.Name())
		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			// a dangling link is treated as a file
			if info, err := os.Stat(path); err == nil {
				isDir = info.IsDir()
			}
		}

		if isDir {
			if s.excluded(path, true) {
				continue
			}
			if !s.walk(ctx, path, ancestors, yield) {
				return false
			}
			continue
		}
		if !s.accepts(path) || s.excluded(path, false) {
			continue
		}
		if !yield(path, nil) {
			return false
		}
	}
	return true
}

// Collect gathers every matching path. The first walk error is returned
// together with the paths found so far.
func (s *Scanner) Collect(ctx context.Context) ([]string, error) {
	var paths []string
	for path, err := range s.Paths(ctx) {
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Scanner) accepts(path string) bool {
	for _, ext := range s.extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (s *Scanner) excluded(path string, dir bool) bool {
	if _, ok := s.blacklist[path]; ok {
		return true
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}
	return s.patterns.MatchesPath(rel)
}

// SplitList parses a comma-separated list, dropping empty items
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
