// Package lineio provides the shared gzip-aware line and byte-stream helpers
// used by both pipelines: detecting gzip inputs by filename, and scanning a
// stream into newline-terminated lines with a reusable buffer.
package lineio

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

// DefaultBufferSize is the read-ahead buffer size used for plain and
// gzip-wrapped input streams.
const DefaultBufferSize = 4 << 20

// maxLineSize bounds a single line read by Scanner. LCA mapping
// strings can be long, so this is generous relative to bufio's 64KiB
// default.
const maxLineSize = 64 << 20

// IsGzipPath reports whether path names a gzip-compressed file by
// extension, case-insensitively.
func IsGzipPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// Opened bundles a file handle with the gzip decoder wrapped around it, if
// any, so both can be released with one Close.
type Opened struct {
	path string
	f    file.File
	r    io.ReadCloser
}

// Open opens path (local or any backend the file package supports) and, if
// IsGzipPath(path), wraps the reader in a gzip decoder. The returned
// io.Reader is ready for line-oriented scanning.
func Open(ctx context.Context, path string) (*Opened, io.Reader, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open", path)
	}
	var r io.Reader = f.Reader(ctx)
	o := &Opened{path: path, f: f}
	if IsGzipPath(path) {
		gz, err := gzip.NewReader(bufio.NewReaderSize(r, DefaultBufferSize))
		if err != nil {
			_ = f.Close(ctx)
			return nil, nil, errors.E(err, "gzip open", path)
		}
		o.r = gz
		return o, gz, nil
	}
	return o, bufio.NewReaderSize(r, DefaultBufferSize), nil
}

// Close releases the gzip decoder (if any) and the underlying file handle.
func (o *Opened) Close(ctx context.Context) error {
	e := errors.Once{}
	if o.r != nil {
		if err := o.r.Close(); err != nil {
			e.Set(errors.E(err, "gzip close", o.path))
		}
	}
	if err := o.f.Close(ctx); err != nil {
		e.Set(errors.E(err, "close", o.path))
	}
	return e.Err()
}

// Scanner reads newline-terminated lines out of r. Each call to Line
// invalidates the byte slice returned by the previous call: callers that
// need a line's bytes to outlive the next call must copy what they need
// before calling Line again.
type Scanner struct {
	b *bufio.Scanner
}

// NewScanner constructs a Scanner over r.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{b: s}
}

// Line returns the next line (without its trailing newline), or ok == false
// at end of stream or on error; check Err() to distinguish the two. A
// trailing line without a final newline is a valid last line.
func (s *Scanner) Line() (line []byte, ok bool) {
	if !s.b.Scan() {
		return nil, false
	}
	return s.b.Bytes(), true
}

// Err returns the error that stopped scanning, if any.
func (s *Scanner) Err() error {
	return s.b.Err()
}
