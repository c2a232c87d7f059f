// File: pkg/amalgam/sink.go
package amalgam

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Sink is the single append-only destination of a run. It collapses runs of
// blank lines and remembers whether the last written line was blank.
type Sink struct {
	buf       *bufio.Writer
	encoder   *transform.Writer // nil when the sink writes without a BOM.
	closer    io.Closer         // nil when the caller owns the underlying writer.
	lastBlank bool
	lines     int
	closed    bool
}

// NewSink wraps w. With bom set, the output starts with a UTF-8 byte order mark.
func NewSink(w io.Writer, bom bool) *Sink {
	s := &Sink{}
	if bom {
		s.encoder = transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
		w = s.encoder
	}
	s.buf = bufio.NewWriter(w)
	return s
}

// CreateSink creates (or truncates) the file at path and returns a BOM-marked sink over it.
func CreateSink(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	s := NewSink(f, true)
	s.closer = f
	return s, nil
}

// WriteLine appends line, which may carry its own terminator. A missing
// terminator is added. Blank lines following a blank line are dropped.
func (s *Sink) WriteLine(line string) error {
	blank := strings.TrimSpace(line) == ""
	if blank && s.lastBlank {
		return nil
	}

	if _, err := s.buf.WriteString(line); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !strings.HasSuffix(line, "\n") {
		if err := s.buf.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	s.lastBlank = blank
	s.lines++
	return nil
}

// Separate emits one blank line unless the output is empty or already ends on one.
func (s *Sink) Separate() error {
	if s.lines == 0 || s.lastBlank {
		return nil
	}
	return s.WriteLine("\n")
}

// LastBlank reports whether the most recently written line was blank.
func (s *Sink) LastBlank() bool {
	return s.lastBlank
}

// Lines returns the number of lines written so far.
func (s *Sink) Lines() int {
	return s.lines
}

// Close flushes all buffered output and closes the underlying file, if the
// sink owns one. Calling Close more than once is a no-op.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.buf.Flush()
	if s.encoder != nil {
		if cerr := s.encoder.Close(); err == nil {
			err = cerr
		}
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}
