// File: pkg/amalgam/merge.go
package amalgam

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"
)

// PathMatcher reports whether an include path matches a configured pattern.
type PathMatcher interface {
	MatchesPath(path string) bool
}

// Options tune the output of a Merger.
type Options struct {
	PragmaOnce        PragmaPolicy // Guard retention policy; empty means PragmaElideAll.
	SeparateFragments bool         // Emit one blank line before each inlined fragment.
	Annotate          bool         // Emit an `// inlined 'a' -> 'b'` comment before each inlined fragment.
	Passthrough       PathMatcher  // Includes matching it are written verbatim; may be nil.
}

// Merger flattens an include graph into a single sink.
type Merger struct {
	source Source
	opts   Options
	logger *zap.Logger
}

// NewMerger creates a Merger reading fragments from source.
func NewMerger(source Source, opts Options, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PragmaOnce == "" {
		opts.PragmaOnce = PragmaElideAll
	}
	return &Merger{
		source: source,
		opts:   opts,
		logger: logger,
	}
}

// frame is one open fragment on the traversal stack.
type frame struct {
	fragment Fragment
	key      string
	depth    int
	line     int
	reader   *bufio.Reader
	closer   io.Closer
}

// run holds everything a single Merge call mutates.
type run struct {
	*Merger
	root   string
	state  *State
	report *Report
	sink   *Sink
	stack  []*frame
}

// Merge writes the flattened content of entry and every fragment it reaches
// to sink, in depth-first pre-order. Each fragment is inlined once, at its
// first include; later includes of the same basename are dropped. The caller
// owns sink and closes it afterwards.
func (m *Merger) Merge(ctx context.Context, entry Fragment, sink *Sink) (*Report, error) {
	r := &run{
		Merger: m,
		root:   entry.Folder,
		state:  NewState(),
		report: &Report{},
		sink:   sink,
	}
	defer r.closeAll()

	m.logger.Debug("Starting merge", zap.String("entry", entry.Path()))

	// The entry is marked up front so a cycle back to it is dropped like any other repeat.
	r.state.Included.Add(entry.Key())
	if err := r.push(ctx, entry, ""); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingFragment, entry.Path(), err)
	}

	for len(r.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top := r.stack[len(r.stack)-1]
		line, readErr := top.reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("error reading fragment %s: %w", top.fragment.Path(), readErr)
		}
		if line == "" {
			r.pop()
			continue
		}

		top.line++
		if top.line == 1 {
			line = StripBOM(line)
		}
		if !utf8.ValidString(line) {
			return nil, fmt.Errorf("%w: %s:%d", ErrInvalidEncoding, top.fragment.Path(), top.line)
		}

		if err := r.processLine(ctx, top, line); err != nil {
			return nil, err
		}
	}

	r.report.Duplicates = r.state.Duplicates
	r.report.PragmaOnce = r.state.PragmaOnce
	r.report.LinesWritten = sink.Lines()

	m.logger.Debug("Merge finished",
		zap.Int("fragments", r.state.Fragments),
		zap.Int("duplicates", r.state.Duplicates),
		zap.Int("pragmaOnce", r.state.PragmaOnce),
		zap.Int("lines", sink.Lines()))
	return r.report, nil
}

// processLine either expands an include or filters the line into the sink.
func (r *run) processLine(ctx context.Context, top *frame, line string) error {
	if rel, ok := ParseInclude(line); ok {
		return r.include(ctx, top, rel, line)
	}

	switch Classify(line) {
	case KindPragmaOnce:
		r.state.PragmaOnce++
		if r.opts.PragmaOnce == PragmaKeepFirst && r.state.PragmaOnce == 1 {
			return r.sink.WriteLine(line)
		}
		return nil
	case KindFoldMarker, KindBanner:
		return nil
	default:
		return r.sink.WriteLine(line)
	}
}

// include handles one recognized include directive found in top.
func (r *run) include(ctx context.Context, top *frame, rel, line string) error {
	folder, name, key := Resolve(top.fragment.Folder, rel)
	target := Fragment{Folder: folder, Name: name}

	if r.isPassthrough(rel, target) {
		r.report.Passthrough++
		r.logger.Debug("Leaving include in place", zap.String("include", rel), zap.String("from", top.fragment.Path()))
		return r.sink.WriteLine(line)
	}

	if !r.state.Included.Add(key) {
		r.state.Duplicates++
		r.logger.Debug("Dropping repeated include",
			zap.String("include", rel),
			zap.String("from", top.fragment.Path()),
			zap.Int("line", top.line))
		return nil
	}

	if r.opts.SeparateFragments {
		if err := r.sink.Separate(); err != nil {
			return err
		}
	}
	if r.opts.Annotate {
		if err := r.sink.WriteLine(fmt.Sprintf("// inlined '%s' -> '%s'\n", top.key, key)); err != nil {
			return err
		}
	}

	if err := r.push(ctx, target, top.key); err != nil {
		return fmt.Errorf("%w: %s (included from %s:%d): %w",
			ErrMissingFragment, target.Path(), top.fragment.Path(), top.line, err)
	}
	return nil
}

// isPassthrough matches the include both as written and relative to the entry folder.
func (r *run) isPassthrough(rel string, target Fragment) bool {
	if r.opts.Passthrough == nil {
		return false
	}
	if r.opts.Passthrough.MatchesPath(rel) {
		return true
	}
	fromRoot, err := filepath.Rel(r.root, target.Path())
	if err != nil {
		return false
	}
	return r.opts.Passthrough.MatchesPath(filepath.ToSlash(fromRoot))
}

// push opens fragment and makes it the current frame.
func (r *run) push(ctx context.Context, fragment Fragment, parent string) error {
	rc, err := r.source.Open(ctx, fragment.Path())
	if err != nil {
		return err
	}

	depth := 0
	if len(r.stack) > 0 {
		depth = r.stack[len(r.stack)-1].depth + 1
	}

	f := &frame{
		fragment: fragment,
		key:      fragment.Key(),
		depth:    depth,
		reader:   bufio.NewReader(rc),
		closer:   rc,
	}
	r.stack = append(r.stack, f)
	r.state.Fragments++
	r.report.Visits = append(r.report.Visits, Visit{
		Fragment: fragment,
		Key:      f.key,
		Depth:    depth,
		Parent:   parent,
	})

	r.logger.Debug("Inlining fragment", zap.String("fragment", fragment.Path()), zap.Int("depth", depth))
	return nil
}

// pop closes the current frame.
func (r *run) pop() {
	top := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	if err := top.closer.Close(); err != nil {
		r.logger.Warn("Failed to close fragment", zap.String("fragment", top.fragment.Path()), zap.Error(err))
	}
}

// closeAll releases frames left open by an aborted merge.
func (r *run) closeAll() {
	for len(r.stack) > 0 {
		r.pop()
	}
}
