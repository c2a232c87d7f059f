package amalgam

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"amalgam/pkg/ignore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource serves fragments from a map keyed by fragment path.
type memSource struct {
	files  map[string]string
	opened []string
}

func newMemSource(files map[string]string) *memSource {
	normalized := make(map[string]string, len(files))
	for name, content := range files {
		normalized[filepath.FromSlash(name)] = content
	}
	return &memSource{files: normalized}
}

func (s *memSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	content, ok := s.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	s.opened = append(s.opened, path)
	return io.NopCloser(strings.NewReader(content)), nil
}

func mergeString(t *testing.T, files map[string]string, opts Options) (string, *Report) {
	t.Helper()

	var out bytes.Buffer
	sink := NewSink(&out, false)
	merger := NewMerger(newMemSource(files), opts, nil)

	report, err := merger.Merge(context.Background(), Fragment{Folder: "root", Name: "a.h"}, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	return out.String(), report
}

func TestMerge(t *testing.T) {
	tests := []struct {
		description string
		files       map[string]string
		opts        Options
		expected    string
	}{
		{
			description: "subdirectory include with guard elided",
			files: map[string]string{
				"root/a.h":     "line1\n#include \"sub/b.h\"\nline2\n",
				"root/sub/b.h": "blineA\n#pragma once\nblineB\n",
			},
			expected: "line1\nblineA\nblineB\nline2\n",
		},
		{
			description: "repeated include keeps first position",
			files: map[string]string{
				"root/a.h": "#include \"x.h\"\n#include \"y.h\"\n",
				"root/y.h": "y1\n#include \"x.h\"\ny2\n",
				"root/x.h": "x\n",
			},
			expected: "x\ny1\ny2\n",
		},
		{
			description: "transitive include reached first",
			files: map[string]string{
				"root/a.h": "#include \"y.h\"\n#include \"x.h\"\n",
				"root/y.h": "y1\n#include \"x.h\"\ny2\n",
				"root/x.h": "x\n",
			},
			expected: "y1\nx\ny2\n",
		},
		{
			description: "cycle back to the entry is dropped",
			files: map[string]string{
				"root/a.h": "a1\n#include \"b.h\"\na2\n",
				"root/b.h": "b1\n#include \"c.h\"\nb2\n",
				"root/c.h": "c1\n#include \"a.h\"\nc2\n",
			},
			expected: "a1\nb1\nc1\nc2\nb2\na2\n",
		},
		{
			description: "nested folders resolve against the including fragment",
			files: map[string]string{
				"root/a.h":               "#include \"detail/b.h\"\n",
				"root/detail/b.h":        "b\n#include \"shared/c.h\"\n",
				"root/detail/shared/c.h": "c\n",
			},
			expected: "b\nc\n",
		},
		{
			description: "dedup keys on basename only",
			files: map[string]string{
				"root/a.h":        "#include \"one/util.h\"\n#include \"two/util.h\"\n",
				"root/one/util.h": "one\n",
				"root/two/util.h": "two\n",
			},
			expected: "one\n",
		},
		{
			description: "keep-first retains the first guard only",
			files: map[string]string{
				"root/a.h": "#pragma once\n#include \"b.h\"\n",
				"root/b.h": "#pragma once\nb\n",
			},
			opts:     Options{PragmaOnce: PragmaKeepFirst},
			expected: "#pragma once\nb\n",
		},
		{
			description: "fold markers and banners are elided",
			files: map[string]string{
				"root/a.h": "//------------------------------\ncode\n////////////////////\n#pragma region Foo\n\t// - - - - - - - - - - - -\n#pragma endregion\n#pragma warning(push)\n",
			},
			expected: "code\n#pragma warning(push)\n",
		},
		{
			description: "blank runs collapse across fragments",
			files: map[string]string{
				"root/a.h": "a\n\n\n#include \"b.h\"\n\n",
				"root/b.h": "\n\nb\n\n\n",
			},
			expected: "a\n\nb\n\n",
		},
		{
			description: "separator before each inlined fragment",
			files: map[string]string{
				"root/a.h": "a\n#include \"b.h\"\nc\n",
				"root/b.h": "b\n",
			},
			opts:     Options{SeparateFragments: true},
			expected: "a\n\nb\nc\n",
		},
		{
			description: "separator not doubled after a blank line",
			files: map[string]string{
				"root/a.h": "a\n\n#include \"b.h\"\nc\n",
				"root/b.h": "b\n",
			},
			opts:     Options{SeparateFragments: true},
			expected: "a\n\nb\nc\n",
		},
		{
			description: "annotation names both fragments",
			files: map[string]string{
				"root/a.h": "a\n#include \"b.h\"\nc\n",
				"root/b.h": "b\n",
			},
			opts:     Options{Annotate: true},
			expected: "a\n// inlined 'a.h' -> 'b.h'\nb\nc\n",
		},
		{
			description: "byte order marks are stripped",
			files: map[string]string{
				"root/a.h": "\uFEFFa\n#include \"b.h\"\n",
				"root/b.h": "\uFEFFb\n",
			},
			expected: "a\nb\n",
		},
		{
			description: "line terminators and indentation are preserved",
			files: map[string]string{
				"root/a.h": "\ta\r\n#include \"b.h\"\r\n",
				"root/b.h": "  b\r\n",
			},
			expected: "\ta\r\n  b\r\n",
		},
		{
			description: "missing final newline is completed",
			files: map[string]string{
				"root/a.h": "a\n#include \"b.h\"\nc",
				"root/b.h": "b",
			},
			expected: "a\nb\nc\n",
		},
		{
			description: "unrecognized include forms pass through",
			files: map[string]string{
				"root/a.h": "#include <new>\n// #include \"b.h\"\n#include HEADER\n#include \"b.h\" extra\n",
			},
			expected: "#include <new>\n// #include \"b.h\"\n#include HEADER\n#include \"b.h\" extra\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			actual, _ := mergeString(t, tc.files, tc.opts)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestMerge_Report(t *testing.T) {
	files := map[string]string{
		"root/a.h": "#pragma once\n#include \"x.h\"\n#include \"y.h\"\n",
		"root/y.h": "#pragma once\ny1\n#include \"x.h\"\ny2\n",
		"root/x.h": "#pragma once\nx\n",
	}

	actual, report := mergeString(t, files, Options{})
	assert.Equal(t, "x\ny1\ny2\n", actual)

	var keys []string
	for _, v := range report.Visits {
		keys = append(keys, v.Key)
	}
	assert.Equal(t, []string{"a.h", "x.h", "y.h"}, keys)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 3, report.PragmaOnce)
	assert.Equal(t, 3, report.LinesWritten)
	assert.Equal(t, "a.h", report.Visits[2].Parent)
	assert.Equal(t, 1, report.Visits[2].Depth)
}

func TestMerge_Deterministic(t *testing.T) {
	files := map[string]string{
		"root/a.h":     "a\n#include \"sub/b.h\"\n#include \"c.h\"\n",
		"root/sub/b.h": "b\n#include \"c.h\"\n",
		"root/sub/c.h": "c\n",
	}

	first, _ := mergeString(t, files, Options{})
	second, _ := mergeString(t, files, Options{})
	assert.Equal(t, first, second)
	assert.Equal(t, "a\nb\nc\n", first)
}

func TestMerge_NoConsecutiveBlankLines(t *testing.T) {
	files := map[string]string{
		"root/a.h": "\n\na\n\n//----------------\n\n#include \"b.h\"\n\n\n#pragma once\n\n",
		"root/b.h": "\n#pragma region x\n\nb\n\n#pragma endregion\n\n",
	}

	actual, _ := mergeString(t, files, Options{SeparateFragments: true})
	assert.NotContains(t, actual, "\n\n\n")
	assert.False(t, strings.HasPrefix(actual, "\n\n"))
}

func TestMerge_MissingFragment(t *testing.T) {
	source := newMemSource(map[string]string{
		"root/a.h": "a\n#include \"gone.h\"\nb\n",
	})
	var out bytes.Buffer
	sink := NewSink(&out, false)

	_, err := NewMerger(source, Options{}, nil).Merge(context.Background(), Fragment{Folder: "root", Name: "a.h"}, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingFragment)
	assert.Contains(t, err.Error(), "gone.h")
	assert.Contains(t, err.Error(), "a.h:2")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, sink.Close())
	assert.Equal(t, "a\n", out.String())
}

func TestMerge_MissingEntry(t *testing.T) {
	var out bytes.Buffer
	_, err := NewMerger(newMemSource(nil), Options{}, nil).Merge(context.Background(), Fragment{Folder: "root", Name: "a.h"}, NewSink(&out, false))
	assert.ErrorIs(t, err, ErrMissingFragment)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMerge_InvalidEncoding(t *testing.T) {
	source := newMemSource(map[string]string{
		"root/a.h": "ok\n#include \"b.h\"\n",
		"root/b.h": "caf\xe9\nafter\n",
	})
	var out bytes.Buffer
	sink := NewSink(&out, true)

	_, err := NewMerger(source, Options{}, nil).Merge(context.Background(), Fragment{Folder: "root", Name: "a.h"}, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Contains(t, err.Error(), "b.h:1")

	require.NoError(t, sink.Close())
	assert.Equal(t, "\xef\xbb\xbfok\n", out.String())
	assert.NotContains(t, out.String(), "\uFFFD")
}

func TestMerge_Passthrough(t *testing.T) {
	matcher := ignore.NewMatcher(nil)
	matcher.AddLines("", "optional/*.h")

	source := newMemSource(map[string]string{
		"root/a.h": "a\n#include \"optional/user.h\"\n#include \"optional/user.h\"\n",
	})
	var out bytes.Buffer
	sink := NewSink(&out, false)

	report, err := NewMerger(source, Options{Passthrough: matcher}, nil).Merge(context.Background(), Fragment{Folder: "root", Name: "a.h"}, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, "a\n#include \"optional/user.h\"\n#include \"optional/user.h\"\n", out.String())
	assert.Equal(t, 2, report.Passthrough)
	assert.Equal(t, []string{filepath.FromSlash("root/a.h")}, source.opened)
}

func TestMerge_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := newMemSource(map[string]string{"root/a.h": "a\n"})
	_, err := NewMerger(source, Options{}, nil).Merge(ctx, Fragment{Folder: "root", Name: "a.h"}, NewSink(io.Discard, false))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMerge_StorageSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.h"), []byte("line1\n#include \"sub/b.h\"\nline2\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.h"), []byte("blineA\n#pragma once\nblineB\n"), 0o600))

	var out bytes.Buffer
	sink := NewSink(&out, false)
	_, err := NewMerger(NewStorageSource(nil), Options{}, nil).Merge(context.Background(), Fragment{Folder: dir, Name: "a.h"}, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, "line1\nblineA\nblineB\nline2\n", out.String())
}
