// File: pkg/amalgam/execute.go
package amalgam

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"amalgam/pkg/ignore"

	"go.uber.org/zap"
)

// Run performs one amalgamation: it merges the entry fragment of args into
// args.Output and, when requested, writes the include tree to args.Tree. A
// failure partway through leaves the partially written output in place.
func Run(ctx context.Context, args Arguments, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	startTime := time.Now()

	merger, entry, err := prepare(args, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Starting amalgamation", zap.String("entry", entry.Path()), zap.String("output", args.Output))

	if err := ensureDirectory(filepath.Dir(args.Output), logger); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	sink, err := CreateSink(args.Output)
	if err != nil {
		logger.Error("Failed to open output", zap.String("file", args.Output), zap.Error(err))
		return nil, err
	}

	report, mergeErr := merger.Merge(ctx, entry, sink)
	closeErr := sink.Close()
	if mergeErr != nil {
		logger.Error("Merge aborted", zap.String("output", args.Output), zap.Error(mergeErr))
		return nil, mergeErr
	}
	if closeErr != nil {
		logger.Error("Failed to finish output", zap.String("file", args.Output), zap.Error(closeErr))
		return nil, closeErr
	}

	if args.Tree != "" {
		if err := ensureDirectory(filepath.Dir(args.Tree), logger); err != nil {
			return nil, fmt.Errorf("failed to create tree output directory: %w", err)
		}
		if err := writeToFile(args.Tree, []byte(RenderTree(report)), 0o644, logger); err != nil {
			return nil, fmt.Errorf("failed to write include tree: %w", err)
		}
	}

	logger.Info("Amalgamation written",
		zap.String("outputFile", args.Output),
		zap.Int("fragments", len(report.Visits)),
		zap.Int("duplicatesDropped", report.Duplicates),
		zap.Int("passthrough", report.Passthrough),
		zap.Int("lines", report.LinesWritten),
		zap.Duration("elapsed", time.Since(startTime)))
	return report, nil
}

// Check merges into memory and compares the result with the existing output.
// It returns an error wrapping ErrStale when they differ or the output is missing.
func Check(ctx context.Context, args Arguments, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	merger, entry, err := prepare(args, logger)
	if err != nil {
		return nil, err
	}

	var fresh bytes.Buffer
	sink := NewSink(&fresh, true)
	report, err := merger.Merge(ctx, entry, sink)
	if err != nil {
		return nil, err
	}
	if err := sink.Close(); err != nil {
		return nil, err
	}

	existing, err := os.ReadFile(args.Output)
	if errors.Is(err, fs.ErrNotExist) {
		return report, fmt.Errorf("%w: %s does not exist", ErrStale, args.Output)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read existing output: %w", err)
	}

	if !bytes.Equal(existing, fresh.Bytes()) {
		logger.Warn("Amalgamation differs from sources", zap.String("outputFile", args.Output))
		return report, fmt.Errorf("%w: %s", ErrStale, args.Output)
	}

	logger.Info("Amalgamation is up to date", zap.String("outputFile", args.Output))
	return report, nil
}

// prepare validates args and builds the merger and entry fragment for a run.
func prepare(args Arguments, logger *zap.Logger) (*Merger, Fragment, error) {
	if err := args.Validate(); err != nil {
		return nil, Fragment{}, fmt.Errorf("invalid arguments: %w", err)
	}

	devFolder, err := filepath.Abs(args.DevFolder)
	if err != nil {
		logger.Error("Failed to resolve development folder", zap.String("folder", args.DevFolder), zap.Error(err))
		return nil, Fragment{}, fmt.Errorf("failed to get absolute path: %w", err)
	}
	args.DevFolder = devFolder

	var patternFile string
	if args.IgnoreFile != "" {
		patternFile = filepath.Join(devFolder, args.IgnoreFile)
	}
	matcher, err := ignore.Load(patternFile, args.Passthrough, logger)
	if err != nil {
		logger.Error("Failed to load passthrough patterns", zap.Error(err))
		return nil, Fragment{}, fmt.Errorf("failed to load passthrough patterns: %w", err)
	}
	logger.Debug("Loaded passthrough patterns", zap.Int("patterns", matcher.Len()))

	merger := NewMerger(NewStorageSource(nil), Options{
		PragmaOnce:        args.PragmaOnce,
		SeparateFragments: args.SeparateFragments,
		Annotate:          args.Annotate,
		Passthrough:       matcher,
	}, logger)

	return merger, args.EntryFragment(), nil
}

// ensureDirectory ensures a directory exists, creating it if necessary.
func ensureDirectory(path string, logger *zap.Logger) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		logger.Error("Failed to create directory", zap.String("path", path), zap.Error(err))
		return err
	}
	logger.Debug("Ensured directory exists", zap.String("path", path))
	return nil
}

// writeToFile writes data to a file and logs the operation.
func writeToFile(path string, data []byte, perm os.FileMode, logger *zap.Logger) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		logger.Error("Failed to write file", zap.String("path", path), zap.Error(err))
		return err
	}
	logger.Debug("Successfully wrote file", zap.String("path", path))
	return nil
}
