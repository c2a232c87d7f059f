package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"amalgam/cmd"
	"amalgam/pkg/amalgam"

	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	logger := cmd.Logger()
	if err != nil {
		if errors.Is(err, amalgam.ErrStale) {
			logger.Error("amalgamation is stale", zap.Error(err))
			syncLogger(logger)
			os.Exit(1)
		}
		logger.Fatal("amalgam execution failed", zap.Error(err))
	}
	syncLogger(logger)
}

// syncLogger flushes the logger when stderr can be synced at all.
func syncLogger(logger *zap.Logger) {
	if !term.IsTerminal(int(os.Stderr.Fd())) && !isRegularFile(os.Stderr) {
		return
	}
	if syncErr := logger.Sync(); syncErr != nil {
		lowerErr := strings.ToLower(syncErr.Error())
		if !strings.Contains(lowerErr, "invalid argument") {
			log.Printf("Logger sync failed: %v", syncErr)
		}
	}
}

// isRegularFile checks if the given file is a regular file.
func isRegularFile(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return fileInfo.Mode().IsRegular()
}
