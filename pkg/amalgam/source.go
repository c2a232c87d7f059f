package amalgam

import (
	"context"
	"io"

	"github.com/viant/afs"
)

// Source opens fragments for reading.
type Source interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// StorageSource reads fragments through an afs storage service, so a fragment
// tree may be addressed by plain path or by any afs URL scheme.
type StorageSource struct {
	fs afs.Service
}

// NewStorageSource returns a Source backed by fs, or by a fresh afs service when fs is nil.
func NewStorageSource(fs afs.Service) *StorageSource {
	if fs == nil {
		fs = afs.New()
	}
	return &StorageSource{fs: fs}
}

// Open implements Source.
func (s *StorageSource) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return s.fs.OpenURL(ctx, path)
}
