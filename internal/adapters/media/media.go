// Package media stores uploaded training videos. Stored paths are opaque to
// the rest of the service: nothing re-opens them after Save returns.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/formcoach/internal/domain/apperr"
	"github.com/okian/formcoach/pkg/metrics"
)

// Sentinel kinds for upload errors.
var (
	ErrTooLarge        = fmt.Errorf("%w: upload exceeds size limit", apperr.ErrValidation)
	ErrUploadsDisabled = fmt.Errorf("uploads %w", apperr.ErrUnavailable)
)

// FileStore persists an uploaded file and returns where it was written.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// DiskStore writes uploads under a directory using generated names.
type DiskStore struct {
	dir      string
	maxBytes int64
}

var _ FileStore = (*DiskStore)(nil)

// Option applies a configuration option to the DiskStore.
type Option func(*DiskStore)

// WithMaxBytes caps the size of a single upload.
func WithMaxBytes(n int64) Option {
	return func(d *DiskStore) {
		if n > 0 {
			d.maxBytes = n
		}
	}
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string, opts ...Option) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	d := &DiskStore{dir: dir, maxBytes: 100 << 20}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dir returns the upload directory.
func (d *DiskStore) Dir() string { return d.dir }

// Save copies r into a new file named after a UUID, keeping the original
// extension. A partial file is removed on any failure.
func (d *DiskStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(d.dir, uuid.NewString()+extension(name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, d.maxBytes+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	case n > d.maxBytes:
		_ = os.Remove(path)
		return "", ErrTooLarge
	case closeErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload: %w", closeErr)
	}

	metrics.RecordUpload(n)
	return path, nil
}

// extension returns a lower-cased, sanitized extension of name.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// Unavailable is the FileStore used when uploads are disabled.
type Unavailable struct{}

var _ FileStore = Unavailable{}

// Save always reports ErrUploadsDisabled.
func (Unavailable) Save(context.Context, string, io.Reader) (string, error) {
	return "", ErrUploadsDisabled
}
