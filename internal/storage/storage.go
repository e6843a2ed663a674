// Package storage keeps uploaded images (listing photos and avatars) on the
// local filesystem.
//
// A file is accepted only when both its extension and its sniffed content
// type are in the image allow-list and it fits under the size cap. Stored
// files get a random UUID name so client-supplied names never reach the disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes is the upload cap used when none is configured.
const DefaultMaxBytes int64 = 2 << 20

var (
	// ErrUnsupportedType is returned for files outside the image allow-list.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is returned when the upload exceeds the size cap.
	ErrTooLarge = errors.New("image too large")
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("empty upload")
	// ErrInvalidName is returned when Remove is given a path instead of a stored name.
	ErrInvalidName = errors.New("invalid stored name")
)

var allowedExt = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}

// allowedMIME maps sniffed content types to the extension used on disk.
var allowedMIME = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

// AllowedFile reports whether filename carries an allowed image extension.
func AllowedFile(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return allowedExt[ext]
}

// Local stores files in a single directory.
type Local struct {
	dir      string
	maxBytes int64
	keep     map[string]bool
}

// NewLocal creates dir if needed and returns a store rooted there. Names in
// keep (shared defaults such as the stock avatar) are never removed.
func NewLocal(dir string, maxBytes int64, keep ...string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	k := make(map[string]bool, len(keep))
	for _, n := range keep {
		k[n] = true
	}
	return &Local{dir: dir, maxBytes: maxBytes, keep: k}, nil
}

// Dir returns the directory files are written to.
func (l *Local) Dir() string { return l.dir }

// Save validates r and writes it under a fresh name, which is returned.
func (l *Local) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if !AllowedFile(filename) {
		return "", ErrUnsupportedType
	}
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > l.maxBytes {
		return "", ErrTooLarge
	}
	ext, ok := allowedMIME[mimetype.Detect(data).String()]
	if !ok {
		return "", ErrUnsupportedType
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, name)); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file. Missing files and kept names are ignored.
func (l *Local) Remove(_ context.Context, name string) error {
	if name == "" || l.keep[name] {
		return nil
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(l.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
