// Package fsxlocal implements fsx.FileSystem on the local disk.
package fsxlocal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/debouncex/pkg/errx"
	"github.com/Abraxas-365/debouncex/pkg/fsx"
)

// FileSystem stores files below a base directory.
type FileSystem struct {
	basePath string
}

var _ fsx.FileSystem = (*FileSystem)(nil)

// New creates the base directory if needed and returns a FileSystem rooted
// there.
func New(basePath string) (*FileSystem, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	return &FileSystem{basePath: abs}, nil
}

// BasePath returns the absolute root directory.
func (fs *FileSystem) BasePath() string {
	return fs.basePath
}

func (fs *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(fs.fullPath(path))
	if err != nil {
		return nil, fs.mapErr(fsx.ErrRead, path, err)
	}
	return data, nil
}

func (fs *FileSystem) ReadFileStream(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(fs.fullPath(path))
	if err != nil {
		return nil, fs.mapErr(fsx.ErrRead, path, err)
	}
	return f, nil
}

func (fs *FileSystem) Stat(ctx context.Context, path string) (fsx.FileInfo, error) {
	full := fs.fullPath(path)
	info, err := os.Stat(full)
	if err != nil {
		return fsx.FileInfo{}, fs.mapErr(fsx.ErrRead, path, err)
	}
	return fsx.FileInfo{
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		ContentType: fsx.DetectContentType(filepath.Ext(full)),
	}, nil
}

func (fs *FileSystem) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(fs.fullPath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fsx.Wrap(fsx.ErrRead, path, err)
}

// WriteFile writes data through a temporary file and a rename, so readers
// never observe a partial snapshot.
func (fs *FileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	full := fs.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fsx.Wrap(fsx.ErrWrite, path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*")
	if err != nil {
		return fsx.Wrap(fsx.ErrWrite, path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fsx.Wrap(fsx.ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fsx.Wrap(fsx.ErrWrite, path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fsx.Wrap(fsx.ErrWrite, path, err)
	}
	return nil
}

func (fs *FileSystem) WriteFileStream(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fsx.Wrap(fsx.ErrWrite, path, err)
	}
	return fs.WriteFile(ctx, path, data)
}

func (fs *FileSystem) DeleteFile(ctx context.Context, path string) error {
	if err := os.Remove(fs.fullPath(path)); err != nil && !os.IsNotExist(err) {
		return fsx.Wrap(fsx.ErrDelete, path, err)
	}
	return nil
}

func (fs *FileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// fullPath resolves path below the base directory. Leading separators and
// ".." segments cannot escape it.
func (fs *FileSystem) fullPath(path string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(path, "/"))
	return filepath.Join(fs.basePath, clean)
}

func (fs *FileSystem) mapErr(code *errx.ErrorCode, path string, err error) error {
	if os.IsNotExist(err) {
		return fsx.NotFound(path)
	}
	return fsx.Wrap(code, path, err)
}
