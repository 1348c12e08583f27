// Package fsx abstracts the file stores that debounced writers persist to.
package fsx

import (
	"context"
	"io"
	"time"

	"github.com/Abraxas-365/debouncex/pkg/errx"
)

var fsErrors = errx.NewRegistry("FSX")

var (
	ErrNotFound = fsErrors.Register("NOT_FOUND", errx.TypeNotFound, 0, "File not found")
	ErrRead     = fsErrors.Register("READ", errx.TypeExternal, 0, "Failed to read file")
	ErrWrite    = fsErrors.Register("WRITE", errx.TypeExternal, 0, "Failed to write file")
	ErrDelete   = fsErrors.Register("DELETE", errx.TypeExternal, 0, "Failed to delete file")
)

// NotFound builds an ErrNotFound error for path.
func NotFound(path string) *errx.Error {
	return fsErrors.New(ErrNotFound).WithDetail("path", path)
}

// Wrap builds an error of the given code for path, wrapping cause.
func Wrap(code *errx.ErrorCode, path string, cause error) *errx.Error {
	return fsErrors.NewWithCause(code, cause).WithDetail("path", path)
}

// FileInfo represents information about a file
type FileInfo struct {
	Name        string    // Base name of the file
	Size        int64     // File size in bytes
	ModTime     time.Time // Modification time
	IsDir       bool
	ContentType string // MIME type (when available)
}

// FileReader provides read-only operations
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	ReadFileStream(ctx context.Context, path string) (io.ReadCloser, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// FileWriter provides write operations
type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte) error
	WriteFileStream(ctx context.Context, path string, r io.Reader) error
}

// FileDeleter provides deletion operations
type FileDeleter interface {
	DeleteFile(ctx context.Context, path string) error
}

// FileSystem combines all file operations
type FileSystem interface {
	FileReader
	FileWriter
	FileDeleter
	Join(elem ...string) string
}

// DetectContentType guesses a MIME type from the file extension.
func DetectContentType(ext string) string {
	switch ext {
	case ".json":
		return "application/json"
	case ".txt", ".log":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".xml":
		return "application/xml"
	case ".gz":
		return "application/gzip"
	default:
		return "application/octet-stream"
	}
}
