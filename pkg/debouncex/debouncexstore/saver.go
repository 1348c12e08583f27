// Package debouncexstore persists the latest value of a frequently updated
// document, writing at most once per debounce window.
package debouncexstore

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/Abraxas-365/debouncex/pkg/asyncx"
	"github.com/Abraxas-365/debouncex/pkg/debouncex"
	"github.com/Abraxas-365/debouncex/pkg/errx"
	"github.com/Abraxas-365/debouncex/pkg/fsx"
	"github.com/Abraxas-365/debouncex/pkg/logx"
)

var storeErrors = errx.NewRegistry("DEBOUNCE_STORE")

var (
	ErrEncode = storeErrors.Register("ENCODE", errx.TypeValidation, 0, "Snapshot could not be encoded")
)

// SaveResult describes the write that persisted a value.
type SaveResult struct {
	Path     string    `json:"path"`
	Bytes    int       `json:"bytes"`
	Revision int64     `json:"revision"`
	SavedAt  time.Time `json:"saved_at"`
}

// Saver writes values of type T as JSON to a single path. Only the last value
// saved within a window is written; every Save of that window resolves to the
// same SaveResult.
type Saver[T any] struct {
	fs        fsx.FileWriter
	path      string
	revision  atomic.Int64
	debouncer *debouncex.Debouncer[T, SaveResult]
}

// NewSaver returns a Saver writing to path on fs.
func NewSaver[T any](fs fsx.FileWriter, path string, wait time.Duration, opts ...debouncex.Option) *Saver[T] {
	s := &Saver[T]{fs: fs, path: path}
	opts = append([]debouncex.Option{debouncex.WithName("saver:" + path)}, opts...)
	s.debouncer = debouncex.New(s.write, wait, opts...)
	return s
}

// Save schedules v to be written.
func (s *Saver[T]) Save(ctx context.Context, v T) *asyncx.Future[SaveResult] {
	return s.debouncer.Call(ctx, v)
}

// Flush writes the pending value now.
func (s *Saver[T]) Flush() {
	s.debouncer.Flush()
}

// Discard drops the pending value without writing it.
func (s *Saver[T]) Discard() {
	s.debouncer.Clear()
}

// Revision returns the number of writes performed so far.
func (s *Saver[T]) Revision() int64 {
	return s.revision.Load()
}

func (s *Saver[T]) write(ctx context.Context, v T) (SaveResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return SaveResult{}, storeErrors.NewWithCause(ErrEncode, err)
	}
	if err := s.fs.WriteFile(ctx, s.path, data); err != nil {
		return SaveResult{}, err
	}

	res := SaveResult{
		Path:     s.path,
		Bytes:    len(data),
		Revision: s.revision.Add(1),
		SavedAt:  s.debouncer.Clock().Now(),
	}
	logx.WithContext(ctx).WithFields(logx.Fields{
		"path":     res.Path,
		"bytes":    res.Bytes,
		"revision": res.Revision,
	}).Info("debouncexstore: snapshot saved")
	return res, nil
}
