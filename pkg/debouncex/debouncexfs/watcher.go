// Package debouncexfs turns bursts of file system events into batched change
// notifications.
//
// Editors and git checkouts emit many events per logical change. The Watcher
// collects them for a quiet window, merges events per path and hands the
// batch to a Handler once.
package debouncexfs

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Abraxas-365/debouncex/pkg/asyncx"
	"github.com/Abraxas-365/debouncex/pkg/debouncex"
	"github.com/Abraxas-365/debouncex/pkg/logx"
	"github.com/fsnotify/fsnotify"
)

// Change is the merged set of operations seen on one path during a window.
type Change struct {
	Path string
	Op   fsnotify.Op
}

// Handler receives the changes of one window, one entry per path, in the
// order paths were first touched.
type Handler func(ctx context.Context, changes []Change) error

// Watcher watches directories and reports debounced changes.
type Watcher struct {
	fsw        *fsnotify.Watcher
	handler    Handler
	extensions []string
	debounce   []debouncex.Option
	debouncer  *debouncex.Debouncer[Change, struct{}]
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithExtensions only reports files with one of the given extensions (".go").
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) {
		w.extensions = exts
	}
}

// WithDebounce passes options to the underlying debouncer.
func WithDebounce(opts ...debouncex.Option) WatcherOption {
	return func(w *Watcher) {
		w.debounce = append(w.debounce, opts...)
	}
}

// NewWatcher creates a Watcher that calls handler at most once per window.
func NewWatcher(handler Handler, wait time.Duration, opts ...WatcherOption) (*Watcher, error) {
	if handler == nil {
		panic("debouncexfs: handler cannot be nil")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, handler: handler}
	for _, opt := range opts {
		opt(w)
	}
	dopts := append([]debouncex.Option{debouncex.WithName("fs_watcher")}, w.debounce...)
	w.debouncer = debouncex.NewBatch(w.dispatch, wait, dopts...)
	return w, nil
}

// Add watches root and every directory below it, skipping hidden directories
// and vendor.
func (w *Watcher) Add(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && skipDir(info.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run forwards events until ctx is done or the watcher is closed. Pending
// changes are flushed before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debouncer.Flush()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logx.WithError(err).Warn("debouncexfs: watcher error")
		}
	}
}

// Notify records a change as if it came from the file system and returns
// the Future of the batch it joined.
func (w *Watcher) Notify(ctx context.Context, c Change) *asyncx.Future[struct{}] {
	return w.debouncer.Call(ctx, c)
}

// Close stops watching. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.debouncer.Clear()
	return w.fsw.Close()
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
			if err := w.Add(event.Name); err != nil {
				logx.WithError(err).WithField("path", event.Name).Warn("debouncexfs: cannot watch new directory")
			}
			return
		}
	}
	if event.Op == fsnotify.Chmod || !w.matches(event.Name) {
		return
	}
	w.Notify(ctx, Change{Path: event.Name, Op: event.Op})
}

func (w *Watcher) matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	return slices.Contains(w.extensions, filepath.Ext(path))
}

func (w *Watcher) dispatch(ctx context.Context, batch []Change) ([]struct{}, error) {
	changes := Merge(batch)
	logx.WithContext(ctx).WithFields(logx.Fields{
		"events": len(batch),
		"paths":  len(changes),
	}).Debug("debouncexfs: dispatching changes")

	if err := w.handler(ctx, changes); err != nil {
		return nil, err
	}
	return make([]struct{}, len(batch)), nil
}

// Merge collapses changes to one entry per path, or-ing their operations.
func Merge(batch []Change) []Change {
	index := make(map[string]int, len(batch))
	out := make([]Change, 0, len(batch))
	for _, c := range batch {
		if i, ok := index[c.Path]; ok {
			out[i].Op |= c.Op
			continue
		}
		index[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor"
}
