package asyncx

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ─── Deferred ────────────────────────────────────────────────────────────────

// Deferred is the write side of a Future. It starts pending and is settled
// exactly once, either with a value (Resolve) or with an error (Reject).
type Deferred[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// NewDeferred creates a pending Deferred.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Resolve settles the Deferred with v. It reports false if the Deferred was
// already settled, in which case v is discarded.
func (d *Deferred[T]) Resolve(v T) bool {
	return d.settle(v, nil)
}

// Reject settles the Deferred with err. It reports false if the Deferred was
// already settled.
func (d *Deferred[T]) Reject(err error) bool {
	var zero T
	return d.settle(zero, err)
}

// Settle resolves or rejects depending on err, mirroring the (T, error) shape
// of ordinary Go calls.
func (d *Deferred[T]) Settle(v T, err error) bool {
	if err != nil {
		return d.Reject(err)
	}
	return d.Resolve(v)
}

func (d *Deferred[T]) settle(v T, err error) bool {
	settled := false
	d.once.Do(func() {
		d.value, d.err = v, err
		close(d.done)
		settled = true
	})
	return settled
}

// Future returns the read side of the Deferred. Every call returns a view of
// the same outcome.
func (d *Deferred[T]) Future() *Future[T] {
	return &Future[T]{
		done: d.done,
		get:  func() (T, error) { return d.value, d.err },
	}
}

// ─── Future ──────────────────────────────────────────────────────────────────

// Future represents a value that will be available asynchronously.
// Obtain one from a Deferred, Run, Resolved, Rejected or Then.
type Future[T any] struct {
	done <-chan struct{}
	get  func() (T, error)
}

// Done returns a channel closed once the Future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the outcome is available without blocking.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the Future settles or ctx is done. A ctx error only ends
// this wait; the underlying computation is not affected.
// Safe to call multiple times and from multiple goroutines.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.get()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitTimeout is Await bounded by d. It returns context.DeadlineExceeded
// when d elapses first.
func (f *Future[T]) AwaitTimeout(ctx context.Context, d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return f.Await(ctx)
}

// Then derives a Future whose value is fn applied to f's value. fn runs at most
// once, lazily, on the first Await after f settles. Errors of f are passed
// through without calling fn. No goroutine is started, so a Future that never
// settles leaks nothing.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	get := sync.OnceValues(func() (U, error) {
		v, err := f.get()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
	return &Future[U]{done: f.done, get: get}
}

// ─── Constructors ────────────────────────────────────────────────────────────

// Run executes fn in a goroutine and returns a Future for its result.
// The goroutine starts immediately. A panic inside fn rejects the Future
// with a *PanicError instead of crashing the process.
func Run[T any](fn func() (T, error)) *Future[T] {
	d := NewDeferred[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.Reject(&PanicError{Value: r})
			}
		}()
		d.Settle(fn())
	}()
	return d.Future()
}

// Resolved returns an already settled Future holding v.
func Resolved[T any](v T) *Future[T] {
	d := NewDeferred[T]()
	d.Resolve(v)
	return d.Future()
}

// Rejected returns an already settled Future holding err.
func Rejected[T any](err error) *Future[T] {
	d := NewDeferred[T]()
	d.Reject(err)
	return d.Future()
}

// Never returns a Future that never settles.
func Never[T any]() *Future[T] {
	return NewDeferred[T]().Future()
}

// PanicError carries a value recovered from a panicking computation.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("asyncx: recovered panic: %v", e.Value)
}

// ─── Await helpers ───────────────────────────────────────────────────────────

// Result holds the outcome of a single settled async operation.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the result carries no error.
func (r Result[T]) OK() bool { return r.Err == nil }

// AwaitAll waits for every future in order and returns one Result per future.
// It stops early only when ctx is done, filling the remaining slots with
// ctx.Err().
func AwaitAll[T any](ctx context.Context, futures ...*Future[T]) []Result[T] {
	results := make([]Result[T], len(futures))
	for i, f := range futures {
		v, err := f.Await(ctx)
		results[i] = Result[T]{Value: v, Err: err}
	}
	return results
}
