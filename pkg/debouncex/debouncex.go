package debouncex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abraxas-365/debouncex/pkg/asyncx"
	"github.com/Abraxas-365/debouncex/pkg/logx"
	"github.com/google/uuid"
)

// Func is the function wrapped in direct mode. It receives the arguments of a
// single call.
type Func[A, R any] func(ctx context.Context, args A) (R, error)

// BatchFunc is the function wrapped in accumulate mode. It receives the
// arguments of every call of a batch, in call order, and must return exactly
// one result per element, in the same order.
type BatchFunc[A, R any] func(ctx context.Context, batch []A) ([]R, error)

// Debouncer coalesces calls made within a time window into one invocation of
// the wrapped function while still giving every caller its own Future.
//
// All methods are safe for concurrent use. The wrapped function may call back
// into the same Debouncer; such calls join the next batch, never the one being
// flushed.
type Debouncer[A, R any] struct {
	fn         Func[A, R]
	batchFn    BatchFunc[A, R]
	accumulate bool
	opts       Options

	// All further fields are protected by mu
	mu         sync.Mutex
	called     bool
	lastCallAt time.Time
	pending    []A
	ctx        context.Context
	deferred   *asyncx.Deferred[[]R]
	batchID    string
	timer      Timer
	gen        uint64
	first      *asyncx.Future[R]
}

// batch is the state detached from a Debouncer when it flushes.
type batch[A, R any] struct {
	id       string
	ctx      context.Context
	args     []A
	deferred *asyncx.Deferred[[]R]
}

// New wraps fn in direct mode: a trailing flush invokes fn once with the
// arguments of the last call of the batch, and every call of the batch
// resolves to that single result.
func New[A, R any](fn Func[A, R], wait time.Duration, opts ...Option) *Debouncer[A, R] {
	if fn == nil {
		panic("debouncex: fn cannot be nil")
	}
	d := newDebouncer[A, R](wait, opts)
	d.fn = fn
	return d
}

// NewBatch wraps fn in accumulate mode: a trailing flush invokes fn once with
// the arguments of every call of the batch, and each call resolves to the
// result at its own position.
func NewBatch[A, R any](fn BatchFunc[A, R], wait time.Duration, opts ...Option) *Debouncer[A, R] {
	if fn == nil {
		panic("debouncex: fn cannot be nil")
	}
	d := newDebouncer[A, R](wait, opts)
	d.batchFn = fn
	d.accumulate = true
	return d
}

func newDebouncer[A, R any](wait time.Duration, opts []Option) *Debouncer[A, R] {
	o := defaultOptions(wait)
	for _, opt := range opts {
		opt(&o)
	}

	if !o.Leading && !o.Trailing {
		o.Logger.WithField("name", o.Name).
			Warn("debouncex: leading and trailing are both disabled, calls will never settle")
	}

	return &Debouncer[A, R]{opts: o}
}

// Call registers a call with args and returns the Future of its result.
//
// A cold call (the first one, or one arriving more than the window after the
// previous call) invokes the function immediately when the leading edge is
// enabled. Any other call joins the pending batch and pushes the trailing
// flush back to a full window from now. With the trailing edge disabled such
// calls share the Future of the last leading invocation.
//
// ctx is handed to the wrapped function. A batch runs with the context of its
// last call, detached from that call's cancellation.
func (d *Debouncer[A, R]) Call(ctx context.Context, args A) *asyncx.Future[R] {
	if ctx == nil {
		ctx = context.Background()
	}
	wait := d.wait()

	d.mu.Lock()
	now := d.opts.Clock.Now()
	cold := !d.called || now.Sub(d.lastCallAt) > wait
	d.called = true
	d.lastCallAt = now

	if cold && d.opts.Leading {
		fut := d.lead(ctx, args)
		d.first = fut
		d.mu.Unlock()
		return fut
	}

	if !d.opts.Trailing {
		fut := d.first
		d.mu.Unlock()
		if fut == nil {
			return asyncx.Never[R]()
		}
		return fut
	}

	if d.deferred == nil {
		d.deferred = asyncx.NewDeferred[[]R]()
		d.batchID = uuid.NewString()
	}
	d.pending = append(d.pending, args)
	index := len(d.pending) - 1
	d.ctx = ctx
	d.schedule(wait)

	batchFuture := d.deferred.Future()
	id := d.batchID
	d.mu.Unlock()

	d.logger().WithFields(logx.Fields{
		"batch_id": id,
		"size":     index + 1,
		"wait":     wait.String(),
	}).Trace("debouncex: call joined batch")

	if !d.accumulate {
		index = 0
	}
	return asyncx.Then(batchFuture, func(results []R) (R, error) {
		return pick(results, index)
	})
}

// Flush invokes the function for the pending batch right away, in the calling
// goroutine, and cancels the scheduled flush. Without pending calls it only
// cancels the timer.
func (d *Debouncer[A, R]) Flush() {
	d.mu.Lock()
	b := d.detach()
	d.mu.Unlock()

	if b != nil {
		d.run(b)
	}
}

// Clear cancels the scheduled flush and drops the pending batch. Futures
// already handed out for that batch never settle. Leading edge futures are
// not affected.
func (d *Debouncer[A, R]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) > 0 {
		d.logger().WithFields(logx.Fields{
			"batch_id": d.batchID,
			"size":     len(d.pending),
		}).Debug("debouncex: batch cleared")
	}

	d.stopTimer()
	d.pending = nil
	d.deferred = nil
	d.ctx = nil
	d.batchID = ""
}

// Pending returns the number of calls waiting for the next flush.
func (d *Debouncer[A, R]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Clock returns the time source the Debouncer schedules flushes with.
func (d *Debouncer[A, R]) Clock() Clock {
	return d.opts.Clock
}

func (d *Debouncer[A, R]) wait() time.Duration {
	w := d.opts.Wait
	if d.opts.WaitFunc != nil {
		w = d.opts.WaitFunc()
	}
	if w < 0 {
		w = 0
	}
	return w
}

// lead starts the leading edge invocation in its own goroutine.
func (d *Debouncer[A, R]) lead(ctx context.Context, args A) *asyncx.Future[R] {
	return asyncx.Run(func() (R, error) {
		results, err := d.invoke(ctx, []A{args})
		if err != nil {
			var zero R
			return zero, err
		}
		return pick(results, 0)
	})
}

// schedule (re)arms the flush timer. Caller holds mu.
func (d *Debouncer[A, R]) schedule(wait time.Duration) {
	d.stopTimer()
	gen := d.gen
	d.timer = d.opts.Clock.AfterFunc(wait, func() {
		d.fire(gen)
	})
}

// stopTimer cancels the flush timer and invalidates callbacks that already
// started. Caller holds mu.
func (d *Debouncer[A, R]) stopTimer() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[A, R]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	b := d.detach()
	d.mu.Unlock()

	if b != nil {
		d.run(b)
	}
}

// detach ends the live batch and returns it, or nil when nothing is pending.
// The next call starts a fresh batch. Caller holds mu.
func (d *Debouncer[A, R]) detach() *batch[A, R] {
	d.stopTimer()
	if len(d.pending) == 0 {
		return nil
	}

	b := &batch[A, R]{
		id:       d.batchID,
		ctx:      d.ctx,
		args:     d.pending,
		deferred: d.deferred,
	}
	d.pending = nil
	d.deferred = nil
	d.ctx = nil
	d.batchID = ""
	return b
}

// run invokes the function for a detached batch and settles the batch's own
// Deferred, whatever batch is live by the time the function returns.
func (d *Debouncer[A, R]) run(b *batch[A, R]) {
	log := d.logger().WithFields(logx.Fields{
		"batch_id": b.id,
		"size":     len(b.args),
	}).WithContext(b.ctx)
	log.Debug("debouncex: flushing batch")

	results, err := d.invoke(context.WithoutCancel(b.ctx), b.args)
	if err != nil {
		log.WithError(err).Warn("debouncex: batch failed")
	}
	b.deferred.Settle(results, err)
}

// invoke calls the wrapped function for args, which is never empty. In direct
// mode only the last element is passed on.
func (d *Debouncer[A, R]) invoke(ctx context.Context, args []A) (results []R, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = debounceErrors.New(ErrProducerPanic).WithDetail("panic", fmt.Sprint(r))
		}
	}()

	if !d.accumulate {
		r, callErr := d.fn(ctx, args[len(args)-1])
		if callErr != nil {
			return nil, callErr
		}
		return []R{r}, nil
	}

	results, err = d.batchFn(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(results) != len(args) {
		return nil, debounceErrors.New(ErrResultCount).
			WithDetail("expected", len(args)).
			WithDetail("got", len(results))
	}
	return results, nil
}

func (d *Debouncer[A, R]) logger() *logx.Entry {
	return d.opts.Logger.WithField("name", d.opts.Name)
}

func pick[R any](results []R, i int) (R, error) {
	if i < 0 || i >= len(results) {
		var zero R
		return zero, debounceErrors.New(ErrResultCount).
			WithDetail("index", i).
			WithDetail("got", len(results))
	}
	return results[i], nil
}
