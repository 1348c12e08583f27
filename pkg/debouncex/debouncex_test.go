package debouncex_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/debouncex/pkg/asyncx"
	"github.com/Abraxas-365/debouncex/pkg/debouncex"
	"github.com/Abraxas-365/debouncex/pkg/debouncex/debouncextest"
	"github.com/Abraxas-365/debouncex/pkg/errx"
	"github.com/Abraxas-365/debouncex/pkg/kernel"
)

const wait = 100 * time.Millisecond

func echo(_ context.Context, v string) (string, error) {
	return v, nil
}

// await fails the test if f does not settle within a second of real time.
func await[T any](t *testing.T, f *asyncx.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := f.Await(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("future did not settle")
	}
	return v, err
}

func awaitAll[T any](t *testing.T, fs []*asyncx.Future[T]) []T {
	t.Helper()
	out := make([]T, len(fs))
	for i, f := range fs {
		v, err := await(t, f)
		if err != nil {
			t.Fatalf("future %d failed: %v", i, err)
		}
		out[i] = v
	}
	return out
}

func callAll(d *debouncex.Debouncer[string, string], args ...string) []*asyncx.Future[string] {
	fs := make([]*asyncx.Future[string], len(args))
	for i, a := range args {
		fs[i] = d.Call(context.Background(), a)
	}
	return fs
}

func counter() (*atomic.Int32, debouncex.Func[struct{}, int32]) {
	var n atomic.Int32
	return &n, func(context.Context, struct{}) (int32, error) {
		return n.Add(1), nil
	}
}

// --- Trailing edge tests ---

func TestCall_SingleCall(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	d := debouncex.New(echo, wait, debouncex.WithClock(clk))

	f := d.Call(context.Background(), "foo")
	if f.Settled() {
		t.Fatal("trailing call must wait for the window")
	}

	clk.Advance(wait)

	v, err := await(t, f)
	if err != nil || v != "foo" {
		t.Fatalf("got (%q, %v), want foo", v, err)
	}
}

func TestCall_LatestCallWins(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	var calls atomic.Int32
	d := debouncex.New(func(ctx context.Context, v string) (string, error) {
		calls.Add(1)
		return v, nil
	}, wait, debouncex.WithClock(clk))

	fs := callAll(d, "foo", "bar", "baz", "qux")
	clk.Advance(wait)

	got := awaitAll(t, fs)
	if !slices.Equal(got, []string{"qux", "qux", "qux", "qux"}) {
		t.Fatalf("unexpected results %v", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", calls.Load())
	}
}

func TestCall_WaitsUntilWindowHasPassed(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	d := debouncex.New(fn, 10*time.Millisecond, debouncex.WithClock(clk))

	d.Call(context.Background(), struct{}{})
	d.Call(context.Background(), struct{}{})
	d.Call(context.Background(), struct{}{})
	if n.Load() != 0 {
		t.Fatalf("expected no invocation yet, got %d", n.Load())
	}

	clk.Advance(9 * time.Millisecond)
	if n.Load() != 0 {
		t.Fatalf("window has not elapsed, got %d invocations", n.Load())
	}

	clk.Advance(time.Millisecond)
	if n.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", n.Load())
	}
}

func TestCall_EachCallSlidesTheWindow(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	d := debouncex.New(fn, wait, debouncex.WithClock(clk))

	for range 5 {
		d.Call(context.Background(), struct{}{})
		clk.Advance(wait / 2)
	}
	if n.Load() != 0 {
		t.Fatalf("calls closer than the window must keep postponing, got %d", n.Load())
	}
	if clk.Armed() != 1 {
		t.Fatalf("expected exactly one armed timer, got %d", clk.Armed())
	}

	clk.Advance(wait / 2)
	if n.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", n.Load())
	}
}

func TestCall_SpacedCallsInvokeEachTime(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	d := debouncex.New(fn, 10*time.Millisecond, debouncex.WithClock(clk))

	for i := 1; i <= 3; i++ {
		f := d.Call(context.Background(), struct{}{})
		clk.Advance(20 * time.Millisecond)

		v, err := await(t, f)
		if err != nil || v != int32(i) {
			t.Fatalf("call %d resolved to (%d, %v)", i, v, err)
		}
	}
	if n.Load() != 3 {
		t.Fatalf("expected 3 invocations, got %d", n.Load())
	}
}

func TestCall_ConcurrentCallersShareOneInvocation(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	var calls atomic.Int32
	d := debouncex.New(func(ctx context.Context, v int) (int, error) {
		calls.Add(1)
		return v, nil
	}, wait, debouncex.WithClock(clk))

	const callers = 32
	fs := make([]*asyncx.Future[int], callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fs[i] = d.Call(context.Background(), i)
		}(i)
	}
	wg.Wait()

	if d.Pending() != callers {
		t.Fatalf("expected %d pending calls, got %d", callers, d.Pending())
	}
	clk.Advance(wait)

	got := awaitAll(t, fs)
	for _, v := range got {
		if v != got[0] {
			t.Fatalf("callers of one batch resolved differently: %v", got)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", calls.Load())
	}
}

// --- Leading edge tests ---

func TestCall_LeadingUsesFirstValue(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	d := debouncex.New(echo, wait, debouncex.WithClock(clk), debouncex.WithLeading(true))

	fs := callAll(d, "foo", "bar", "baz", "qux")

	v, err := await(t, fs[0])
	if err != nil || v != "foo" {
		t.Fatalf("leading call resolved to (%q, %v)", v, err)
	}
	if fs[1].Settled() {
		t.Fatal("trailing calls must wait for the window")
	}

	clk.Advance(wait)

	got := awaitAll(t, fs)
	if !slices.Equal(got, []string{"foo", "qux", "qux", "qux"}) {
		t.Fatalf("unexpected results %v", got)
	}
}

func TestCall_LeadingWithoutTrailingReusesFirstFuture(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	d := debouncex.New(echo, wait,
		debouncex.WithClock(clk),
		debouncex.WithLeading(true),
		debouncex.WithTrailing(false),
	)

	fs := callAll(d, "foo", "bar", "baz")
	if fs[1] != fs[0] || fs[2] != fs[0] {
		t.Fatal("absorbed calls should share the leading future")
	}
	if clk.Armed() != 0 {
		t.Fatal("no flush should be scheduled without a trailing edge")
	}

	clk.Advance(wait + 10*time.Millisecond)
	fs = append(fs, d.Call(context.Background(), "qux"))

	got := awaitAll(t, fs)
	if !slices.Equal(got, []string{"foo", "foo", "foo", "qux"}) {
		t.Fatalf("unexpected results %v", got)
	}
}

func TestCall_LeadingWindowBoundaryIsExclusive(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	d := debouncex.New(fn, wait,
		debouncex.WithClock(clk),
		debouncex.WithLeading(true),
		debouncex.WithTrailing(false),
	)
	ctx := context.Background()

	first := d.Call(ctx, struct{}{})
	if _, err := await(t, first); err != nil {
		t.Fatal(err)
	}

	// A gap of exactly wait is still inside the window.
	clk.Advance(wait)
	if d.Call(ctx, struct{}{}) != first {
		t.Fatal("call at a gap of exactly wait should share the leading future")
	}
	if n.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", n.Load())
	}

	clk.Advance(wait + time.Nanosecond)
	next := d.Call(ctx, struct{}{})
	if next == first {
		t.Fatal("call past the window should start a new invocation")
	}
	v, err := await(t, next)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 || n.Load() != 2 {
		t.Fatalf("expected second invocation, got result %d after %d invocations", v, n.Load())
	}
}

func TestCall_LeadingSingleCallInvokesOnce(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	d := debouncex.New(fn, wait, debouncex.WithClock(clk), debouncex.WithLeading(true))

	if _, err := await(t, d.Call(context.Background(), struct{}{})); err != nil {
		t.Fatal(err)
	}
	clk.Advance(2 * wait)

	if n.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", n.Load())
	}
}

func TestCall_LeadingBurstInvokesTwice(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	d := debouncex.New(fn, wait, debouncex.WithClock(clk), debouncex.WithLeading(true))

	var fs []*asyncx.Future[int32]
	for range 4 {
		fs = append(fs, d.Call(context.Background(), struct{}{}))
	}
	await(t, fs[0])
	clk.Advance(2 * wait)
	for _, f := range fs {
		await(t, f)
	}

	if n.Load() != 2 {
		t.Fatalf("expected 2 invocations, got %d", n.Load())
	}
}

// --- Accumulate tests ---

func square(t *testing.T, want ...[]int) (*atomic.Int32, debouncex.BatchFunc[int, int]) {
	var n atomic.Int32
	return &n, func(_ context.Context, batch []int) ([]int, error) {
		i := int(n.Add(1)) - 1
		if i < len(want) && !slices.Equal(batch, want[i]) {
			t.Errorf("invocation %d got batch %v, want %v", i+1, batch, want[i])
		}
		out := make([]int, len(batch))
		for j, v := range batch {
			out[j] = v * v
		}
		return out, nil
	}
}

func TestNewBatch_AccumulatesArguments(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := square(t, []int{1, 2, 3})
	d := debouncex.NewBatch(fn, 10*time.Millisecond, debouncex.WithClock(clk))

	one := d.Call(context.Background(), 1)
	two := d.Call(context.Background(), 2)
	three := d.Call(context.Background(), 3)

	clk.Advance(20 * time.Millisecond)

	got := awaitAll(t, []*asyncx.Future[int]{one, two, three})
	if !slices.Equal(got, []int{1, 4, 9}) {
		t.Fatalf("unexpected results %v", got)
	}
	if n.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", n.Load())
	}
}

func TestNewBatch_WithLeading(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := square(t, []int{1}, []int{2, 3})
	d := debouncex.NewBatch(fn, 10*time.Millisecond, debouncex.WithClock(clk), debouncex.WithLeading(true))

	one := d.Call(context.Background(), 1)
	if v, err := await(t, one); err != nil || v != 1 {
		t.Fatalf("leading call resolved to (%d, %v)", v, err)
	}

	two := d.Call(context.Background(), 2)
	three := d.Call(context.Background(), 3)
	clk.Advance(10 * time.Millisecond)

	got := awaitAll(t, []*asyncx.Future[int]{two, three})
	if !slices.Equal(got, []int{4, 9}) {
		t.Fatalf("unexpected results %v", got)
	}
	if n.Load() != 2 {
		t.Fatalf("expected 2 invocations, got %d", n.Load())
	}
}

func TestNewBatch_ResultCountMismatch(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	d := debouncex.NewBatch(func(_ context.Context, batch []int) ([]int, error) {
		return batch[:1], nil
	}, wait, debouncex.WithClock(clk))

	a := d.Call(context.Background(), 1)
	b := d.Call(context.Background(), 2)
	clk.Advance(wait)

	for _, f := range []*asyncx.Future[int]{a, b} {
		_, err := await(t, f)
		if !errx.HasCode(err, debouncex.ErrResultCount) {
			t.Fatalf("expected result count error, got %v", err)
		}
	}
}

// --- Error tests ---

func TestCall_ProducerErrorReachesEveryCaller(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	boom := errors.New("boom")
	d := debouncex.New(func(context.Context, string) (string, error) {
		return "", boom
	}, wait, debouncex.WithClock(clk))

	fs := callAll(d, "a", "b", "c")
	clk.Advance(wait)

	for _, f := range fs {
		if _, err := await(t, f); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
}

func TestNewBatch_ProducerErrorRejectsWholeBatch(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	boom := errors.New("boom")
	d := debouncex.NewBatch(func(context.Context, []int) ([]int, error) {
		return nil, boom
	}, wait, debouncex.WithClock(clk))

	a := d.Call(context.Background(), 1)
	b := d.Call(context.Background(), 2)
	clk.Advance(wait)

	for _, f := range []*asyncx.Future[int]{a, b} {
		if _, err := await(t, f); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
}

func TestCall_ProducerPanic(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	d := debouncex.New(func(context.Context, string) (string, error) {
		panic("kaboom")
	}, wait, debouncex.WithClock(clk))

	f := d.Call(context.Background(), "x")
	clk.Advance(wait)

	_, err := await(t, f)
	if !errx.HasCode(err, debouncex.ErrProducerPanic) {
		t.Fatalf("expected producer panic error, got %v", err)
	}
}

func TestCall_LeadingProducerPanic(t *testing.T) {
	d := debouncex.New(func(context.Context, string) (string, error) {
		panic("kaboom")
	}, wait, debouncex.WithLeading(true))

	_, err := await(t, d.Call(context.Background(), "x"))
	if !errx.HasCode(err, debouncex.ErrProducerPanic) {
		t.Fatalf("expected producer panic error, got %v", err)
	}
}

// --- Flush / Clear tests ---

func TestFlush_RunsPendingBatchNow(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	var calls atomic.Int32
	d := debouncex.New(func(ctx context.Context, v string) (string, error) {
		calls.Add(1)
		return v, nil
	}, wait, debouncex.WithClock(clk))

	fs := callAll(d, "a", "b")
	d.Flush()

	if !fs[0].Settled() || !fs[1].Settled() {
		t.Fatal("flush should settle the batch before returning")
	}
	if clk.Armed() != 0 {
		t.Fatal("flush should cancel the scheduled timer")
	}

	d.Flush()
	clk.Advance(2 * wait)

	if calls.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", calls.Load())
	}
	if got := awaitAll(t, fs); !slices.Equal(got, []string{"b", "b"}) {
		t.Fatalf("unexpected results %v", got)
	}
}

func TestClear_DropsPendingBatch(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	d := debouncex.New(fn, 10*time.Millisecond, debouncex.WithClock(clk))

	d.Clear()
	f := d.Call(context.Background(), struct{}{})
	d.Clear()

	if n.Load() != 0 {
		t.Fatalf("expected no invocation, got %d", n.Load())
	}
	clk.Advance(20 * time.Millisecond)

	if n.Load() != 0 {
		t.Fatalf("expected no invocation after clear, got %d", n.Load())
	}
	if f.Settled() {
		t.Fatal("futures of a cleared batch never settle")
	}
	if d.Pending() != 0 {
		t.Fatalf("expected no pending calls, got %d", d.Pending())
	}
}

func TestClear_IsIdempotent(t *testing.T) {
	d := debouncex.New(echo, wait)
	d.Clear()
	d.Clear()
	d.Flush()
}

func TestClear_WhileFlushing(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	var (
		calls atomic.Int32
		d     *debouncex.Debouncer[struct{}, int32]
	)
	d = debouncex.New(func(context.Context, struct{}) (int32, error) {
		n := calls.Add(1)
		d.Clear()
		return n, nil
	}, 10*time.Millisecond, debouncex.WithClock(clk))

	f := d.Call(context.Background(), struct{}{})
	clk.Advance(20 * time.Millisecond)

	if calls.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", calls.Load())
	}
	if v, err := await(t, f); err != nil || v != 1 {
		t.Fatalf("the flushing batch must still settle, got (%d, %v)", v, err)
	}
}

// --- Wait / context / reentrancy tests ---

func TestWithWaitFunc_EvaluatedOnEveryCall(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	var waitCalls atomic.Int32
	d := debouncex.New(fn, 0,
		debouncex.WithClock(clk),
		debouncex.WithWaitFunc(func() time.Duration {
			waitCalls.Add(1)
			return 100 * time.Millisecond
		}),
	)

	d.Call(context.Background(), struct{}{})
	d.Call(context.Background(), struct{}{})
	d.Call(context.Background(), struct{}{})

	clk.Advance(90 * time.Millisecond)
	if n.Load() != 0 {
		t.Fatalf("expected no invocation yet, got %d", n.Load())
	}
	clk.Advance(20 * time.Millisecond)

	if waitCalls.Load() != 3 {
		t.Fatalf("expected wait func per call, got %d evaluations", waitCalls.Load())
	}
	if n.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", n.Load())
	}
}

func TestCall_DefaultWaitIsZero(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	d := debouncex.New(echo, -time.Second, debouncex.WithClock(clk))

	f := d.Call(context.Background(), "now")
	clk.Advance(0)

	if v, err := await(t, f); err != nil || v != "now" {
		t.Fatalf("got (%q, %v)", v, err)
	}
}

func TestCall_BatchUsesContextOfLastCall(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	var (
		gotCaller string
		gotErr    error
	)
	d := debouncex.New(func(ctx context.Context, _ string) (string, error) {
		gotCaller = kernel.Caller(ctx)
		gotErr = ctx.Err()
		return "", nil
	}, wait, debouncex.WithClock(clk))

	first, cancel := context.WithCancel(kernel.WithCaller(context.Background(), "first"))
	last, cancelLast := context.WithCancel(kernel.WithCaller(context.Background(), "last"))
	d.Call(first, "a")
	d.Call(last, "b")
	cancel()
	cancelLast()

	clk.Advance(wait)

	if gotCaller != "last" {
		t.Fatalf("expected context of the last call, got %q", gotCaller)
	}
	if gotErr != nil {
		t.Fatalf("batch context must not inherit caller cancellation, got %v", gotErr)
	}
}

func TestCall_LeadingUsesCallerContext(t *testing.T) {
	d := debouncex.New(func(ctx context.Context, _ string) (string, error) {
		return kernel.Caller(ctx), nil
	}, wait, debouncex.WithLeading(true))

	ctx := kernel.WithCaller(context.Background(), "svc")
	if v, err := await(t, d.Call(ctx, "x")); err != nil || v != "svc" {
		t.Fatalf("got (%q, %v)", v, err)
	}
}

func TestCall_ReentrantCallStartsNewBatch(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	type pair [2]int

	var (
		d         *debouncex.Debouncer[pair, pair]
		reentrant *asyncx.Future[pair]
		iterate   = true
	)
	d = debouncex.New(func(ctx context.Context, p pair) (pair, error) {
		if iterate {
			iterate = false
			reentrant = d.Call(ctx, pair{3, 4})
		}
		return p, nil
	}, 10*time.Millisecond, debouncex.WithClock(clk))

	first := d.Call(context.Background(), pair{1, 2})
	clk.Advance(10 * time.Millisecond)

	if v, err := await(t, first); err != nil || v != (pair{1, 2}) {
		t.Fatalf("first batch resolved to (%v, %v)", v, err)
	}
	if reentrant == nil || reentrant.Settled() {
		t.Fatal("reentrant call should be pending in a new batch")
	}
	if d.Pending() != 1 {
		t.Fatalf("expected the reentrant call pending, got %d", d.Pending())
	}

	clk.Advance(10 * time.Millisecond)
	if v, err := await(t, reentrant); err != nil || v != (pair{3, 4}) {
		t.Fatalf("reentrant batch resolved to (%v, %v)", v, err)
	}
}

// leakyClock never cancels timers, so stale callbacks still fire.
type leakyClock struct {
	*debouncextest.Clock
}

type noStop struct{}

func (noStop) Stop() bool { return false }

func (c leakyClock) AfterFunc(d time.Duration, f func()) debouncex.Timer {
	c.Clock.AfterFunc(d, f)
	return noStop{}
}

func TestCall_StaleTimerIsIgnored(t *testing.T) {
	clk := leakyClock{debouncextest.NewClock(time.Time{})}
	n, fn := counter()
	d := debouncex.New(fn, 10*time.Millisecond, debouncex.WithClock(clk))

	d.Call(context.Background(), struct{}{})
	clk.Advance(5 * time.Millisecond)
	f := d.Call(context.Background(), struct{}{})

	clk.Advance(5 * time.Millisecond)
	if n.Load() != 0 {
		t.Fatalf("stale timer flushed the batch early: %d invocations", n.Load())
	}

	clk.Advance(5 * time.Millisecond)
	if n.Load() != 1 {
		t.Fatalf("expected 1 invocation, got %d", n.Load())
	}
	await(t, f)
}

// --- Degenerate configuration / runtime clock ---

func TestCall_NoEdgesNeverSettles(t *testing.T) {
	clk := debouncextest.NewClock(time.Time{})
	n, fn := counter()
	d := debouncex.New(fn, wait,
		debouncex.WithClock(clk),
		debouncex.WithTrailing(false),
	)

	f := d.Call(context.Background(), struct{}{})
	clk.Advance(10 * wait)

	if f.Settled() || n.Load() != 0 {
		t.Fatal("with no edge enabled nothing is ever invoked")
	}
}

func TestCall_RuntimeClock(t *testing.T) {
	d := debouncex.New(echo, 10*time.Millisecond, debouncex.WithName("runtime"))

	fs := callAll(d, "foo", "bar", "baz")
	got := awaitAll(t, fs)
	if !slices.Equal(got, []string{"baz", "baz", "baz"}) {
		t.Fatalf("unexpected results %v", got)
	}
}
