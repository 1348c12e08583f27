// Package asyncx provides the settle-once Deferred/Future pair used by the
// debouncer and its integrations.
//
// # Deferred and Future
//
// A [Deferred] is created pending and settled exactly once with
// [Deferred.Resolve] or [Deferred.Reject]. Later attempts are ignored and
// report false. Its read side, obtained with [Deferred.Future], is a [Future]:
//
//	d := asyncx.NewDeferred[int]()
//	fut := d.Future()
//
//	go func() { d.Resolve(42) }()
//
//	v, err := fut.Await(ctx) // 42, nil
//
// [Future.Await] respects ctx: when ctx ends first it returns ctx.Err(), but
// the Future keeps its eventual outcome for later waiters.
//
// # Deriving futures
//
// [Then] maps a Future's value without starting a goroutine. The debouncer uses
// it to hand each caller of an accumulated batch its own element:
//
//	batch := d.Future()                 // *Future[[]int]
//	mine := asyncx.Then(batch, func(rs []int) (int, error) {
//	    return rs[idx], nil
//	})
//
// # Running work
//
// [Run] starts a function in a goroutine and returns its Future. Panics are
// recovered into a [*PanicError]. [Resolved], [Rejected] and [Never] build
// futures whose state is fixed up front.
//
// [AwaitAll] collects the outcome of several futures in order.
//
// The package has no external dependencies and relies solely on the Go
// standard library.
package asyncx
