// Package debouncex coalesces bursts of calls into single invocations of a
// wrapped function while giving every caller its own asyncx.Future.
//
// Two modes are available:
//
//   - New (direct mode): the trailing flush invokes the function once with the
//     arguments of the last call, and every call of the batch resolves to that
//     single result.
//   - NewBatch (accumulate mode): the trailing flush invokes the function once
//     with the arguments of every call of the batch, and each call resolves to
//     the result at its own position.
//
// Basic usage:
//
//	save := debouncex.New(func(ctx context.Context, doc Document) (Revision, error) {
//		return store.Save(ctx, doc)
//	}, time.Second)
//
//	rev, err := save.Call(ctx, doc).Await(ctx)
//
// Batch loading:
//
//	users := debouncex.NewBatch(func(ctx context.Context, ids []string) ([]*User, error) {
//		return repo.FindByIDs(ctx, ids)
//	}, 2*time.Millisecond)
//
//	u, err := users.Call(ctx, "user-1").Await(ctx)
//
// The leading edge (WithLeading) invokes the function right away for a call
// that arrives after a quiet period. The trailing edge is on by default and
// can be disabled with WithTrailing(false).
//
// Flush forces the pending batch to run now. Clear drops it; futures handed
// out for a cleared batch never settle, so callers should await them with a
// context that can be cancelled.
package debouncex
