// Package debouncexredis coalesces concurrent Redis key lookups into a single
// MGET per debounce window.
package debouncexredis

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/debouncex/pkg/asyncx"
	"github.com/Abraxas-365/debouncex/pkg/debouncex"
	"github.com/Abraxas-365/debouncex/pkg/logx"
	"github.com/redis/go-redis/v9"
)

// Value is the result of one key lookup.
type Value struct {
	Data  string
	Found bool
}

// Loader batches Get calls made within the window into one MGET round trip.
type Loader struct {
	rdb       redis.Cmdable
	prefix    string
	debouncer *debouncex.Debouncer[string, Value]
}

// NewLoader returns a Loader reading keys under prefix. opts are passed to the
// underlying debouncer.
func NewLoader(rdb redis.Cmdable, prefix string, wait time.Duration, opts ...debouncex.Option) *Loader {
	l := &Loader{rdb: rdb, prefix: prefix}
	opts = append([]debouncex.Option{debouncex.WithName("redis_loader")}, opts...)
	l.debouncer = debouncex.NewBatch(l.load, wait, opts...)
	return l
}

// Get returns the Future of key's value. Concurrent calls for the same
// window share one round trip.
func (l *Loader) Get(ctx context.Context, key string) *asyncx.Future[Value] {
	return l.debouncer.Call(ctx, key)
}

// MustGet awaits key and returns ErrKeyNotFound when it is absent.
func (l *Loader) MustGet(ctx context.Context, key string) (string, error) {
	v, err := l.Get(ctx, key).Await(ctx)
	if err != nil {
		return "", err
	}
	if !v.Found {
		return "", redisErrors.New(ErrKeyNotFound).WithDetail("key", key)
	}
	return v.Data, nil
}

// Flush sends the pending batch now.
func (l *Loader) Flush() {
	l.debouncer.Flush()
}

// Pending returns the number of lookups waiting for the next MGET.
func (l *Loader) Pending() int {
	return l.debouncer.Pending()
}

func (l *Loader) load(ctx context.Context, keys []string) ([]Value, error) {
	unique, positions := dedupe(keys)

	prefixed := make([]string, len(unique))
	for i, k := range unique {
		prefixed[i] = l.prefix + k
	}

	raw, err := l.rdb.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrMGet, err).WithDetail("keys", len(prefixed))
	}

	values, err := toValues(raw)
	if err != nil {
		return nil, err
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"keys":   len(keys),
		"unique": len(unique),
	}).Debug("debouncexredis: batch loaded")

	out := make([]Value, len(keys))
	for i, p := range positions {
		out[i] = values[p]
	}
	return out, nil
}

// dedupe returns the distinct keys in first-seen order and, for each input
// key, its position among them.
func dedupe(keys []string) ([]string, []int) {
	seen := make(map[string]int, len(keys))
	unique := make([]string, 0, len(keys))
	positions := make([]int, len(keys))
	for i, k := range keys {
		p, ok := seen[k]
		if !ok {
			p = len(unique)
			seen[k] = p
			unique = append(unique, k)
		}
		positions[i] = p
	}
	return unique, positions
}

// toValues converts an MGET reply. Missing keys come back as nil.
func toValues(raw []interface{}) ([]Value, error) {
	out := make([]Value, len(raw))
	for i, r := range raw {
		switch v := r.(type) {
		case nil:
		case string:
			out[i] = Value{Data: v, Found: true}
		case []byte:
			out[i] = Value{Data: string(v), Found: true}
		default:
			return nil, redisErrors.New(ErrUnexpected).WithDetail("type", fmt.Sprintf("%T", r))
		}
	}
	return out, nil
}
