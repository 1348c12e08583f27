// Package debouncexpg coalesces lookups by key into one
// "WHERE key = ANY($1)" query per debounce window.
package debouncexpg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/debouncex/pkg/asyncx"
	"github.com/Abraxas-365/debouncex/pkg/debouncex"
	"github.com/Abraxas-365/debouncex/pkg/errx"
	"github.com/Abraxas-365/debouncex/pkg/logx"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var pgErrors = errx.NewRegistry("DEBOUNCE_PG")

var (
	ErrQuery    = pgErrors.Register("QUERY", errx.TypeExternal, 0, "Batch query failed")
	ErrNotFound = pgErrors.Register("NOT_FOUND", errx.TypeNotFound, 0, "Row not found")
)

// Querier is satisfied by *sqlx.DB and *sqlx.Tx.
type Querier interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

var _ Querier = (*sqlx.DB)(nil)

// Loader loads rows of type V by a text key. Rows are scanned with sqlx, so
// V needs db tags matching the selected columns.
type Loader[V any] struct {
	db        Querier
	query     string
	keyOf     func(V) string
	debouncer *debouncex.Debouncer[string, *V]
}

// NewLoader returns a Loader selecting columns from table where keyColumn
// matches. keyOf extracts the key of a scanned row.
//
// columns is a comma separated list of column names, or "*". Table and
// column names may be schema qualified ("public.records"); every dotted part
// is quoted with pq.QuoteIdentifier, so names are matched case-sensitively.
func NewLoader[V any](db Querier, table, keyColumn, columns string, keyOf func(V) string, wait time.Duration, opts ...debouncex.Option) *Loader[V] {
	l := &Loader[V]{
		db: db,
		query: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ANY($1)",
			quoteColumns(columns), quoteQualified(table), quoteQualified(keyColumn)),
		keyOf: keyOf,
	}
	opts = append([]debouncex.Option{debouncex.WithName("pg_loader:" + table)}, opts...)
	l.debouncer = debouncex.NewBatch(l.load, wait, opts...)
	return l
}

// Query returns the SQL statement run for each batch.
func (l *Loader[V]) Query() string {
	return l.query
}

// Load returns the Future of the row with key. The Future resolves to nil
// when no row matches.
func (l *Loader[V]) Load(ctx context.Context, key string) *asyncx.Future[*V] {
	return l.debouncer.Call(ctx, key)
}

// Get awaits the row with key and returns ErrNotFound when there is none.
func (l *Loader[V]) Get(ctx context.Context, key string) (*V, error) {
	row, err := l.Load(ctx, key).Await(ctx)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, pgErrors.New(ErrNotFound).WithDetail("key", key)
	}
	return row, nil
}

// Flush runs the pending batch now.
func (l *Loader[V]) Flush() {
	l.debouncer.Flush()
}

func (l *Loader[V]) load(ctx context.Context, keys []string) ([]*V, error) {
	var rows []V
	if err := l.db.SelectContext(ctx, &rows, l.query, pq.Array(keys)); err != nil {
		return nil, pgErrors.NewWithCause(ErrQuery, err).WithDetail("keys", len(keys))
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"keys": len(keys),
		"rows": len(rows),
	}).Debug("debouncexpg: batch loaded")

	return arrange(keys, rows, l.keyOf), nil
}

// quoteQualified quotes each part of a dotted identifier.
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

func quoteColumns(columns string) string {
	if strings.TrimSpace(columns) == "*" {
		return "*"
	}
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = quoteQualified(c)
	}
	return strings.Join(cols, ", ")
}

// arrange orders rows by keys. Keys without a row map to nil, and repeated
// keys share the same row.
func arrange[V any](keys []string, rows []V, keyOf func(V) string) []*V {
	byKey := make(map[string]*V, len(rows))
	for i := range rows {
		byKey[keyOf(rows[i])] = &rows[i]
	}

	out := make([]*V, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}
