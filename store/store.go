// Package store defines the key/value primitives the matchup and voting core is
// built on. Drivers live in subpackages: memstore, gormstore and dynamostore.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("item not found")

// Item is one record addressed by (PK, SK). Attribute values are string,
// int64 or bool.
type Item struct {
	PK    string
	SK    string
	Attrs map[string]any
}

func NewItem(pk, sk string) Item {
	return Item{PK: pk, SK: sk, Attrs: map[string]any{}}
}

// Set stores v under name and returns the item for chaining.
func (i Item) Set(name string, v any) Item {
	if i.Attrs == nil {
		i.Attrs = map[string]any{}
	}
	switch n := v.(type) {
	case int:
		v = int64(n)
	case int32:
		v = int64(n)
	}
	i.Attrs[name] = v
	return i
}

func (i Item) String(name string) string {
	s, _ := i.Attrs[name].(string)
	return s
}

func (i Item) Int(name string) int64 {
	switch n := i.Attrs[name].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func (i Item) Bool(name string) bool {
	b, _ := i.Attrs[name].(bool)
	return b
}

// Has reports whether the attribute is present.
func (i Item) Has(name string) bool {
	_, ok := i.Attrs[name]
	return ok
}

// Clone returns a copy whose Attrs map can be mutated independently.
func (i Item) Clone() Item {
	out := Item{PK: i.PK, SK: i.SK, Attrs: make(map[string]any, len(i.Attrs))}
	for k, v := range i.Attrs {
		out.Attrs[k] = v
	}
	return out
}

type QueryInput struct {
	PK       string
	SKPrefix string
	// Filter, when set, drops items before Limit is applied.
	Filter func(Item) bool
	// NewestFirst orders by descending sort key.
	NewestFirst bool
	// Limit bounds the result; zero means unbounded.
	Limit int
}

// Match reports whether it passes the query's prefix and filter.
func (q QueryInput) Match(it Item) bool {
	if it.PK != q.PK {
		return false
	}
	if q.SKPrefix != "" && (len(it.SK) < len(q.SKPrefix) || it.SK[:len(q.SKPrefix)] != q.SKPrefix) {
		return false
	}
	return q.Filter == nil || q.Filter(it)
}

type Store interface {
	// Get returns ErrNotFound when the item is absent.
	Get(ctx context.Context, pk, sk string) (Item, error)
	// Put fully overwrites the item at (PK, SK).
	Put(ctx context.Context, item Item) error
	// AtomicAdd increments a numeric attribute in a single store operation,
	// creating the item with delta as the initial value when absent.
	AtomicAdd(ctx context.Context, pk, sk, field string, delta int64) (int64, error)
	// Query returns the partition's items ordered by sort key.
	Query(ctx context.Context, in QueryInput) ([]Item, error)
	Delete(ctx context.Context, pk, sk string) error
}

type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout bounds every call to next by d. A non-positive d returns next.
func WithTimeout(next Store, d time.Duration) Store {
	if d <= 0 {
		return next
	}
	return &timeoutStore{next: next, timeout: d}
}

func (s *timeoutStore) Get(ctx context.Context, pk, sk string) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Get(ctx, pk, sk)
}

func (s *timeoutStore) Put(ctx context.Context, item Item) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Put(ctx, item)
}

func (s *timeoutStore) AtomicAdd(ctx context.Context, pk, sk, field string, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.AtomicAdd(ctx, pk, sk, field, delta)
}

func (s *timeoutStore) Query(ctx context.Context, in QueryInput) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Query(ctx, in)
}

func (s *timeoutStore) Delete(ctx context.Context, pk, sk string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Delete(ctx, pk, sk)
}
