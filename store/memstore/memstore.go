// Package memstore is an in-process store.Store used for local development and tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"Scrumble/store"
)

type Store struct {
	mu         sync.Mutex
	partitions map[string]map[string]store.Item
}

func New() *Store {
	return &Store{partitions: map[string]map[string]store.Item{}}
}

func (s *Store) Get(ctx context.Context, pk, sk string) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return store.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.partitions[pk][sk]
	if !ok {
		return store.Item{}, store.ErrNotFound
	}
	return it.Clone(), nil
}

func (s *Store) Put(ctx context.Context, item store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.partition(item.PK)[item.SK] = item.Clone()
	return nil
}

func (s *Store) AtomicAdd(ctx context.Context, pk, sk, field string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	part := s.partition(pk)
	it, ok := part[sk]
	if !ok {
		it = store.NewItem(pk, sk)
	}
	next := it.Int(field) + delta
	part[sk] = it.Set(field, next)
	return next, nil
}

func (s *Store) Query(ctx context.Context, in store.QueryInput) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	part := s.partitions[in.PK]
	sks := make([]string, 0, len(part))
	for sk := range part {
		sks = append(sks, sk)
	}
	snapshot := make(map[string]store.Item, len(part))
	for _, sk := range sks {
		snapshot[sk] = part[sk].Clone()
	}
	s.mu.Unlock()

	if in.NewestFirst {
		sort.Sort(sort.Reverse(sort.StringSlice(sks)))
	} else {
		sort.Strings(sks)
	}

	out := make([]store.Item, 0, len(sks))
	for _, sk := range sks {
		it := snapshot[sk]
		if !in.Match(it) {
			continue
		}
		out = append(out, it)
		if in.Limit > 0 && len(out) >= in.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, pk, sk string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.partitions[pk], sk)
	return nil
}

func (s *Store) partition(pk string) map[string]store.Item {
	part, ok := s.partitions[pk]
	if !ok {
		part = map[string]store.Item{}
		s.partitions[pk] = part
	}
	return part
}
