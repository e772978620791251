// Package storetest holds the behaviour every store.Store driver must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"Scrumble/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "ENTRY", "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := store.NewItem("ENTRY", "velo").Set("name", "Velo").Set("tag", "Local")
		require.NoError(t, s.Put(ctx, first))
		second := store.NewItem("ENTRY", "velo").Set("name", "Velo Coffee")
		require.NoError(t, s.Put(ctx, second))

		got, err := s.Get(ctx, "ENTRY", "velo")
		require.NoError(t, err)
		assert.Equal(t, "Velo Coffee", got.String("name"))
		assert.False(t, got.Has("tag"))

		all, err := s.Query(ctx, store.QueryInput{PK: "ENTRY"})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("TypedAttributesRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		in := store.NewItem("MATCHUP", "m1").
			Set("title", "Burger Duel").
			Set("active", true).
			Set("left", int64(7))
		require.NoError(t, s.Put(ctx, in))

		got, err := s.Get(ctx, "MATCHUP", "m1")
		require.NoError(t, err)
		assert.Equal(t, "Burger Duel", got.String("title"))
		assert.True(t, got.Bool("active"))
		assert.Equal(t, int64(7), got.Int("left"))
	})

	t.Run("AtomicAddCreatesAndIncrements", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.AtomicAdd(ctx, "VOTES#m1", "TOTAL", "left", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.AtomicAdd(ctx, "VOTES#m1", "TOTAL", "left", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		got, err := s.Get(ctx, "VOTES#m1", "TOTAL")
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Int("left"))
		assert.Equal(t, int64(0), got.Int("right"))
	})

	t.Run("AtomicAddKeepsOtherAttributes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "TOTAL").Set("left", int64(0)).Set("right", int64(0))))
		_, err := s.AtomicAdd(ctx, "VOTES#m1", "TOTAL", "right", 1)
		require.NoError(t, err)

		got, err := s.Get(ctx, "VOTES#m1", "TOTAL")
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Int("left"))
		assert.Equal(t, int64(1), got.Int("right"))
	})

	t.Run("ConcurrentAtomicAdd", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const workers = 50

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.AtomicAdd(ctx, "VOTES#m1", "TOTAL", "left", 1); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.Get(ctx, "VOTES#m1", "TOTAL")
		require.NoError(t, err)
		assert.Equal(t, int64(workers), got.Int("left"))
	})

	t.Run("QueryPrefixOrderLimit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			sk := fmt.Sprintf("V#u1#2024-01-0%dT00:00:00.000000Z", i)
			require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", sk).Set("side", "left")))
		}
		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "V#u2#2024-01-09T00:00:00.000000Z").Set("side", "right")))
		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "TOTAL").Set("left", int64(3))))
		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m2", "V#u1#2024-02-01T00:00:00.000000Z").Set("side", "left")))

		latest, err := s.Query(ctx, store.QueryInput{PK: "VOTES#m1", SKPrefix: "V#u1#", NewestFirst: true, Limit: 1})
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, "V#u1#2024-01-03T00:00:00.000000Z", latest[0].SK)

		ascending, err := s.Query(ctx, store.QueryInput{PK: "VOTES#m1", SKPrefix: "V#u1#"})
		require.NoError(t, err)
		require.Len(t, ascending, 3)
		assert.Equal(t, "V#u1#2024-01-01T00:00:00.000000Z", ascending[0].SK)

		everything, err := s.Query(ctx, store.QueryInput{PK: "VOTES#m1"})
		require.NoError(t, err)
		assert.Len(t, everything, 5)
	})

	t.Run("QueryFilterBeforeLimit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, store.NewItem("MATCHUP", "a").Set("active", false)))
		require.NoError(t, s.Put(ctx, store.NewItem("MATCHUP", "b").Set("active", false)))
		require.NoError(t, s.Put(ctx, store.NewItem("MATCHUP", "c").Set("active", true)))

		got, err := s.Query(ctx, store.QueryInput{
			PK:     "MATCHUP",
			Filter: func(it store.Item) bool { return it.Bool("active") },
			Limit:  1,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].SK)
	})

	t.Run("PrefixWithLikeMetacharacters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "V#100%25#ts").Set("side", "left")))
		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "V#1000#ts").Set("side", "left")))
		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "V#a_b#ts").Set("side", "left")))
		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "V#axb#ts").Set("side", "left")))

		got, err := s.Query(ctx, store.QueryInput{PK: "VOTES#m1", SKPrefix: "V#100%"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "V#100%25#ts", got[0].SK)

		got, err = s.Query(ctx, store.QueryInput{PK: "VOTES#m1", SKPrefix: "V#a_b#"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "V#a_b#ts", got[0].SK)
	})

	t.Run("PrefixIsCaseSensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "V#bob#2024-05-01T12:00:00.000Z").Set("side", "left")))
		require.NoError(t, s.Put(ctx, store.NewItem("VOTES#m1", "V#BOB#2024-05-01T13:00:00.000Z").Set("side", "right")))

		for _, tc := range []struct{ prefix, want string }{
			{"V#BOB#", "V#BOB#2024-05-01T13:00:00.000Z"},
			{"V#bob#", "V#bob#2024-05-01T12:00:00.000Z"},
		} {
			got, err := s.Query(ctx, store.QueryInput{PK: "VOTES#m1", SKPrefix: tc.prefix, NewestFirst: true, Limit: 1})
			require.NoError(t, err)
			require.Len(t, got, 1, tc.prefix)
			assert.Equal(t, tc.want, got[0].SK)

			all, err := s.Query(ctx, store.QueryInput{PK: "VOTES#m1", SKPrefix: tc.prefix})
			require.NoError(t, err)
			assert.Len(t, all, 1, tc.prefix)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, store.NewItem("MATCHUP", "m1").Set("title", "x")))
		require.NoError(t, s.Delete(ctx, "MATCHUP", "m1"))
		_, err := s.Get(ctx, "MATCHUP", "m1")
		assert.ErrorIs(t, err, store.ErrNotFound)

		assert.NoError(t, s.Delete(ctx, "MATCHUP", "never-existed"))
	})
}
