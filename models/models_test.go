package models

import (
	"context"
	"fmt"
	"testing"
	"time"

	"Scrumble/store"
	"Scrumble/store/memstore"
	"Scrumble/utils/keys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records Get and Query calls so batching can be asserted.
type countingStore struct {
	store.Store
	gets    int
	queries int
}

func (c *countingStore) Get(ctx context.Context, pk, sk string) (store.Item, error) {
	c.gets++
	return c.Store.Get(ctx, pk, sk)
}

func (c *countingStore) Query(ctx context.Context, in store.QueryInput) ([]store.Item, error) {
	c.queries++
	return c.Store.Query(ctx, in)
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &parsed
}

func TestEntryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	first := Entry{ID: "velo", Name: "Velo", Blurb: "espresso"}
	first.Prepare()
	require.NoError(t, first.SaveEntry(ctx, s))

	second := Entry{ID: "velo", Name: "Velo Coffee", Neighborhood: "Downtown"}
	second.Prepare()
	require.NoError(t, second.SaveEntry(ctx, s))

	all, err := s.Query(ctx, store.QueryInput{PK: keys.EntryPartition})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := FindEntry(ctx, s, "velo")
	require.NoError(t, err)
	assert.Equal(t, "Velo Coffee", got.Name)
	assert.Equal(t, "Downtown", got.Neighborhood)
	assert.Empty(t, got.Blurb)
	assert.Equal(t, DefaultTag, got.Tag)
}

func TestEntryValidate(t *testing.T) {
	e := Entry{ID: "  ", Name: ""}
	e.Prepare()
	errs := e.Validate()
	assert.Contains(t, errs, "Required_id")
	assert.Contains(t, errs, "Required_name")

	ok := Entry{ID: "a", Name: "A"}
	assert.Empty(t, ok.Validate())
}

func TestEntryFromItemDefaults(t *testing.T) {
	e := EntryFromItem(store.NewItem(keys.EntryPartition, "legacy").Set("name", "Old Spot"))
	assert.Equal(t, "legacy", e.ID)
	assert.Equal(t, "Local", e.Tag)
	assert.Empty(t, e.ImageURL)
}

func TestLoadEntriesSmallBatchUsesGets(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: memstore.New()}
	for _, id := range []string{"a", "b"} {
		e := Entry{ID: id, Name: id}
		require.NoError(t, e.SaveEntry(ctx, s))
	}

	got, err := LoadEntries(ctx, s, []string{"a", "b", "a", "missing", ""})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 3, s.gets)
	assert.Zero(t, s.queries)
}

func TestLoadEntriesLargeBatchUsesOneQuery(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: memstore.New()}
	var ids []string
	for i := 0; i < 12; i++ {
		e := Entry{ID: fmt.Sprintf("e%02d", i), Name: "n"}
		require.NoError(t, e.SaveEntry(ctx, s))
		ids = append(ids, e.ID)
	}
	extra := Entry{ID: "unrelated", Name: "n"}
	require.NoError(t, extra.SaveEntry(ctx, s))

	got, err := LoadEntries(ctx, s, ids)
	require.NoError(t, err)
	assert.Len(t, got, 12)
	assert.NotContains(t, got, "unrelated")
	assert.Equal(t, 1, s.queries)
	assert.Zero(t, s.gets)
}

func TestMatchupRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	in := Matchup{
		ID: "burger-2024", Title: "Burger Duel", Category: "food",
		LeftEntryID: "a", RightEntryID: "b", Active: true,
		Cadence: "weekly", Message: "vote!",
		StartsAt: ts(t, "2024-05-01T12:00:00Z"),
	}
	require.NoError(t, in.SaveMatchup(ctx, s))

	got, err := FindMatchup(ctx, s, "burger-2024")
	require.NoError(t, err)
	require.NotNil(t, got.StartsAt)
	assert.True(t, in.StartsAt.Equal(*got.StartsAt))
	assert.Nil(t, got.EndsAt)
	got.StartsAt = in.StartsAt
	assert.Equal(t, in, got)

	_, err = FindMatchup(ctx, s, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListMatchupsSkipsLegacyPointer(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	m := Matchup{ID: "m1", Title: "t", Category: "c", LeftEntryID: "a", RightEntryID: "b", Active: true}
	require.NoError(t, m.SaveMatchup(ctx, s))
	legacy := m.Item()
	legacy.SK = keys.LegacyActiveSort
	require.NoError(t, s.Put(ctx, legacy))

	all, err := ListMatchups(ctx, s, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "m1", all[0].ID)

	_, err = FindMatchup(ctx, s, keys.LegacyActiveSort)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMatchupScheduleChecks(t *testing.T) {
	now := *ts(t, "2024-05-01T12:00:00Z")
	hour := time.Hour
	past, future := now.Add(-hour), now.Add(hour)

	open := Matchup{Active: true}
	assert.True(t, open.Visible(now))
	assert.False(t, open.Upcoming(now))

	notStarted := Matchup{Active: true, StartsAt: &future}
	assert.False(t, notStarted.Visible(now))
	assert.True(t, notStarted.Upcoming(now))

	ended := Matchup{Active: true, EndsAt: &past}
	assert.True(t, ended.Ended(now))
	assert.False(t, ended.Visible(now))

	exactStart := Matchup{Active: true, StartsAt: &now, EndsAt: &now}
	assert.True(t, exactStart.Visible(now))

	inactive := Matchup{Active: false}
	assert.False(t, inactive.Visible(now))

	backwards := Matchup{StartsAt: &future, EndsAt: &past}
	assert.False(t, backwards.ScheduleValid())
}

func TestMatchupFromItemIgnoresBadSchedule(t *testing.T) {
	it := store.NewItem(keys.MatchupPartition, "m1").Set("active", true).Set("starts_at", "soon")
	m, ok := MatchupFromItem(it)
	require.True(t, ok)
	assert.Nil(t, m.StartsAt)
}

func TestTallyLifecycle(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	zero, err := FindTally(ctx, s, "m1", false)
	require.NoError(t, err)
	assert.Equal(t, VoteTally{}, zero)

	_, err = AddVote(ctx, s, "m1", SideLeft, false)
	require.NoError(t, err)
	require.NoError(t, EnsureTally(ctx, s, "m1", false))

	counted, err := FindTally(ctx, s, "m1", false)
	require.NoError(t, err)
	assert.Equal(t, VoteTally{Left: 1}, counted)

	synthetic, err := FindTally(ctx, s, "m1", true)
	require.NoError(t, err)
	assert.Equal(t, VoteTally{}, synthetic)

	require.NoError(t, ResetTally(ctx, s, "m1", false))
	counted, err = FindTally(ctx, s, "m1", false)
	require.NoError(t, err)
	assert.Equal(t, VoteTally{}, counted)
}

func TestDeleteMatchupRemovesTallies(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	m := Matchup{ID: "m1", Title: "t", Category: "c", LeftEntryID: "a", RightEntryID: "b"}
	require.NoError(t, m.SaveMatchup(ctx, s))
	_, err := AddVote(ctx, s, "m1", SideRight, false)
	require.NoError(t, err)
	_, err = AddVote(ctx, s, "m1", SideRight, true)
	require.NoError(t, err)
	event := VoteEvent{MatchupID: "m1", Fingerprint: "u1", Side: SideRight, CastAt: time.Now()}
	require.NoError(t, event.SaveVoteEvent(ctx, s))

	require.NoError(t, DeleteMatchup(ctx, s, "m1"))

	_, err = FindMatchup(ctx, s, "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Get(ctx, keys.Votes("m1"), keys.TallySort)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Get(ctx, keys.SyntheticVotes("m1"), keys.TallySort)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, found, err := LatestVoteTimestamp(ctx, s, "m1", "u1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLatestVoteTimestampPicksNewest(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	base := *ts(t, "2024-05-01T12:00:00Z")

	for i := 0; i < 3; i++ {
		e := VoteEvent{MatchupID: "m1", Fingerprint: "u1", Side: SideLeft, CastAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, e.SaveVoteEvent(ctx, s))
	}
	other := VoteEvent{MatchupID: "m1", Fingerprint: "u1#x", Side: SideLeft, CastAt: base.Add(10 * time.Hour)}
	require.NoError(t, other.SaveVoteEvent(ctx, s))

	got, found, err := LatestVoteTimestamp(ctx, s, "m1", "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2024-05-01T14:00:00.000000Z", got)

	_, found, err = LatestVoteTimestamp(ctx, s, "m1", "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}
