package models

import (
	"context"
	"strings"
	"time"

	"Scrumble/store"
	"Scrumble/utils/keys"
	"Scrumble/utils/timeutil"
)

// VoteEvent is the append-only record of one counted real vote.
type VoteEvent struct {
	MatchupID   string
	Fingerprint string
	Side        string
	CastAt      time.Time
}

func (e VoteEvent) Item() store.Item {
	ts := timeutil.Format(e.CastAt)
	return store.NewItem(keys.Votes(e.MatchupID), keys.VoteEventSort(e.Fingerprint, ts)).
		Set("matchup_id", e.MatchupID).
		Set("fingerprint", e.Fingerprint).
		Set("side", e.Side).
		Set("ts", ts)
}

func (e *VoteEvent) SaveVoteEvent(ctx context.Context, s store.Store) error {
	return s.Put(ctx, e.Item())
}

// LatestVoteTimestamp returns the raw timestamp of the newest event cast by
// fingerprint on the matchup. found is false when the voter has no events.
func LatestVoteTimestamp(ctx context.Context, s store.Store, matchupID, fingerprint string) (ts string, found bool, err error) {
	prefix := keys.VoterPrefix(fingerprint)
	items, err := s.Query(ctx, store.QueryInput{
		PK:          keys.Votes(matchupID),
		SKPrefix:    prefix,
		NewestFirst: true,
		Limit:       1,
	})
	if err != nil {
		return "", false, err
	}
	if len(items) == 0 {
		return "", false, nil
	}
	if ts = items[0].String("ts"); ts == "" {
		ts = strings.TrimPrefix(items[0].SK, prefix)
	}
	return ts, true, nil
}
