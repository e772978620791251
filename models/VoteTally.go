package models

import (
	"context"
	"errors"

	"Scrumble/store"
	"Scrumble/utils/keys"
)

const (
	SideLeft  = "left"
	SideRight = "right"
)

func ValidSide(side string) bool {
	return side == SideLeft || side == SideRight
}

type VoteTally struct {
	Left  int64 `json:"left"`
	Right int64 `json:"right"`
}

// TallyPartition picks the real or synthetic tally namespace.
func TallyPartition(matchupID string, synthetic bool) string {
	if synthetic {
		return keys.SyntheticVotes(matchupID)
	}
	return keys.Votes(matchupID)
}

func TallyFromItem(it store.Item) VoteTally {
	return VoteTally{Left: it.Int(SideLeft), Right: it.Int(SideRight)}
}

// FindTally returns a zero tally when none has been written yet.
func FindTally(ctx context.Context, s store.Store, matchupID string, synthetic bool) (VoteTally, error) {
	it, err := s.Get(ctx, TallyPartition(matchupID, synthetic), keys.TallySort)
	if errors.Is(err, store.ErrNotFound) {
		return VoteTally{}, nil
	}
	if err != nil {
		return VoteTally{}, err
	}
	return TallyFromItem(it), nil
}

// EnsureTally writes a zeroed tally only when none exists.
func EnsureTally(ctx context.Context, s store.Store, matchupID string, synthetic bool) error {
	_, err := s.Get(ctx, TallyPartition(matchupID, synthetic), keys.TallySort)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return ResetTally(ctx, s, matchupID, synthetic)
}

func ResetTally(ctx context.Context, s store.Store, matchupID string, synthetic bool) error {
	return s.Put(ctx, store.NewItem(TallyPartition(matchupID, synthetic), keys.TallySort).
		Set(SideLeft, int64(0)).
		Set(SideRight, int64(0)))
}

// AddVote atomically increments one side and returns its new count.
func AddVote(ctx context.Context, s store.Store, matchupID, side string, synthetic bool) (int64, error) {
	return s.AtomicAdd(ctx, TallyPartition(matchupID, synthetic), keys.TallySort, side, 1)
}
