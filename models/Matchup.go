package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"Scrumble/store"
	"Scrumble/utils/keys"
	"Scrumble/utils/timeutil"
)

// Matchup pairs two entries. Active marks eligibility only; whether the
// matchup is shown is decided on read against the schedule.
type Matchup struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	LeftEntryID  string     `json:"left_entry_id"`
	RightEntryID string     `json:"right_entry_id"`
	Active       bool       `json:"active"`
	Cadence      string     `json:"cadence,omitempty"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
	EndsAt       *time.Time `json:"ends_at,omitempty"`
	Message      string     `json:"message,omitempty"`
}

func (m *Matchup) Prepare() {
	m.ID = strings.TrimSpace(m.ID)
	m.Title = strings.TrimSpace(m.Title)
	m.Category = strings.TrimSpace(m.Category)
	m.LeftEntryID = strings.TrimSpace(m.LeftEntryID)
	m.RightEntryID = strings.TrimSpace(m.RightEntryID)
	m.Cadence = strings.TrimSpace(m.Cadence)
	m.Message = strings.TrimSpace(m.Message)
}

func (m *Matchup) Validate() map[string]string {
	var err error
	var errorMessages = make(map[string]string)

	if m.ID == "" {
		err = errors.New("required id")
		errorMessages["Required_id"] = err.Error()
	}
	if m.Title == "" {
		err = errors.New("required title")
		errorMessages["Required_title"] = err.Error()
	}
	if m.Category == "" {
		err = errors.New("required category")
		errorMessages["Required_category"] = err.Error()
	}
	if m.LeftEntryID == "" {
		err = errors.New("required left_entry_id")
		errorMessages["Required_left_entry_id"] = err.Error()
	}
	if m.RightEntryID == "" {
		err = errors.New("required right_entry_id")
		errorMessages["Required_right_entry_id"] = err.Error()
	}
	return errorMessages
}

// ScheduleValid reports whether the end, when both bounds are set, is not
// before the start.
func (m *Matchup) ScheduleValid() bool {
	return m.StartsAt == nil || m.EndsAt == nil || !m.EndsAt.Before(*m.StartsAt)
}

// Started reports whether now is at or after StartsAt. An unset start is open.
func (m *Matchup) Started(now time.Time) bool {
	return m.StartsAt == nil || !now.Before(*m.StartsAt)
}

// Ended reports whether now is after EndsAt. An unset end never passes.
func (m *Matchup) Ended(now time.Time) bool {
	return m.EndsAt != nil && now.After(*m.EndsAt)
}

// Visible reports whether the matchup may be shown and voted on at now.
func (m *Matchup) Visible(now time.Time) bool {
	return m.Active && m.Started(now) && !m.Ended(now)
}

// Upcoming reports an active matchup whose start is still ahead of now.
func (m *Matchup) Upcoming(now time.Time) bool {
	return m.Active && !m.Started(now)
}

func (m *Matchup) PairKey() string {
	return keys.PairKey(m.LeftEntryID, m.RightEntryID)
}

// MatchupFromItem decodes a MATCHUP row. ok is false for rows that are not
// matchups, such as the legacy ACTIVE pointer. Unparseable schedule bounds
// decode as unset.
func MatchupFromItem(it store.Item) (Matchup, bool) {
	if it.SK == keys.LegacyActiveSort {
		return Matchup{}, false
	}
	if id := it.String("id"); id != "" && id != it.SK {
		return Matchup{}, false
	}
	m := Matchup{
		ID:           it.SK,
		Title:        it.String("title"),
		Category:     it.String("category"),
		LeftEntryID:  it.String("left_entry_id"),
		RightEntryID: it.String("right_entry_id"),
		Active:       it.Bool("active"),
		Cadence:      it.String("cadence"),
		Message:      it.String("message"),
	}
	m.StartsAt, _ = timeutil.ParseOptional(it.String("starts_at"))
	m.EndsAt, _ = timeutil.ParseOptional(it.String("ends_at"))
	return m, true
}

func (m Matchup) Item() store.Item {
	it := store.NewItem(keys.MatchupPartition, m.ID).
		Set("id", m.ID).
		Set("title", m.Title).
		Set("category", m.Category).
		Set("left_entry_id", m.LeftEntryID).
		Set("right_entry_id", m.RightEntryID).
		Set("active", m.Active)
	if m.Cadence != "" {
		it = it.Set("cadence", m.Cadence)
	}
	if m.Message != "" {
		it = it.Set("message", m.Message)
	}
	if m.StartsAt != nil {
		it = it.Set("starts_at", timeutil.Format(*m.StartsAt))
	}
	if m.EndsAt != nil {
		it = it.Set("ends_at", timeutil.Format(*m.EndsAt))
	}
	return it
}

// SaveMatchup fully overwrites the matchup record.
func (m *Matchup) SaveMatchup(ctx context.Context, s store.Store) error {
	return s.Put(ctx, m.Item())
}

// FindMatchup returns store.ErrNotFound when no matchup has that id.
func FindMatchup(ctx context.Context, s store.Store, id string) (Matchup, error) {
	if id == keys.LegacyActiveSort {
		return Matchup{}, store.ErrNotFound
	}
	it, err := s.Get(ctx, keys.MatchupPartition, id)
	if err != nil {
		return Matchup{}, err
	}
	m, ok := MatchupFromItem(it)
	if !ok {
		return Matchup{}, store.ErrNotFound
	}
	return m, nil
}

// ListMatchups returns matchups passing keep in id order. A nil keep returns all.
func ListMatchups(ctx context.Context, s store.Store, keep func(Matchup) bool) ([]Matchup, error) {
	items, err := s.Query(ctx, store.QueryInput{PK: keys.MatchupPartition})
	if err != nil {
		return nil, err
	}
	out := make([]Matchup, 0, len(items))
	for _, it := range items {
		m, ok := MatchupFromItem(it)
		if !ok {
			continue
		}
		if keep == nil || keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// DeleteMatchup removes the matchup and both of its tallies. Vote events are
// left in place.
func DeleteMatchup(ctx context.Context, s store.Store, id string) error {
	if err := s.Delete(ctx, keys.MatchupPartition, id); err != nil {
		return err
	}
	if err := s.Delete(ctx, keys.Votes(id), keys.TallySort); err != nil {
		return err
	}
	return s.Delete(ctx, keys.SyntheticVotes(id), keys.TallySort)
}
