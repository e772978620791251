// Package seed loads entries and matchups from a JSON document such as
// docs/seed-data.json.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"Scrumble/matchups"
	"Scrumble/models"
	"Scrumble/store"
)

type File struct {
	Entries  []models.Entry `json:"entries"`
	Matchups []Matchup      `json:"matchups"`
}

// Matchup is a seed row. Times use any layout the admin API accepts.
type Matchup struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	LeftEntryID  string `json:"left_entry_id"`
	RightEntryID string `json:"right_entry_id"`
	Active       bool   `json:"active"`
	Cadence      string `json:"cadence"`
	Message      string `json:"message"`
	StartsAt     string `json:"starts_at"`
	EndsAt       string `json:"ends_at"`
}

type Result struct {
	Entries  int `json:"entries"`
	Matchups int `json:"matchups"`
}

func Decode(r io.Reader) (File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	return f, nil
}

// Load writes every entry, then creates every matchup through the engine so
// seeded data passes the same checks as the admin API. Re-running a seed
// overwrites records in place and keeps existing tallies.
func Load(ctx context.Context, s store.Store, engine *matchups.Engine, f File, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res Result

	for i := range f.Entries {
		e := f.Entries[i]
		e.Prepare()
		if errs := e.Validate(); len(errs) > 0 {
			return res, fmt.Errorf("entry %d (%q): %s", i, e.ID, joinErrors(errs))
		}
		if err := e.SaveEntry(ctx, s); err != nil {
			return res, fmt.Errorf("save entry %s: %w", e.ID, err)
		}
		logger.Debug("seeded entry", "entry_id", e.ID, "name", e.Name)
		res.Entries++
	}

	// Inactive rows go first so an active row wins any pairing it shares.
	ordered := append([]Matchup(nil), f.Matchups...)
	sort.SliceStable(ordered, func(i, j int) bool { return !ordered[i].Active && ordered[j].Active })

	for _, m := range ordered {
		_, err := engine.Create(ctx, matchups.CreateInput{
			ID:           m.ID,
			Title:        m.Title,
			Category:     m.Category,
			LeftEntryID:  m.LeftEntryID,
			RightEntryID: m.RightEntryID,
			Active:       m.Active,
			Cadence:      m.Cadence,
			Message:      m.Message,
			StartsAt:     m.StartsAt,
			EndsAt:       m.EndsAt,
		})
		if err != nil {
			return res, fmt.Errorf("seed matchup %s: %w", m.ID, err)
		}
		logger.Debug("seeded matchup", "matchup_id", m.ID, "active", m.Active)
		res.Matchups++
	}

	logger.Info("seed complete", "entries", res.Entries, "matchups", res.Matchups)
	return res, nil
}

func joinErrors(errs map[string]string) string {
	msgs := make([]string, 0, len(errs))
	for _, msg := range errs {
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, ", ")
}
