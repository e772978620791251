package matchups

import (
	"context"
	"log/slog"

	"Scrumble/models"
	"Scrumble/store"
	"Scrumble/utils/timeutil"

	"golang.org/x/sync/errgroup"
)

// tallyFetchConcurrency bounds concurrent tally reads per assembly.
const tallyFetchConcurrency = 8

type MatchupView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
	Cadence  string `json:"cadence,omitempty"`
	StartsAt string `json:"starts_at,omitempty"`
	EndsAt   string `json:"ends_at,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Payload is a matchup joined with both entries and its tally.
type Payload struct {
	Matchup        MatchupView       `json:"matchup"`
	Left           models.Entry      `json:"left"`
	Right          models.Entry      `json:"right"`
	Votes          models.VoteTally  `json:"votes"`
	SyntheticVotes *models.VoteTally `json:"synthetic_votes,omitempty"`
}

// ViewOf projects a matchup into its public shape.
func ViewOf(m models.Matchup) MatchupView {
	return MatchupView{
		ID:       m.ID,
		Title:    m.Title,
		Category: m.Category,
		Active:   m.Active,
		Cadence:  m.Cadence,
		StartsAt: timeutil.FormatOptional(m.StartsAt),
		EndsAt:   timeutil.FormatOptional(m.EndsAt),
		Message:  m.Message,
	}
}

type Assembler struct {
	store  store.Store
	logger *slog.Logger
}

func NewAssembler(s store.Store, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{store: s, logger: logger}
}

// Build joins each matchup with its entries and tallies, keeping input order.
// Matchups whose entries are missing are logged and left out. Tallies are
// read as stored; nothing is added to them.
func (a *Assembler) Build(ctx context.Context, ms []models.Matchup, withSynthetic bool) ([]Payload, error) {
	kept, entries, err := a.Resolve(ctx, ms)
	if err != nil {
		return nil, err
	}
	return a.join(ctx, kept, entries, withSynthetic)
}

// Resolve loads the entries of ms and returns the matchups whose entries both
// exist, in input order, along with the loaded entries.
func (a *Assembler) Resolve(ctx context.Context, ms []models.Matchup) ([]models.Matchup, map[string]models.Entry, error) {
	if len(ms) == 0 {
		return ms, map[string]models.Entry{}, nil
	}
	ids := make([]string, 0, 2*len(ms))
	for _, m := range ms {
		ids = append(ids, m.LeftEntryID, m.RightEntryID)
	}
	entries, err := models.LoadEntries(ctx, a.store, ids)
	if err != nil {
		return nil, nil, err
	}

	kept := make([]models.Matchup, 0, len(ms))
	for _, m := range ms {
		_, okLeft := entries[m.LeftEntryID]
		_, okRight := entries[m.RightEntryID]
		if !okLeft || !okRight {
			a.logger.Warn("skipping matchup with missing entry",
				"matchup_id", m.ID, "left_entry_id", m.LeftEntryID, "right_entry_id", m.RightEntryID)
			continue
		}
		kept = append(kept, m)
	}
	return kept, entries, nil
}

// join expects every entry of ms to be present in entries.
func (a *Assembler) join(ctx context.Context, ms []models.Matchup, entries map[string]models.Entry, withSynthetic bool) ([]Payload, error) {
	out := make([]Payload, 0, len(ms))
	if len(ms) == 0 {
		return out, nil
	}

	counted := make([]models.VoteTally, len(ms))
	synthetic := make([]models.VoteTally, len(ms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tallyFetchConcurrency)
	for i, m := range ms {
		i, m := i, m
		g.Go(func() error {
			t, err := models.FindTally(gctx, a.store, m.ID, false)
			if err != nil {
				return err
			}
			counted[i] = t
			if !withSynthetic {
				return nil
			}
			t, err = models.FindTally(gctx, a.store, m.ID, true)
			if err != nil {
				return err
			}
			synthetic[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, m := range ms {
		p := Payload{Matchup: ViewOf(m), Left: entries[m.LeftEntryID], Right: entries[m.RightEntryID], Votes: counted[i]}
		if withSynthetic {
			p.SyntheticVotes = &synthetic[i]
		}
		out = append(out, p)
	}
	return out, nil
}
