// Package voting validates, deduplicates and tallies votes.
package voting

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"Scrumble/metrics"
	"Scrumble/models"
	"Scrumble/store"
	"Scrumble/utils/apperror"
	"Scrumble/utils/keys"
	"Scrumble/utils/timeutil"
)

const DefaultDedupWindow = 24 * time.Hour

type Ballot struct {
	MatchupID   string
	Side        string
	Fingerprint string
	Synthetic   bool
}

// Receipt describes a counted vote. Count is the side's tally after the add.
type Receipt struct {
	MatchupID string `json:"matchup_id"`
	Side      string `json:"side"`
	Count     int64  `json:"count"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

type Ledger struct {
	store   store.Store
	clock   timeutil.Clock
	window  time.Duration
	metrics metrics.Sink
	logger  *slog.Logger
}

type Option func(*Ledger)

func WithClock(c timeutil.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithDedupWindow sets how long a fingerprint waits between counted votes on
// one matchup. Non-positive values keep the default.
func WithDedupWindow(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.window = d
		}
	}
}

func WithMetrics(m metrics.Sink) Option {
	return func(l *Ledger) { l.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func NewLedger(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		clock:   timeutil.System,
		window:  DefaultDedupWindow,
		metrics: metrics.Nop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CastVote checks the ballot and, when every check passes, adds exactly one
// vote to the chosen side. Checks run in a fixed order and the first failure
// is returned.
func (l *Ledger) CastVote(ctx context.Context, b Ballot) (Receipt, error) {
	matchupID := strings.TrimSpace(b.MatchupID)
	side := strings.ToLower(strings.TrimSpace(b.Side))
	if matchupID == "" || !models.ValidSide(side) {
		return Receipt{}, l.reject(apperror.Validation(apperror.CodeVoteInvalid, "matchup_id and side (left or right) are required"))
	}

	m, err := models.FindMatchup(ctx, l.store, matchupID)
	if errors.Is(err, store.ErrNotFound) {
		return Receipt{}, l.reject(apperror.NotFound(apperror.CodeMatchupNotFound, "matchup %s not found", matchupID))
	}
	if err != nil {
		return Receipt{}, apperror.Dependency("load matchup", err)
	}

	now := l.clock.Now()
	switch {
	case !m.Active:
		return Receipt{}, l.reject(apperror.StateInvalid(apperror.CodeMatchupNotActive, "matchup is not active"))
	case !m.Started(now):
		return Receipt{}, l.reject(apperror.StateInvalid(apperror.CodeMatchupNotStarted, "matchup has not started"))
	case m.Ended(now):
		return Receipt{}, l.reject(apperror.StateInvalid(apperror.CodeMatchupEnded, "matchup has ended"))
	}

	fingerprint := keys.NormalizeFingerprint(b.Fingerprint)
	if !b.Synthetic {
		voted, err := l.votedWithinWindow(ctx, matchupID, fingerprint, now)
		if err != nil {
			return Receipt{}, apperror.Dependency("check previous vote", err)
		}
		if voted {
			return Receipt{}, l.reject(apperror.Conflict(apperror.CodeVoteAlreadyCast, "already voted on this matchup"))
		}
	}

	count, err := models.AddVote(ctx, l.store, matchupID, side, b.Synthetic)
	if err != nil {
		return Receipt{}, apperror.Dependency("record vote", err)
	}

	if !b.Synthetic {
		event := models.VoteEvent{MatchupID: matchupID, Fingerprint: fingerprint, Side: side, CastAt: now}
		if err := event.SaveVoteEvent(ctx, l.store); err != nil {
			l.metrics.VoteEventDropped()
			l.logger.Warn("vote counted but event not written", "error", err, "matchup_id", matchupID, "side", side)
		}
	}

	l.metrics.VoteCast(side, b.Synthetic)
	l.logger.Info("vote cast", "matchup_id", matchupID, "side", side, "count", count, "synthetic", b.Synthetic)

	return Receipt{MatchupID: matchupID, Side: side, Count: count, Synthetic: b.Synthetic}, nil
}

// ResetVotes zeroes the real tally and, with includeSynthetic, the synthetic one.
func (l *Ledger) ResetVotes(ctx context.Context, matchupID string, includeSynthetic bool) error {
	matchupID = strings.TrimSpace(matchupID)
	if matchupID == "" {
		return apperror.Validation(apperror.CodeMissingField, "matchup_id is required")
	}
	if _, err := models.FindMatchup(ctx, l.store, matchupID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NotFound(apperror.CodeMatchupNotFound, "matchup %s not found", matchupID)
		}
		return apperror.Dependency("load matchup", err)
	}

	if err := models.ResetTally(ctx, l.store, matchupID, false); err != nil {
		return apperror.Dependency("reset votes", err)
	}
	if includeSynthetic {
		if err := models.ResetTally(ctx, l.store, matchupID, true); err != nil {
			return apperror.Dependency("reset synthetic votes", err)
		}
	}
	l.logger.Info("votes reset", "matchup_id", matchupID, "include_synthetic", includeSynthetic)
	return nil
}

// votedWithinWindow compares the voter's newest event to the window. An
// event whose timestamp cannot be read counts as a recent vote.
func (l *Ledger) votedWithinWindow(ctx context.Context, matchupID, fingerprint string, now time.Time) (bool, error) {
	raw, found, err := models.LatestVoteTimestamp(ctx, l.store, matchupID, fingerprint)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	last, err := timeutil.Parse(raw)
	if err != nil {
		l.logger.Warn("unreadable vote timestamp", "matchup_id", matchupID, "value", raw)
		return true, nil
	}
	return now.Sub(last) < l.window, nil
}

func (l *Ledger) reject(err *apperror.Error) error {
	l.metrics.VoteRejected(err.Code)
	return err
}
