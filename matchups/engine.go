// Package matchups implements the matchup lifecycle: listing with schedule
// and duplicate-pair rules, admin edits, and archival. Visibility is always
// computed on read from the active flag and the schedule.
package matchups

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"Scrumble/metrics"
	"Scrumble/models"
	"Scrumble/store"
	"Scrumble/utils/apperror"
	"Scrumble/utils/timeutil"

	"github.com/google/uuid"
)

const cloneTitleSuffix = " (copy)"

type Engine struct {
	store     store.Store
	clock     timeutil.Clock
	metrics   metrics.Sink
	logger    *slog.Logger
	assembler *Assembler
	newSuffix func() string
}

type Option func(*Engine)

func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithMetrics(m metrics.Sink) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCloneSuffix replaces the random suffix appended to cloned ids.
func WithCloneSuffix(fn func() string) Option {
	return func(e *Engine) { e.newSuffix = fn }
}

func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		clock:   timeutil.System,
		metrics: metrics.Nop{},
		logger:  slog.Default(),
		newSuffix: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.assembler = NewAssembler(s, e.logger)
	return e
}

// ListVisible returns active matchups with at most one per entry pair. With
// applyTimeWindow the schedule is enforced too; admin listings pass false.
func (e *Engine) ListVisible(ctx context.Context, applyTimeWindow bool) ([]Payload, error) {
	now := e.clock.Now()
	ms, err := models.ListMatchups(ctx, e.store, func(m models.Matchup) bool {
		if !m.Active {
			return false
		}
		return !applyTimeWindow || m.Visible(now)
	})
	if err != nil {
		return nil, apperror.Dependency("list matchups", err)
	}
	// Pairs are deduplicated among matchups that can be rendered, so a winner
	// with a missing entry never hides a complete duplicate.
	kept, entries, err := e.assembler.Resolve(ctx, ms)
	if err != nil {
		return nil, apperror.Dependency("resolve matchup entries", err)
	}
	out, err := e.assembler.join(ctx, suppressDuplicatePairs(kept), entries, false)
	if err != nil {
		return nil, apperror.Dependency("assemble matchups", err)
	}
	return out, nil
}

// History returns matchups that are neither visible nor scheduled ahead,
// most recent first.
func (e *Engine) History(ctx context.Context) ([]Payload, error) {
	now := e.clock.Now()
	ms, err := models.ListMatchups(ctx, e.store, func(m models.Matchup) bool {
		return !m.Visible(now) && !m.Upcoming(now)
	})
	if err != nil {
		return nil, apperror.Dependency("list matchups", err)
	}
	sort.SliceStable(ms, func(i, j int) bool { return newerThan(ms[i], ms[j]) })
	return e.build(ctx, ms, false)
}

// Future returns active matchups whose start is still ahead, soonest first.
func (e *Engine) Future(ctx context.Context) ([]Payload, error) {
	now := e.clock.Now()
	ms, err := models.ListMatchups(ctx, e.store, func(m models.Matchup) bool {
		return m.Upcoming(now)
	})
	if err != nil {
		return nil, apperror.Dependency("list matchups", err)
	}
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if !a.StartsAt.Equal(*b.StartsAt) {
			return a.StartsAt.Before(*b.StartsAt)
		}
		return a.ID < b.ID
	})
	return e.build(ctx, ms, false)
}

// AdminListAll returns every matchup with both its real and synthetic tally.
func (e *Engine) AdminListAll(ctx context.Context) ([]Payload, error) {
	ms, err := models.ListMatchups(ctx, e.store, nil)
	if err != nil {
		return nil, apperror.Dependency("list matchups", err)
	}
	return e.build(ctx, ms, true)
}

func (e *Engine) build(ctx context.Context, ms []models.Matchup, withSynthetic bool) ([]Payload, error) {
	out, err := e.assembler.Build(ctx, ms, withSynthetic)
	if err != nil {
		return nil, apperror.Dependency("assemble matchups", err)
	}
	return out, nil
}

// Activate marks the matchup active unless another active matchup already
// uses the same pair of entries.
func (e *Engine) Activate(ctx context.Context, id string) (models.Matchup, error) {
	m, err := e.find(ctx, id)
	if err != nil {
		return models.Matchup{}, err
	}
	if err := e.checkDuplicateActive(ctx, m); err != nil {
		return models.Matchup{}, err
	}
	m.Active = true
	if err := m.SaveMatchup(ctx, e.store); err != nil {
		return models.Matchup{}, apperror.Dependency("save matchup", err)
	}
	e.logger.Info("matchup activated", "matchup_id", m.ID)
	return m, nil
}

func (e *Engine) Deactivate(ctx context.Context, id string) (models.Matchup, error) {
	m, err := e.find(ctx, id)
	if err != nil {
		return models.Matchup{}, err
	}
	m.Active = false
	if err := m.SaveMatchup(ctx, e.store); err != nil {
		return models.Matchup{}, apperror.Dependency("save matchup", err)
	}
	e.logger.Info("matchup deactivated", "matchup_id", m.ID)
	return m, nil
}

// CreateInput carries a new matchup. Left and Right, when set, are upserted
// and may stand in for the matching entry id.
type CreateInput struct {
	ID           string
	Title        string
	Category     string
	LeftEntryID  string
	RightEntryID string
	Active       bool
	Cadence      string
	Message      string
	StartsAt     string
	EndsAt       string
	Left         *models.Entry
	Right        *models.Entry
}

// Create validates everything before writing: inline entries first, then
// the matchup, then a zeroed tally when none exists yet. Other matchups are
// never touched.
func (e *Engine) Create(ctx context.Context, in CreateInput) (models.Matchup, error) {
	m := models.Matchup{
		ID:           in.ID,
		Title:        in.Title,
		Category:     in.Category,
		LeftEntryID:  in.LeftEntryID,
		RightEntryID: in.RightEntryID,
		Active:       in.Active,
		Cadence:      in.Cadence,
		Message:      in.Message,
	}
	if strings.TrimSpace(m.LeftEntryID) == "" && in.Left != nil {
		m.LeftEntryID = in.Left.ID
	}
	if strings.TrimSpace(m.RightEntryID) == "" && in.Right != nil {
		m.RightEntryID = in.Right.ID
	}
	m.Prepare()
	if errs := m.Validate(); len(errs) > 0 {
		return models.Matchup{}, apperror.Validation(apperror.CodeMissingField,
			"id, title, category, left_entry_id, right_entry_id are required")
	}
	if m.LeftEntryID == m.RightEntryID {
		return models.Matchup{}, apperror.Validation(apperror.CodeSameEntry, "a matchup needs two different entries")
	}

	var err error
	if m.StartsAt, err = parseBound("starts_at", in.StartsAt); err != nil {
		return models.Matchup{}, err
	}
	if m.EndsAt, err = parseBound("ends_at", in.EndsAt); err != nil {
		return models.Matchup{}, err
	}
	if !m.ScheduleValid() {
		return models.Matchup{}, apperror.Validation(apperror.CodeInvalidSchedule, "ends_at is before starts_at")
	}

	left, err := e.resolveEntry(ctx, "left", m.LeftEntryID, m.Category, in.Left)
	if err != nil {
		return models.Matchup{}, err
	}
	right, err := e.resolveEntry(ctx, "right", m.RightEntryID, m.Category, in.Right)
	if err != nil {
		return models.Matchup{}, err
	}
	if m.Active {
		if err := e.checkDuplicateActive(ctx, m); err != nil {
			return models.Matchup{}, err
		}
	}

	for _, entry := range []*models.Entry{left, right} {
		if entry == nil {
			continue
		}
		if err := entry.SaveEntry(ctx, e.store); err != nil {
			return models.Matchup{}, apperror.Dependency("save entry", err)
		}
	}
	if err := m.SaveMatchup(ctx, e.store); err != nil {
		return models.Matchup{}, apperror.Dependency("save matchup", err)
	}
	if err := models.EnsureTally(ctx, e.store, m.ID, false); err != nil {
		return models.Matchup{}, apperror.Dependency("create tally", err)
	}
	e.logger.Info("matchup created", "matchup_id", m.ID, "active", m.Active)
	return m, nil
}

// resolveEntry returns the prepared inline entry to upsert, or nil after
// confirming the referenced entry exists.
func (e *Engine) resolveEntry(ctx context.Context, side, id, category string, inline *models.Entry) (*models.Entry, error) {
	if inline == nil {
		_, err := models.FindEntry(ctx, e.store, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NotFound(apperror.CodeEntryNotFound, "Entry not found: %s", id)
		}
		if err != nil {
			return nil, apperror.Dependency("load entry", err)
		}
		return nil, nil
	}

	entry := *inline
	entry.Prepare()
	if entry.Category == "" {
		entry.Category = category
	}
	if errs := entry.Validate(); len(errs) > 0 {
		return nil, apperror.Validation(apperror.CodeEntryInvalid, "%s entry id and name are required", side)
	}
	if entry.ID != id {
		return nil, apperror.Validation(apperror.CodeEntryInvalid, "%s entry id %q does not match %s_entry_id %q", side, entry.ID, side, id)
	}
	return &entry, nil
}

// Patch lists the fields Update may change. An empty StartsAt or EndsAt
// clears that bound.
type Patch struct {
	StartsAt *string
	EndsAt   *string
	Cadence  *string
	Message  *string
	Active   *bool
}

func (p Patch) empty() bool {
	return p.StartsAt == nil && p.EndsAt == nil && p.Cadence == nil && p.Message == nil && p.Active == nil
}

func (e *Engine) Update(ctx context.Context, id string, p Patch) (models.Matchup, error) {
	if strings.TrimSpace(id) == "" {
		return models.Matchup{}, apperror.Validation(apperror.CodeMissingField, "matchup_id is required")
	}
	if p.empty() {
		return models.Matchup{}, apperror.Validation(apperror.CodeNoFields, "no updatable fields supplied")
	}
	m, err := e.find(ctx, id)
	if err != nil {
		return models.Matchup{}, err
	}

	if p.StartsAt != nil {
		if m.StartsAt, err = parseBound("starts_at", *p.StartsAt); err != nil {
			return models.Matchup{}, err
		}
	}
	if p.EndsAt != nil {
		if m.EndsAt, err = parseBound("ends_at", *p.EndsAt); err != nil {
			return models.Matchup{}, err
		}
	}
	if !m.ScheduleValid() {
		return models.Matchup{}, apperror.Validation(apperror.CodeInvalidSchedule, "ends_at is before starts_at")
	}
	if p.Cadence != nil {
		m.Cadence = strings.TrimSpace(*p.Cadence)
	}
	if p.Message != nil {
		m.Message = strings.TrimSpace(*p.Message)
	}
	if p.Active != nil {
		if *p.Active {
			if err := e.checkDuplicateActive(ctx, m); err != nil {
				return models.Matchup{}, err
			}
		}
		m.Active = *p.Active
	}

	if err := m.SaveMatchup(ctx, e.store); err != nil {
		return models.Matchup{}, apperror.Dependency("save matchup", err)
	}
	e.logger.Info("matchup updated", "matchup_id", m.ID)
	return m, nil
}

// Clone copies the matchup under a new id, inactive and unscheduled, with a
// fresh zero tally.
func (e *Engine) Clone(ctx context.Context, id string) (models.Matchup, error) {
	src, err := e.find(ctx, id)
	if err != nil {
		return models.Matchup{}, err
	}
	clone := models.Matchup{
		ID:           src.ID + "-" + e.newSuffix(),
		Title:        src.Title + cloneTitleSuffix,
		Category:     src.Category,
		LeftEntryID:  src.LeftEntryID,
		RightEntryID: src.RightEntryID,
		Active:       false,
		Cadence:      src.Cadence,
		Message:      src.Message,
	}
	if err := clone.SaveMatchup(ctx, e.store); err != nil {
		return models.Matchup{}, apperror.Dependency("save matchup", err)
	}
	if err := models.ResetTally(ctx, e.store, clone.ID, false); err != nil {
		return models.Matchup{}, apperror.Dependency("create tally", err)
	}
	e.logger.Info("matchup cloned", "matchup_id", src.ID, "clone_id", clone.ID)
	return clone, nil
}

// Delete removes the matchup and its tallies. Vote events stay behind.
func (e *Engine) Delete(ctx context.Context, id string) error {
	m, err := e.find(ctx, id)
	if err != nil {
		return err
	}
	if err := models.DeleteMatchup(ctx, e.store, m.ID); err != nil {
		return apperror.Dependency("delete matchup", err)
	}
	e.logger.Info("matchup deleted", "matchup_id", m.ID)
	return nil
}

type Skipped struct {
	MatchupID string `json:"matchup_id"`
	Code      string `json:"code"`
}

type BulkResult struct {
	Updated int       `json:"updated"`
	Skipped []Skipped `json:"skipped"`
}

// BulkActivate activates each id in order with the same duplicate-pair check
// as Activate. Ids that fail a check are reported in Skipped; a store
// failure stops the batch.
func (e *Engine) BulkActivate(ctx context.Context, ids []string) (BulkResult, error) {
	return e.bulk(ctx, ids, e.Activate)
}

func (e *Engine) BulkDeactivate(ctx context.Context, ids []string) (BulkResult, error) {
	return e.bulk(ctx, ids, e.Deactivate)
}

func (e *Engine) bulk(ctx context.Context, ids []string, apply func(context.Context, string) (models.Matchup, error)) (BulkResult, error) {
	res := BulkResult{Skipped: []Skipped{}}
	seen := make(map[string]bool, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := apply(ctx, id); err != nil {
			if apperror.Retryable(err) {
				return res, err
			}
			res.Skipped = append(res.Skipped, Skipped{MatchupID: id, Code: apperror.CodeOf(err)})
			continue
		}
		res.Updated++
	}
	if len(seen) == 0 {
		return res, apperror.Validation(apperror.CodeMissingField, "matchup_ids is required")
	}
	return res, nil
}

// ArchiveEnded deactivates every active matchup whose end has passed and
// reports how many it changed.
func (e *Engine) ArchiveEnded(ctx context.Context) (int, error) {
	now := e.clock.Now()
	ended, err := models.ListMatchups(ctx, e.store, func(m models.Matchup) bool {
		return m.Active && m.Ended(now)
	})
	if err != nil {
		return 0, apperror.Dependency("list matchups", err)
	}
	archived := 0
	for _, m := range ended {
		m.Active = false
		if err := m.SaveMatchup(ctx, e.store); err != nil {
			e.metrics.MatchupsArchived(archived)
			return archived, apperror.Dependency("archive matchup", err)
		}
		archived++
	}
	e.metrics.MatchupsArchived(archived)
	if archived > 0 {
		e.logger.Info("archived ended matchups", "count", archived)
	}
	return archived, nil
}

func (e *Engine) find(ctx context.Context, id string) (models.Matchup, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Matchup{}, apperror.Validation(apperror.CodeMissingField, "matchup_id is required")
	}
	m, err := models.FindMatchup(ctx, e.store, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Matchup{}, apperror.NotFound(apperror.CodeMatchupNotFound, "Matchup not found")
	}
	if err != nil {
		return models.Matchup{}, apperror.Dependency("load matchup", err)
	}
	return m, nil
}

func (e *Engine) checkDuplicateActive(ctx context.Context, target models.Matchup) error {
	pair := target.PairKey()
	dupes, err := models.ListMatchups(ctx, e.store, func(m models.Matchup) bool {
		return m.Active && m.ID != target.ID && m.PairKey() == pair
	})
	if err != nil {
		return apperror.Dependency("list matchups", err)
	}
	if len(dupes) > 0 {
		return apperror.Conflict(apperror.CodeDuplicateActive,
			"matchup %s with the same entries is already active", dupes[0].ID)
	}
	return nil
}

func parseBound(field, value string) (*time.Time, error) {
	t, err := timeutil.ParseOptional(value)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeInvalidTime, "%s: unrecognized time %q", field, value)
	}
	return t, nil
}

// suppressDuplicatePairs keeps one matchup per unordered entry pair, in the
// input order of the survivors.
func suppressDuplicatePairs(ms []models.Matchup) []models.Matchup {
	best := make(map[string]models.Matchup, len(ms))
	for _, m := range ms {
		key := m.PairKey()
		if cur, ok := best[key]; !ok || preferred(m, cur) {
			best[key] = m
		}
	}
	out := make([]models.Matchup, 0, len(best))
	for _, m := range ms {
		if best[m.PairKey()].ID == m.ID {
			out = append(out, m)
		}
	}
	return out
}

// preferred orders duplicate candidates: a scheduled start beats none, a
// later start beats an earlier one, and the smaller id breaks ties.
func preferred(a, b models.Matchup) bool {
	if (a.StartsAt != nil) != (b.StartsAt != nil) {
		return a.StartsAt != nil
	}
	if a.StartsAt != nil && !a.StartsAt.Equal(*b.StartsAt) {
		return a.StartsAt.After(*b.StartsAt)
	}
	return a.ID < b.ID
}

// newerThan orders history by the latest known bound, ends_at before
// starts_at, with unscheduled matchups last in descending id order.
func newerThan(a, b models.Matchup) bool {
	ta, tb := latestBound(a), latestBound(b)
	switch {
	case ta != nil && tb != nil && !ta.Equal(*tb):
		return ta.After(*tb)
	case (ta != nil) != (tb != nil):
		return ta != nil
	}
	return a.ID > b.ID
}

func latestBound(m models.Matchup) *time.Time {
	if m.EndsAt != nil {
		return m.EndsAt
	}
	return m.StartsAt
}
