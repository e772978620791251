package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Scrumble/matchups"
	"Scrumble/models"
	"Scrumble/store/memstore"
	"Scrumble/utils/apperror"
)

const seedJSON = `{
  "entries": [
    {"id": "joes", "name": "Joe's", "blurb": "Smash burgers", "neighborhood": "Mission", "category": "food"},
    {"id": "bobs", "name": "Bob's", "blurb": "Diner", "neighborhood": "Sunset", "category": "food", "tag": "Classic"}
  ],
  "matchups": [
    {"id": "burgers-1", "title": "Best Burger", "category": "food",
     "left_entry_id": "joes", "right_entry_id": "bobs", "active": true},
    {"id": "burgers-0", "title": "Best Burger (old)", "category": "food",
     "left_entry_id": "joes", "right_entry_id": "bobs", "active": false, "ends_at": "2024-01-01"}
  ]
}`

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := matchups.NewEngine(s)

	f, err := Decode(strings.NewReader(seedJSON))
	require.NoError(t, err)

	res, err := Load(ctx, s, engine, f, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Entries: 2, Matchups: 2}, res)

	joes, err := models.FindEntry(ctx, s, "joes")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTag, joes.Tag)

	m, err := models.FindMatchup(ctx, s, "burgers-1")
	require.NoError(t, err)
	assert.True(t, m.Active)

	_, err = models.AddVote(ctx, s, "burgers-1", models.SideLeft, false)
	require.NoError(t, err)

	// Seeding again keeps tallies.
	_, err = Load(ctx, s, engine, f, nil)
	require.NoError(t, err)
	tally, err := models.FindTally(ctx, s, "burgers-1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.Left)
}

func TestLoadRejectsBadRows(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := matchups.NewEngine(s)

	_, err := Load(ctx, s, engine, File{Entries: []models.Entry{{ID: "x"}}}, nil)
	assert.ErrorContains(t, err, "required entry name")

	_, err = Load(ctx, s, engine, File{Matchups: []Matchup{{
		ID: "m", Title: "T", Category: "food", LeftEntryID: "ghost", RightEntryID: "other",
	}}}, nil)
	assert.Equal(t, apperror.CodeEntryNotFound, apperror.CodeOf(err))
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"entries": [`))
	assert.ErrorContains(t, err, "decode seed file")
}
