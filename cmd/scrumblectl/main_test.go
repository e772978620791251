package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "Scrumble"
	"Scrumble/config"
	"Scrumble/models"
)

func memoryServices(t *testing.T) (*commandContext, *api.Services) {
	t.Helper()
	cfg, err := config.FromLookup(func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	svc, err := api.NewServices(context.Background(), cfg, nil)
	require.NoError(t, err)
	return &commandContext{newServices: func(context.Context) (*api.Services, error) { return svc, nil }}, svc
}

func execute(t *testing.T, ctx *commandContext, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedAndArchive(t *testing.T) {
	ctx, svc := memoryServices(t)

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"entries": [{"id": "a", "name": "A"}, {"id": "b", "name": "B"}],
		"matchups": [{"id": "m1", "title": "A vs B", "category": "food",
			"left_entry_id": "a", "right_entry_id": "b", "active": true, "ends_at": "2020-01-01"}]
	}`), 0o644))

	out, err := execute(t, ctx, "seed", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 2 entries and 1 matchups")

	out, err = execute(t, ctx, "archive")
	require.NoError(t, err)
	assert.Contains(t, out, "Archived 1 matchups")

	m, err := models.FindMatchup(context.Background(), svc.Store, "m1")
	require.NoError(t, err)
	assert.False(t, m.Active)
}

func TestSeedMissingFile(t *testing.T) {
	ctx, _ := memoryServices(t)
	_, err := execute(t, ctx, "seed", "--file", filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "open seed file")
}

func TestLoadCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"matchups":[]}`))
	}))
	defer srv.Close()

	ctx, _ := memoryServices(t)
	out, err := execute(t, ctx, "load", "--base", srv.URL, "--duration", "100ms", "--rps", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 2")
	assert.Contains(t, out, "successes: 2")
}
