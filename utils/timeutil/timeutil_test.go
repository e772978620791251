package timeutil

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptedLayouts(t *testing.T) {
	want := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)

	cases := map[string]string{
		"rfc3339 utc":    "2024-05-01T18:30:00Z",
		"rfc3339 offset": "2024-05-01T13:30:00-05:00",
		"naive iso":      "2024-05-01T18:30:00",
		"naive micro":    "2024-05-01T18:30:00.000000",
		"space":          "2024-05-01 18:30:00",
		"form input":     "2024-05-01T18:30",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Parse(input)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	day, err := Parse("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), day)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "yesterday", "2024-13-45"} {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrInvalidTime, input)
	}
}

func TestParseOptional(t *testing.T) {
	got, err := ParseOptional("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseOptional("2024-05-01T00:00:00Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2024, got.Year())

	_, err = ParseOptional("nope")
	assert.Error(t, err)
}

func TestFormatIsFixedWidthAndSortable(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	instants := []time.Time{
		base.Add(1500 * time.Millisecond),
		base,
		base.Add(time.Second),
		base.Add(10 * time.Microsecond),
	}
	formatted := make([]string, len(instants))
	for i, in := range instants {
		formatted[i] = Format(in)
		assert.Len(t, formatted[i], len(Layout))
	}
	sort.Strings(formatted)
	assert.Equal(t, []string{
		"2024-01-01T00:00:00.000000Z",
		"2024-01-01T00:00:00.000010Z",
		"2024-01-01T00:00:01.000000Z",
		"2024-01-01T00:00:01.500000Z",
	}, formatted)

	roundTrip, err := Parse(formatted[3])
	require.NoError(t, err)
	assert.True(t, roundTrip.Equal(base.Add(1500*time.Millisecond)))
}

func TestFormatOptional(t *testing.T) {
	assert.Equal(t, "", FormatOptional(nil))
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, "2023-12-31T23:00:00.000000Z", FormatOptional(&at))
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFake(start)
	clock.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), clock.Now())
	clock.Set(start)
	assert.Equal(t, start, clock.Now())
}
