package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCalendarDate(t *testing.T) {
	loc := time.UTC

	parsed, err := ParseCalendarDate("2026-01-04", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, loc), parsed)

	parsed, err = ParseCalendarDate("  2026-01-04  ", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, loc), parsed)

	// fallback layouts still land on midnight
	parsed, err = ParseCalendarDate("2026/01/04", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, loc), parsed)

	parsed, err = ParseCalendarDate("01/04/2026", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, loc), parsed)

	_, err = ParseCalendarDate("not-a-date", loc)
	assert.Error(t, err)

	_, err = ParseCalendarDate("", loc)
	assert.Error(t, err)
}

func TestParseCalendarDateAnchorsToLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	parsed, err := ParseCalendarDate("2026-01-04", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, parsed.Location())
	assert.Equal(t, 0, parsed.Hour())
}

func TestDayOf(t *testing.T) {
	loc := time.UTC
	ts := time.Date(2026, 3, 15, 23, 59, 59, 999, loc)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, loc), DayOf(ts, loc))

	// a late-evening UTC instant is already the next day further east
	hcm, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, hcm), DayOf(ts, hcm))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, 1, DaysBetween(a, a.AddDate(0, 0, 1)))
	assert.Equal(t, 31, DaysBetween(a, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysBetween(a.AddDate(0, 0, 1), a))
}

func TestDaysBetweenAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// spring-forward 2026-03-29: the day is 23 hours long locally
	before := time.Date(2026, 3, 28, 0, 0, 0, 0, loc)
	after := time.Date(2026, 3, 30, 0, 0, 0, 0, loc)
	assert.Equal(t, 2, DaysBetween(before, after))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 5, 20, 1, 0, 0, 0, time.UTC)
	b := time.Date(2026, 5, 20, 23, 0, 0, 0, time.UTC)
	c := time.Date(2026, 5, 21, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, c))
}
