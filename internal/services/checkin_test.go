package services

import (
	"testing"
	"time"

	"greenloop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func organicOn(dates ...time.Time) []*models.CheckinEvent {
	events := make([]*models.CheckinEvent, 0, len(dates))
	for _, d := range dates {
		events = append(events, &models.CheckinEvent{CheckinDate: d, Source: models.CHECKIN_SOURCE_ORGANIC})
	}
	return events
}

func TestComputeStreakStateEmpty(t *testing.T) {
	state := computeStreakState(nil, day(2026, 1, 4), time.UTC)

	assert.Equal(t, 0, state.CurrentStreak)
	assert.Equal(t, 0, state.LongestStreak)
	assert.Equal(t, 0, state.TotalDays)
	assert.Nil(t, state.LastCheckinDate)
	assert.False(t, state.ActiveToday)
}

func TestComputeStreakStateBrokenRun(t *testing.T) {
	// two-day run, a duplicate, a gap, then a single day
	events := organicOn(
		day(2026, 1, 1),
		day(2026, 1, 2),
		day(2026, 1, 2),
		day(2026, 1, 4),
	)

	state := computeStreakState(events, day(2026, 1, 4), time.UTC)

	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, 2, state.LongestStreak)
	assert.Equal(t, 3, state.TotalDays)
	assert.True(t, state.ActiveToday)
	require.NotNil(t, state.LastCheckinDate)
	assert.Equal(t, day(2026, 1, 4), *state.LastCheckinDate)
}

func TestComputeStreakStateUnbrokenRun(t *testing.T) {
	events := organicOn(
		day(2026, 1, 1),
		day(2026, 1, 2),
		day(2026, 1, 3),
		day(2026, 1, 4),
	)

	state := computeStreakState(events, day(2026, 1, 4), time.UTC)

	assert.Equal(t, 4, state.CurrentStreak)
	assert.Equal(t, 4, state.LongestStreak)
	assert.Equal(t, 4, state.TotalDays)
	assert.True(t, state.ActiveToday)
}

func TestComputeStreakStateGraceDay(t *testing.T) {
	events := organicOn(
		day(2026, 1, 2),
		day(2026, 1, 3),
	)

	// last checkin was yesterday: streak survives but the day is not active
	state := computeStreakState(events, day(2026, 1, 4), time.UTC)
	assert.Equal(t, 2, state.CurrentStreak)
	assert.False(t, state.ActiveToday)

	// two days ago: streak is gone, history stays
	state = computeStreakState(events, day(2026, 1, 5), time.UTC)
	assert.Equal(t, 0, state.CurrentStreak)
	assert.Equal(t, 2, state.LongestStreak)
	assert.Equal(t, 2, state.TotalDays)
}

func TestComputeStreakStateMakeupCountsLikeOrganic(t *testing.T) {
	events := []*models.CheckinEvent{
		{CheckinDate: day(2026, 1, 1), Source: models.CHECKIN_SOURCE_ORGANIC},
		{CheckinDate: day(2026, 1, 2), Source: models.CHECKIN_SOURCE_MAKEUP},
		{CheckinDate: day(2026, 1, 3), Source: models.CHECKIN_SOURCE_ORGANIC},
	}

	state := computeStreakState(events, day(2026, 1, 3), time.UTC)

	assert.Equal(t, 3, state.CurrentStreak)
	assert.Equal(t, 3, state.LongestStreak)
	assert.Equal(t, 3, state.TotalDays)
	assert.Equal(t, 1, state.MakeupDays)
}

func TestComputeStreakStateLongestSurvivesLaterShortRuns(t *testing.T) {
	events := organicOn(
		day(2026, 1, 1),
		day(2026, 1, 2),
		day(2026, 1, 3),
		day(2026, 1, 4),
		day(2026, 1, 5),
		day(2026, 1, 10),
		day(2026, 1, 11),
	)

	state := computeStreakState(events, day(2026, 1, 11), time.UTC)

	assert.Equal(t, 2, state.CurrentStreak)
	assert.Equal(t, 5, state.LongestStreak)
	assert.Equal(t, 7, state.TotalDays)
}
