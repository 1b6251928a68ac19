package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"greenloop/internal/models"
	"greenloop/internal/pkg/caching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func regionLabelStub(code string) string { return "Region " + code }

func TestClampTTLSeconds(t *testing.T) {
	assert.Equal(t, SNAPSHOT_TTL_MIN_SECONDS, clampTTLSeconds(0))
	assert.Equal(t, SNAPSHOT_TTL_MIN_SECONDS, clampTTLSeconds(-5))
	assert.Equal(t, SNAPSHOT_TTL_MIN_SECONDS, clampTTLSeconds(59))
	assert.Equal(t, 60, clampTTLSeconds(60))
	assert.Equal(t, 300, clampTTLSeconds(300))
	assert.Equal(t, 3600, clampTTLSeconds(3600))
	assert.Equal(t, SNAPSHOT_TTL_MAX_SECONDS, clampTTLSeconds(86400))
}

func TestSortStreakEntries(t *testing.T) {
	lastA := day(2026, 1, 4)
	lastB := day(2026, 1, 3)

	entries := []*models.LeaderboardEntry{
		{UserID: 5, CurrentStreak: 3, LongestStreak: 3, TotalCheckins: 3, LastCheckinDate: &lastB},
		{UserID: 2, CurrentStreak: 3, LongestStreak: 3, TotalCheckins: 3, LastCheckinDate: &lastB},
		{UserID: 1, CurrentStreak: 3, LongestStreak: 5, TotalCheckins: 9, LastCheckinDate: &lastB},
		{UserID: 9, CurrentStreak: 7, LongestStreak: 7, TotalCheckins: 7, LastCheckinDate: &lastB},
		{UserID: 4, CurrentStreak: 3, LongestStreak: 3, TotalCheckins: 3, LastCheckinDate: &lastA},
	}

	sortStreakEntries(entries)

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}

	// current desc, then longest desc, then total desc, then last date desc,
	// then user id asc
	assert.Equal(t, []int64{9, 1, 4, 2, 5}, ids)
}

func TestAssemblePointsSnapshot(t *testing.T) {
	now := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)
	rows := []*models.PointsRow{
		{UserID: 1, DisplayName: "a", Points: 500, RegionCode: strPtr("vn"), SchoolID: i64Ptr(10), SchoolName: strPtr("Alpha")},
		{UserID: 2, DisplayName: "b", Points: 400, RegionCode: strPtr("vn")},
		{UserID: 3, DisplayName: "c", Points: 300, RegionCode: strPtr("sg"), SchoolID: i64Ptr(10), SchoolName: strPtr("Alpha")},
		{UserID: 4, DisplayName: "d", Points: 200},
		{UserID: 5, DisplayName: "e", Points: 100, RegionCode: strPtr("vn")},
	}

	snapshot := assemblePointsSnapshot(rows, now, 5*time.Minute, 3, 2, regionLabelStub)

	assert.Equal(t, models.SCOPE_POINTS, snapshot.Scope)
	assert.NotEmpty(t, snapshot.BuildID)
	require.NotNil(t, snapshot.GeneratedAt)
	require.NotNil(t, snapshot.ExpiresAt)
	assert.Equal(t, now.Add(5*time.Minute), *snapshot.ExpiresAt)
	assert.Equal(t, 300, snapshot.TTLSeconds)

	// global capped at 3, ranks follow scan order
	require.Len(t, snapshot.Global, 3)
	assert.Equal(t, int64(1), snapshot.Global[0].UserID)
	assert.Equal(t, 1, snapshot.Global[0].Rank)
	assert.Equal(t, int64(3), snapshot.Global[2].UserID)
	assert.Equal(t, 3, snapshot.Global[2].Rank)

	// region bucket capped at 2, bucket-local ranks
	vn := snapshot.Regions["vn"]
	require.NotNil(t, vn)
	assert.Equal(t, "Region vn", vn.Label)
	require.Len(t, vn.Entries, 2)
	assert.Equal(t, int64(1), vn.Entries[0].UserID)
	assert.Equal(t, 1, vn.Entries[0].Rank)
	assert.Equal(t, int64(2), vn.Entries[1].UserID)
	assert.Equal(t, 2, vn.Entries[1].Rank)

	alpha := snapshot.Schools[10]
	require.NotNil(t, alpha)
	assert.Equal(t, "Alpha", alpha.Name)
	require.Len(t, alpha.Entries, 2)
	assert.Equal(t, 2, alpha.Entries[1].Rank)

	// user without region or school appears only globally
	_, ok := snapshot.Schools[0]
	assert.False(t, ok)

	// points scope carries no rank index
	assert.Nil(t, snapshot.Ranks)
}

func streakRowsFor(userID int64, region *string, school *int64, dates ...time.Time) []*models.StreakRow {
	rows := make([]*models.StreakRow, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, &models.StreakRow{
			UserID:      userID,
			DisplayName: "u",
			RegionCode:  region,
			SchoolID:    school,
			CheckinDate: d,
		})
	}
	return rows
}

func TestAssembleStreakSnapshot(t *testing.T) {
	now := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)
	today := day(2026, 1, 4)

	var rows []*models.StreakRow
	// user 1: 3-day run ending today
	rows = append(rows, streakRowsFor(1, strPtr("vn"), i64Ptr(10), day(2026, 1, 2), day(2026, 1, 3), day(2026, 1, 4))...)
	// user 2: long past run, current streak dead
	rows = append(rows, streakRowsFor(2, strPtr("vn"), nil, day(2025, 12, 1), day(2025, 12, 2), day(2025, 12, 3), day(2025, 12, 4))...)
	// user 3: 2-day run ending yesterday, alive through the grace day
	rows = append(rows, streakRowsFor(3, strPtr("sg"), i64Ptr(10), day(2026, 1, 2), day(2026, 1, 3))...)
	// user 4: single checkin today
	rows = append(rows, streakRowsFor(4, strPtr("vn"), nil, day(2026, 1, 4))...)

	snapshot := assembleStreakSnapshot(rows, today, time.UTC, now, 5*time.Minute, 2, 1, regionLabelStub)

	assert.Equal(t, models.SCOPE_STREAK, snapshot.Scope)
	require.NotNil(t, snapshot.Ranks)

	// order: u1 (current 3), u3 (current 2), u4 (current 1), u2 (current 0)
	require.Len(t, snapshot.Global, 2)
	assert.Equal(t, int64(1), snapshot.Global[0].UserID)
	assert.Equal(t, 3, snapshot.Global[0].CurrentStreak)
	assert.Equal(t, int64(3), snapshot.Global[1].UserID)
	assert.Equal(t, 2, snapshot.Global[1].CurrentStreak)

	// the rank index covers users beyond the visible top-K
	assert.Equal(t, 1, snapshot.Ranks.Global[1])
	assert.Equal(t, 2, snapshot.Ranks.Global[3])
	assert.Equal(t, 3, snapshot.Ranks.Global[4])
	assert.Equal(t, 4, snapshot.Ranks.Global[2])

	// user 2 lost the current streak but keeps longest and total
	var u2 *models.LeaderboardEntry
	for _, bucket := range snapshot.Regions {
		for _, e := range bucket.Entries {
			if e.UserID == 2 {
				u2 = e
			}
		}
	}
	assert.Nil(t, u2, "dead streak should not outrank live ones in a size-1 bucket")

	vn := snapshot.Regions["vn"]
	require.NotNil(t, vn)
	require.Len(t, vn.Entries, 1)
	assert.Equal(t, int64(1), vn.Entries[0].UserID)

	// bucket-local ranks differ from global ones
	assert.Equal(t, 1, snapshot.Ranks.Regions["sg"][3])
	assert.Equal(t, 2, snapshot.Ranks.Regions["vn"][4])
	assert.Equal(t, 3, snapshot.Ranks.Regions["vn"][2])

	sg := snapshot.Regions["sg"]
	require.NotNil(t, sg)
	assert.Equal(t, "Region sg", sg.Label)

	alpha := snapshot.Schools[10]
	require.NotNil(t, alpha)
	require.Len(t, alpha.Entries, 1)
	assert.Equal(t, int64(1), alpha.Entries[0].UserID)
	assert.Equal(t, 2, snapshot.Ranks.Schools[10][3])
}

func TestAssembleStreakSnapshotDuplicateDates(t *testing.T) {
	now := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)
	today := day(2026, 1, 4)

	rows := streakRowsFor(1, nil, nil, day(2026, 1, 3), day(2026, 1, 3), day(2026, 1, 4))

	snapshot := assembleStreakSnapshot(rows, today, time.UTC, now, time.Minute, 10, 10, regionLabelStub)

	require.Len(t, snapshot.Global, 1)
	assert.Equal(t, 2, snapshot.Global[0].CurrentStreak)
	assert.Equal(t, 2, snapshot.Global[0].TotalCheckins)
}

func TestAssembleStreakSnapshotEmpty(t *testing.T) {
	now := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)

	snapshot := assembleStreakSnapshot(nil, day(2026, 1, 4), time.UTC, now, time.Minute, 10, 10, regionLabelStub)

	assert.Empty(t, snapshot.Global)
	assert.Empty(t, snapshot.Regions)
	assert.Empty(t, snapshot.Schools)
	require.NotNil(t, snapshot.Ranks)
	assert.Empty(t, snapshot.Ranks.Global)
}

func TestRebuildFailOpen(t *testing.T) {
	ctx := context.Background()
	store := caching.NewFileStore[*models.Snapshot](filepath.Join(t.TempDir(), "points.json"))

	service := &ServiceLeaderboard{now: time.Now}

	failing := func(ctx context.Context, ttl time.Duration) (*models.Snapshot, error) {
		return nil, errors.New("scan failed")
	}

	// no previous snapshot: a structurally valid empty one comes back
	snapshot := service.rebuild(ctx, models.SCOPE_POINTS, store, "expired", time.Minute, failing)
	require.NotNil(t, snapshot)
	assert.Equal(t, models.SCOPE_POINTS, snapshot.Scope)
	assert.Empty(t, snapshot.Global)
	assert.NotNil(t, snapshot.Regions)
	assert.NotNil(t, snapshot.Schools)

	// seed a good snapshot, then fail again: the previous one survives
	good := &models.Snapshot{Scope: models.SCOPE_POINTS, BuildID: "known-good"}
	working := func(ctx context.Context, ttl time.Duration) (*models.Snapshot, error) {
		return good, nil
	}
	built := service.rebuild(ctx, models.SCOPE_POINTS, store, "forced", time.Minute, working)
	assert.Equal(t, "known-good", built.BuildID)

	snapshot = service.rebuild(ctx, models.SCOPE_POINTS, store, "expired", time.Minute, failing)
	require.NotNil(t, snapshot)
	assert.Equal(t, "known-good", snapshot.BuildID)
}

func TestLoadFresh(t *testing.T) {
	ctx := context.Background()
	store := caching.NewFileStore[*models.Snapshot](filepath.Join(t.TempDir(), "streak.json"))

	base := time.Now()
	service := &ServiceLeaderboard{now: func() time.Time { return base }}

	// empty store is never fresh
	_, ok := service.loadFresh(ctx, store, time.Minute)
	assert.False(t, ok)

	require.NoError(t, store.Store(ctx, &models.Snapshot{Scope: models.SCOPE_STREAK, BuildID: "b1"}))

	// stored "now"; fresh right up to the TTL boundary
	service.now = func() time.Time { return base.Add(59 * time.Second) }
	snapshot, ok := service.loadFresh(ctx, store, time.Minute)
	require.True(t, ok)
	assert.Equal(t, "b1", snapshot.BuildID)

	// one second past the TTL is stale
	service.now = func() time.Time { return base.Add(61 * time.Second) }
	_, ok = service.loadFresh(ctx, store, time.Minute)
	assert.False(t, ok)
}

func TestAuthorizeRefresh(t *testing.T) {
	unset := &ServiceLeaderboard{}
	assert.ErrorIs(t, unset.AuthorizeRefresh("anything"), ErrRefreshNotConfigured)
	assert.ErrorIs(t, unset.AuthorizeRefresh(""), ErrRefreshNotConfigured)

	service := &ServiceLeaderboard{refreshSecret: "s3cret"}
	assert.ErrorIs(t, service.AuthorizeRefresh("wrong"), ErrRefreshForbidden)
	assert.ErrorIs(t, service.AuthorizeRefresh(""), ErrRefreshForbidden)
	assert.NoError(t, service.AuthorizeRefresh("s3cret"))
}
