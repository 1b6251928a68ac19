package services

import (
	"context"
	"crypto/subtle"
	"log"
	"os"
	"sort"
	"time"

	"greenloop/internal/datastore"
	"greenloop/internal/datastore/redis_store"
	"greenloop/internal/interfaces"
	"greenloop/internal/models"
	"greenloop/internal/pkg"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceLeaderboard struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	readonlyPostgresDB *bun.DB
	pointsStore        interfaces.SnapshotStore
	streakStore        interfaces.SnapshotStore

	serviceConfig *ServiceConfig
	serviceRegion *ServiceRegion

	refreshSecret string
	now           func() time.Time
}

func NewServiceLeaderboard(container *do.Injector) (*ServiceLeaderboard, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-cache")
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	pointsStore, err := do.InvokeNamed[interfaces.SnapshotStore](container, "points-snapshot-store")
	if err != nil {
		return nil, err
	}

	streakStore, err := do.InvokeNamed[interfaces.SnapshotStore](container, "streak-snapshot-store")
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	serviceRegion, err := do.Invoke[*ServiceRegion](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLeaderboard{
		container:          container,
		redisDB:            redisDB,
		readonlyPostgresDB: readonlyPostgresDB,
		pointsStore:        pointsStore,
		streakStore:        streakStore,
		serviceConfig:      serviceConfig,
		serviceRegion:      serviceRegion,
		refreshSecret:      os.Getenv("LEADERBOARD_REFRESH_SECRET"),
		now:                time.Now,
	}, nil
}

// GetSnapshot serves the cached snapshot for a scope while it is younger
// than the TTL, otherwise rebuilds inline. Reads are fail-open: a rebuild
// failure still yields the last-known-good or an empty snapshot.
func (service *ServiceLeaderboard) GetSnapshot(ctx context.Context, scope string, force bool) (*models.Snapshot, error) {
	store, err := service.storeFor(scope)
	if err != nil {
		return nil, err
	}

	ttl := service.snapshotTTL(ctx)

	if !force {
		if snapshot, ok := service.loadFresh(ctx, store, ttl); ok {
			return snapshot, nil
		}

		return service.rebuildScope(ctx, scope, "expired"), nil
	}

	return service.rebuildScope(ctx, scope, "forced"), nil
}

// RebuildCache recomputes a scope's snapshot and overwrites the cache file.
// It never errors outward; see rebuild.
func (service *ServiceLeaderboard) RebuildCache(ctx context.Context, scope string, reason string) (*models.Snapshot, error) {
	if _, err := service.storeFor(scope); err != nil {
		return nil, err
	}

	return service.rebuildScope(ctx, scope, reason), nil
}

// AuthorizeRefresh gates the manual refresh trigger. An unset secret
// disables the trigger entirely; the comparison is constant-time.
func (service *ServiceLeaderboard) AuthorizeRefresh(key string) error {
	if service.refreshSecret == "" {
		return ErrRefreshNotConfigured
	}

	if subtle.ConstantTimeCompare([]byte(key), []byte(service.refreshSecret)) != 1 {
		return ErrRefreshForbidden
	}

	return nil
}

func (service *ServiceLeaderboard) storeFor(scope string) (interfaces.SnapshotStore, error) {
	switch scope {
	case models.SCOPE_POINTS:
		return service.pointsStore, nil
	case models.SCOPE_STREAK:
		return service.streakStore, nil
	default:
		return nil, ErrUnknownScope
	}
}

func (service *ServiceLeaderboard) snapshotTTL(ctx context.Context) time.Duration {
	seconds, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_LEADERBOARD_TTL_SECONDS, SNAPSHOT_TTL_DEFAULT_SECONDS)
	return time.Duration(clampTTLSeconds(seconds)) * time.Second
}

// clampTTLSeconds bounds the configured TTL to [60, 3600] regardless of the
// stored value.
func clampTTLSeconds(seconds int) int {
	if seconds < SNAPSHOT_TTL_MIN_SECONDS {
		return SNAPSHOT_TTL_MIN_SECONDS
	}
	if seconds > SNAPSHOT_TTL_MAX_SECONDS {
		return SNAPSHOT_TTL_MAX_SECONDS
	}
	return seconds
}

func (service *ServiceLeaderboard) loadFresh(ctx context.Context, store interfaces.SnapshotStore, ttl time.Duration) (*models.Snapshot, bool) {
	snapshot, storedAt, err := store.Load(ctx)
	if err != nil || snapshot == nil {
		return nil, false
	}

	if service.now().Sub(storedAt) > ttl {
		return nil, false
	}

	return snapshot, true
}

func (service *ServiceLeaderboard) rebuildScope(ctx context.Context, scope string, reason string) *models.Snapshot {
	ttl := service.snapshotTTL(ctx)

	build := service.buildPointsSnapshot
	store := service.pointsStore
	if scope == models.SCOPE_STREAK {
		build = service.buildStreakSnapshot
		store = service.streakStore
	}

	return service.rebuild(ctx, scope, store, reason, ttl, build)
}

// rebuild runs a builder and persists the result. On any failure it logs and
// falls back to the previous cache contents, else to a structurally valid
// empty snapshot; nothing propagates to the caller.
func (service *ServiceLeaderboard) rebuild(ctx context.Context, scope string, store interfaces.SnapshotStore, reason string, ttl time.Duration, build func(ctx context.Context, ttl time.Duration) (*models.Snapshot, error)) *models.Snapshot {
	snapshot, err := build(ctx, ttl)
	if err != nil {
		log.Println("leaderboard rebuild failed:", scope, reason, err)

		previous, _, loadErr := store.Load(ctx)
		if loadErr == nil && previous != nil {
			return previous
		}

		return emptySnapshot(scope, ttl)
	}

	if err := store.Store(ctx, snapshot); err != nil {
		log.Println("leaderboard snapshot write failed:", scope, reason, err)
	} else if service.redisDB != nil {
		//nolint:errcheck
		redis_store.SaveRebuildMark(ctx, service.redisDB, &models.RebuildMark{
			Scope:   scope,
			Reason:  reason,
			BuildID: snapshot.BuildID,
			At:      service.now(),
		})
	}

	return snapshot
}

func (service *ServiceLeaderboard) caps(ctx context.Context) (int, int) {
	globalCap, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_GLOBAL_LEADERBOARD_LIMIT, GLOBAL_LEADERBOARD_DEFAULT_LIMIT)
	bucketCap, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_BUCKET_LEADERBOARD_LIMIT, BUCKET_LEADERBOARD_DEFAULT_LIMIT)
	return globalCap, bucketCap
}

func (service *ServiceLeaderboard) buildPointsSnapshot(ctx context.Context, ttl time.Duration) (*models.Snapshot, error) {
	rows, err := datastore.GetPointsRows(ctx, service.readonlyPostgresDB)
	if err != nil {
		return nil, err
	}

	globalCap, bucketCap := service.caps(ctx)
	regionLabel := func(code string) string {
		return service.serviceRegion.Label(ctx, code)
	}

	return assemblePointsSnapshot(rows, service.now(), ttl, globalCap, bucketCap, regionLabel), nil
}

func (service *ServiceLeaderboard) buildStreakSnapshot(ctx context.Context, ttl time.Duration) (*models.Snapshot, error) {
	rows, err := datastore.GetStreakRows(ctx, service.readonlyPostgresDB)
	if err != nil {
		return nil, err
	}

	globalCap, bucketCap := service.caps(ctx)
	regionLabel := func(code string) string {
		return service.serviceRegion.Label(ctx, code)
	}

	loc := service.serviceConfig.Timezone(ctx)
	now := service.now()

	return assembleStreakSnapshot(rows, pkg.DayOf(now, loc), loc, now, ttl, globalCap, bucketCap, regionLabel), nil
}

func emptySnapshot(scope string, ttl time.Duration) *models.Snapshot {
	snapshot := &models.Snapshot{
		Scope:      scope,
		TTLSeconds: int(ttl.Seconds()),
		Global:     []*models.LeaderboardEntry{},
		Regions:    map[string]*models.RegionBucket{},
		Schools:    map[int64]*models.SchoolBucket{},
	}

	if scope == models.SCOPE_STREAK {
		snapshot.Ranks = &models.RankIndex{
			Global:  map[int64]int{},
			Regions: map[string]map[int64]int{},
			Schools: map[int64]map[int64]int{},
		}
	}

	return snapshot
}

func newSnapshot(scope string, generatedAt time.Time, ttl time.Duration) *models.Snapshot {
	snapshot := emptySnapshot(scope, ttl)
	snapshot.BuildID = uuid.NewString()
	expiresAt := generatedAt.Add(ttl)
	snapshot.GeneratedAt = &generatedAt
	snapshot.ExpiresAt = &expiresAt
	return snapshot
}

// assemblePointsSnapshot walks the pre-sorted scan once, appending into the
// global list and lazily-created region/school buckets until each hits its
// cap. Ranks are the 1-based append positions; the (points desc, id asc)
// scan order makes them deterministic for equal totals.
func assemblePointsSnapshot(rows []*models.PointsRow, generatedAt time.Time, ttl time.Duration, globalCap, bucketCap int, regionLabel func(code string) string) *models.Snapshot {
	snapshot := newSnapshot(models.SCOPE_POINTS, generatedAt, ttl)

	for _, row := range rows {
		entry := &models.LeaderboardEntry{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			AvatarURL:   row.AvatarURL,
			RegionCode:  row.RegionCode,
			SchoolID:    row.SchoolID,
			SchoolName:  row.SchoolName,
			Points:      row.Points,
		}

		if len(snapshot.Global) < globalCap {
			ranked := *entry
			ranked.Rank = len(snapshot.Global) + 1
			snapshot.Global = append(snapshot.Global, &ranked)
		}

		if row.RegionCode != nil {
			bucket, ok := snapshot.Regions[*row.RegionCode]
			if !ok {
				bucket = &models.RegionBucket{Label: regionLabel(*row.RegionCode), Entries: []*models.LeaderboardEntry{}}
				snapshot.Regions[*row.RegionCode] = bucket
			}

			if len(bucket.Entries) < bucketCap {
				ranked := *entry
				ranked.Rank = len(bucket.Entries) + 1
				bucket.Entries = append(bucket.Entries, &ranked)
			}
		}

		if row.SchoolID != nil {
			bucket, ok := snapshot.Schools[*row.SchoolID]
			if !ok {
				name := ""
				if row.SchoolName != nil {
					name = *row.SchoolName
				}
				bucket = &models.SchoolBucket{Name: name, Entries: []*models.LeaderboardEntry{}}
				snapshot.Schools[*row.SchoolID] = bucket
			}

			if len(bucket.Entries) < bucketCap {
				ranked := *entry
				ranked.Rank = len(bucket.Entries) + 1
				bucket.Entries = append(bucket.Entries, &ranked)
			}
		}
	}

	return snapshot
}

// streakAccumulator carries one user's in-flight run while the scan streams
// by in (user_id, checkin_date) order.
type streakAccumulator struct {
	userID      int64
	displayName string
	avatarURL   *string
	regionCode  *string
	schoolID    *int64
	schoolName  *string

	lastDate   time.Time
	currentRun int
	longestRun int
	total      int
}

func (acc *streakAccumulator) flush(today time.Time) *models.LeaderboardEntry {
	longest := acc.longestRun
	if acc.currentRun > longest {
		longest = acc.currentRun
	}

	// the grace rule zeroes the current streak but never the longest
	current := 0
	if delta := pkg.DaysBetween(acc.lastDate, today); delta == 0 || delta == 1 {
		current = acc.currentRun
	}

	last := acc.lastDate
	return &models.LeaderboardEntry{
		UserID:          acc.userID,
		DisplayName:     acc.displayName,
		AvatarURL:       acc.avatarURL,
		RegionCode:      acc.regionCode,
		SchoolID:        acc.schoolID,
		SchoolName:      acc.schoolName,
		CurrentStreak:   current,
		LongestStreak:   longest,
		TotalCheckins:   acc.total,
		LastCheckinDate: &last,
	}
}

// assembleStreakSnapshot aggregates every user's streak from a single sorted
// scan: one accumulator at a time, flushed on each user_id group break, then
// a full sort with the composite comparator. Rank maps cover the entire
// entry set; listings are the truncated top-K.
func assembleStreakSnapshot(rows []*models.StreakRow, today time.Time, loc *time.Location, generatedAt time.Time, ttl time.Duration, globalCap, bucketCap int, regionLabel func(code string) string) *models.Snapshot {
	snapshot := newSnapshot(models.SCOPE_STREAK, generatedAt, ttl)

	entries := make([]*models.LeaderboardEntry, 0)

	var acc *streakAccumulator
	for _, row := range rows {
		day := pkg.DayOf(row.CheckinDate, loc)

		if acc == nil || acc.userID != row.UserID {
			if acc != nil {
				entries = append(entries, acc.flush(today))
			}

			acc = &streakAccumulator{
				userID:      row.UserID,
				displayName: row.DisplayName,
				avatarURL:   row.AvatarURL,
				regionCode:  row.RegionCode,
				schoolID:    row.SchoolID,
				schoolName:  row.SchoolName,
				lastDate:    day,
				currentRun:  1,
				longestRun:  1,
				total:       1,
			}
			continue
		}

		diff := pkg.DaysBetween(acc.lastDate, day)
		if diff == 0 {
			// duplicate guard, the unique index should prevent this
			continue
		}

		if diff == 1 {
			acc.currentRun++
		} else {
			acc.currentRun = 1
		}

		if acc.currentRun > acc.longestRun {
			acc.longestRun = acc.currentRun
		}

		acc.total++
		acc.lastDate = day
	}

	if acc != nil {
		entries = append(entries, acc.flush(today))
	}

	sortStreakEntries(entries)

	for i, entry := range entries {
		snapshot.Ranks.Global[entry.UserID] = i + 1

		if len(snapshot.Global) < globalCap {
			ranked := *entry
			ranked.Rank = i + 1
			snapshot.Global = append(snapshot.Global, &ranked)
		}
	}

	// region and school buckets are filtered subsets ranked independently;
	// a user's bucket ranks need not match their global rank
	for _, entry := range entries {
		if entry.RegionCode != nil {
			code := *entry.RegionCode
			bucket, ok := snapshot.Regions[code]
			if !ok {
				bucket = &models.RegionBucket{Label: regionLabel(code), Entries: []*models.LeaderboardEntry{}}
				snapshot.Regions[code] = bucket
				snapshot.Ranks.Regions[code] = map[int64]int{}
			}

			rank := len(snapshot.Ranks.Regions[code]) + 1
			snapshot.Ranks.Regions[code][entry.UserID] = rank

			if len(bucket.Entries) < bucketCap {
				ranked := *entry
				ranked.Rank = rank
				bucket.Entries = append(bucket.Entries, &ranked)
			}
		}

		if entry.SchoolID != nil {
			schoolID := *entry.SchoolID
			bucket, ok := snapshot.Schools[schoolID]
			if !ok {
				name := ""
				if entry.SchoolName != nil {
					name = *entry.SchoolName
				}
				bucket = &models.SchoolBucket{Name: name, Entries: []*models.LeaderboardEntry{}}
				snapshot.Schools[schoolID] = bucket
				snapshot.Ranks.Schools[schoolID] = map[int64]int{}
			}

			rank := len(snapshot.Ranks.Schools[schoolID]) + 1
			snapshot.Ranks.Schools[schoolID][entry.UserID] = rank

			if len(bucket.Entries) < bucketCap {
				ranked := *entry
				ranked.Rank = rank
				bucket.Entries = append(bucket.Entries, &ranked)
			}
		}
	}

	return snapshot
}

// sortStreakEntries orders by current streak, longest streak, total
// checkins, last checkin date (all descending), then ascending user id so
// full ties always resolve the same way.
func sortStreakEntries(entries []*models.LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.CurrentStreak != b.CurrentStreak {
			return a.CurrentStreak > b.CurrentStreak
		}
		if a.LongestStreak != b.LongestStreak {
			return a.LongestStreak > b.LongestStreak
		}
		if a.TotalCheckins != b.TotalCheckins {
			return a.TotalCheckins > b.TotalCheckins
		}
		if a.LastCheckinDate != nil && b.LastCheckinDate != nil && !a.LastCheckinDate.Equal(*b.LastCheckinDate) {
			return a.LastCheckinDate.After(*b.LastCheckinDate)
		}
		return a.UserID < b.UserID
	})
}
