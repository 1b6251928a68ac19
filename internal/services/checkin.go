package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"greenloop/internal/datastore"
	"greenloop/internal/datastore/redis_store"
	"greenloop/internal/models"
	"greenloop/internal/pkg"
	"greenloop/internal/pkg/caching"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceCheckin struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceConfig *ServiceConfig
}

func NewServiceCheckin(container *do.Injector) (*ServiceCheckin, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-cache")
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceCheckin{container, redisDB, postgresDB, readonlyPostgresDB, cache, readonlyCache, serviceConfig}, nil
}

// RecordOrganicCheckin records today's attendance as a side effect of an
// activity submission. It is best-effort: any failure is logged and reported
// as "no new row" so the submission itself is never aborted.
func (service *ServiceCheckin) RecordOrganicCheckin(ctx context.Context, userID int64, recordID *int64, ts time.Time) bool {
	day := pkg.DayOf(ts, service.serviceConfig.Timezone(ctx))

	claimed, err := redis_store.MarkCheckinDay(ctx, service.redisDB, userID, day)
	if err == nil && !claimed {
		// day already claimed, skip the ledger round-trip
		return false
	}

	inserted, err := datastore.InsertCheckin(ctx, service.postgresDB, &models.CheckinEvent{
		UserID:      userID,
		CheckinDate: day,
		Source:      models.CHECKIN_SOURCE_ORGANIC,
		RecordID:    recordID,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		log.Println("record organic checkin:", userID, err)
		//nolint:errcheck
		redis_store.UnmarkCheckinDay(ctx, service.redisDB, userID, day)
		return false
	}

	if inserted {
		service.invalidateStreak(ctx, userID)
	}

	return inserted
}

// RecordMakeupCheckin backfills a missed day. The caller is responsible for
// rejecting future dates and consuming the monthly quota first; the ledger
// only guarantees at most one row per day.
func (service *ServiceCheckin) RecordMakeupCheckin(ctx context.Context, userID int64, date time.Time, note *string, recordID *int64) (*models.CheckinEvent, error) {
	day := pkg.DayOf(date, service.serviceConfig.Timezone(ctx))

	event := &models.CheckinEvent{
		UserID:      userID,
		CheckinDate: day,
		Source:      models.CHECKIN_SOURCE_MAKEUP,
		RecordID:    recordID,
		Note:        note,
		CreatedAt:   time.Now(),
	}

	inserted, err := datastore.InsertCheckin(ctx, service.postgresDB, event)
	if err != nil {
		log.Println("record makeup checkin:", userID, err)
		return nil, err
	}

	if !inserted {
		return nil, ErrAlreadyCheckedIn
	}

	//nolint:errcheck
	redis_store.MarkCheckinDay(ctx, service.redisDB, userID, day)
	service.invalidateStreak(ctx, userID)

	return event, nil
}

func (service *ServiceCheckin) HasCheckin(ctx context.Context, userID int64, date time.Time) (bool, error) {
	day := pkg.DayOf(date, service.serviceConfig.Timezone(ctx))
	return datastore.CheckinExists(ctx, service.readonlyPostgresDB, userID, day)
}

// ListCheckins returns the user's events in [from, to], both inclusive. The
// span is clamped to MAX_CHECKIN_RANGE_DAYS to bound the query.
func (service *ServiceCheckin) ListCheckins(ctx context.Context, userID int64, from, to time.Time) ([]*models.CheckinEvent, error) {
	loc := service.serviceConfig.Timezone(ctx)
	fromDay := pkg.DayOf(from, loc)
	toDay := pkg.DayOf(to, loc)

	if toDay.Before(fromDay) {
		return nil, fmt.Errorf("invalid range: %s after %s", fromDay.Format("2006-01-02"), toDay.Format("2006-01-02"))
	}

	if pkg.DaysBetween(fromDay, toDay) > MAX_CHECKIN_RANGE_DAYS {
		toDay = fromDay.AddDate(0, 0, MAX_CHECKIN_RANGE_DAYS)
	}

	return datastore.GetUserCheckinsInRange(ctx, service.readonlyPostgresDB, userID, fromDay, toDay)
}

// CountMakeupCheckinsThisMonth supports the caller-side monthly quota check
// in front of RecordMakeupCheckin.
func (service *ServiceCheckin) CountMakeupCheckinsThisMonth(ctx context.Context, userID int64) (int, error) {
	loc := service.serviceConfig.Timezone(ctx)
	now := time.Now().In(loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	return datastore.CountMakeupCheckinsSince(ctx, service.readonlyPostgresDB, userID, monthStart)
}

// ComputeStreak derives the user's streak state from the ordered date
// sequence, fresh on every call; only leaderboard snapshots cache it.
func (service *ServiceCheckin) ComputeStreak(ctx context.Context, userID int64, asOf time.Time) (*models.StreakState, error) {
	loc := service.serviceConfig.Timezone(ctx)
	asOfDay := pkg.DayOf(asOf, loc)

	callback := func() (*models.StreakState, error) {
		events, err := datastore.GetUserCheckins(ctx, service.readonlyPostgresDB, userID)
		if err != nil {
			return nil, err
		}

		return computeStreakState(events, asOfDay, loc), nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserStreak(userID, asOfDay.Format("2006-01-02")), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceCheckin) invalidateStreak(ctx context.Context, userID int64) {
	//nolint:errcheck
	caching.DeleteKeys(ctx, service.redisDB, fmt.Sprintf("streak:%d:*", userID))
}

// computeStreakState folds the ascending event sequence. A day-delta of
// exactly 1 extends the run, anything else resets it to 1; duplicates are
// skipped. The run ending at the last date only counts as the current streak
// while that date is asOf or asOf-1 (one-day grace).
func computeStreakState(events []*models.CheckinEvent, asOf time.Time, loc *time.Location) *models.StreakState {
	state := &models.StreakState{}
	if len(events) == 0 {
		return state
	}

	var last time.Time
	run := 0
	for _, event := range events {
		day := pkg.DayOf(event.CheckinDate, loc)
		if state.TotalDays > 0 && pkg.DaysBetween(last, day) == 0 {
			continue
		}

		if state.TotalDays > 0 && pkg.DaysBetween(last, day) == 1 {
			run++
		} else {
			run = 1
		}

		if run > state.LongestStreak {
			state.LongestStreak = run
		}

		state.TotalDays++
		if event.Source == models.CHECKIN_SOURCE_MAKEUP {
			state.MakeupDays++
		}

		last = day
	}

	lastCopy := last
	state.LastCheckinDate = &lastCopy
	state.ActiveToday = pkg.DaysBetween(last, asOf) == 0

	if delta := pkg.DaysBetween(last, asOf); delta == 0 || delta == 1 {
		state.CurrentStreak = run
	}

	return state
}
