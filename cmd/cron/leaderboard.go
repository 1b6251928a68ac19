package main

import (
	"context"
	"log"
	"time"

	"greenloop/internal/datastore"
	"greenloop/internal/models"
	"greenloop/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type LeaderboardJob struct {
	container *do.Injector
}

func NewLeaderboardJob(container *do.Injector) (*LeaderboardJob, error) {
	return &LeaderboardJob{container: container}, nil
}

func (j *LeaderboardJob) Start(cronRunner *cron.Cron) {
	db, err := do.Invoke[*bun.DB](j.container)
	if err != nil {
		log.Println(err)
		return
	}

	timeline, err := datastore.GetConfigByKey(context.Background(), db, services.CONFIG_CRONJOB_TIME_LEADERBOARD)
	if err != nil {
		log.Println(err)
		return
	}

	if timeline == nil || timeline.Value == "" {
		log.Println("No leaderboard schedule configured")
		return
	}

	_, err = cronRunner.AddFunc(timeline.Value, j.runScheduledTask)
	log.Println("Leaderboard cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", timeline.Value, err)
	j.runScheduledTask()
}

// runScheduledTask rebuilds both snapshots. A redis mutex keeps
// overlapping runs from other instances out; losing the lock means
// someone else is already rebuilding, which is fine.
func (j *LeaderboardJob) runScheduledTask() {
	ctx := context.Background()

	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](j.container)
	if err != nil {
		log.Println(err)
		return
	}

	rs, err := do.Invoke[*redsync.Redsync](j.container)
	if err != nil {
		log.Println(err)
		return
	}

	for _, scope := range []string{models.SCOPE_POINTS, models.SCOPE_STREAK} {
		mutex := rs.NewMutex(services.LockKeyLeaderboardRebuild(scope), redsync.WithExpiry(2*time.Minute), redsync.WithTries(1))
		if err := mutex.Lock(); err != nil {
			log.Println("rebuild already in progress:", scope)
			continue
		}

		if _, err := serviceLeaderboard.RebuildCache(ctx, scope, "scheduled"); err != nil {
			log.Println("scheduled rebuild:", scope, err)
		} else {
			log.Println("scheduled rebuild done:", scope)
		}

		if _, err := mutex.Unlock(); err != nil {
			log.Println(err)
		}
	}
}
