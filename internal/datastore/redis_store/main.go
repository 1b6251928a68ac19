package redis_store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"greenloop/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const checkinDayMarkTTL = 48 * time.Hour

func dbKeyRebuildMark(scope string) string {
	return fmt.Sprintf("leaderboard:rebuild_mark:%s", strings.ToLower(scope))
}

func dbKeyCheckinDay(userID int64, day string) string {
	return fmt.Sprintf("checkin:day:%d:%s", userID, day)
}

// SaveRebuildMark records which build last wrote a snapshot and why.
func SaveRebuildMark(ctx context.Context, cmd redis.Cmdable, mark *models.RebuildMark) error {
	b, err := msgpack.Marshal(mark)
	if err != nil {
		return err
	}

	return cmd.Set(ctx, dbKeyRebuildMark(mark.Scope), b, 0).Err()
}

func GetRebuildMark(ctx context.Context, cmd redis.Cmdable, scope string) (*models.RebuildMark, error) {
	var v *models.RebuildMark
	b, err := cmd.Get(ctx, dbKeyRebuildMark(scope)).Bytes()
	if err != nil {
		return nil, err
	}

	err = msgpack.Unmarshal(b, &v)
	return v, err
}

// MarkCheckinDay is a fast-path guard in front of the ledger insert. The day
// key is claimed with SETNX; the unique index on the ledger stays the source
// of truth when the mark is missing.
func MarkCheckinDay(ctx context.Context, cmd redis.Cmdable, userID int64, day time.Time) (bool, error) {
	return cmd.SetNX(ctx, dbKeyCheckinDay(userID, day.Format("2006-01-02")), 1, checkinDayMarkTTL).Result()
}

func UnmarkCheckinDay(ctx context.Context, cmd redis.Cmdable, userID int64, day time.Time) error {
	return cmd.Del(ctx, dbKeyCheckinDay(userID, day.Format("2006-01-02"))).Err()
}
