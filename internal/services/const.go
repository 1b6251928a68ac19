package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrAlreadyCheckedIn = errors.New("already checked in")
var ErrFutureCheckinDate = errors.New("checkin date in the future")
var ErrMakeupQuotaExceeded = errors.New("makeup quota exceeded")
var ErrRefreshNotConfigured = errors.New("refresh trigger not configured")
var ErrRefreshForbidden = errors.New("invalid refresh key")
var ErrUnknownScope = errors.New("unknown leaderboard scope")

const (
	CONFIG_SERVER_MODE              = "SERVER_MODE"
	CONFIG_TIMEZONE                 = "TIMEZONE"
	CONFIG_LEADERBOARD_TTL_SECONDS  = "LEADERBOARD_TTL_SECONDS"
	CONFIG_GLOBAL_LEADERBOARD_LIMIT = "GLOBAL_LEADERBOARD_LIMIT"
	CONFIG_BUCKET_LEADERBOARD_LIMIT = "BUCKET_LEADERBOARD_LIMIT"
	CONFIG_MAKEUP_QUOTA_PER_MONTH   = "MAKEUP_QUOTA_PER_MONTH"
	CONFIG_ACTIVITY_BASE_POINTS     = "ACTIVITY_BASE_POINTS"
	CONFIG_CRONJOB_TIME_LEADERBOARD = "CRONJOB_TIME_LEADERBOARD"

	SERVER_MODE_DEVELOPMENT = "development"
	SERVER_MODE_STAGING     = "staging"
	SERVER_MODE_PRODUCTION  = "production"

	GLOBAL_LEADERBOARD_DEFAULT_LIMIT = 50
	BUCKET_LEADERBOARD_DEFAULT_LIMIT = 20

	SNAPSHOT_TTL_DEFAULT_SECONDS = 300
	SNAPSHOT_TTL_MIN_SECONDS     = 60
	SNAPSHOT_TTL_MAX_SECONDS     = 3600

	MAX_CHECKIN_RANGE_DAYS        = 370
	MAKEUP_QUOTA_DEFAULT_MONTHLY  = 3
	ACTIVITY_BASE_POINTS_DEFAULT  = 10
	MAKEUP_RATE_LIMIT_PER_MINUTE  = 10
	REFRESH_RATE_LIMIT_PER_MINUTE = 6

	CACHE_TTL_15_SECONDS = 15 * time.Second
	CACHE_TTL_1_MIN      = 1 * time.Minute
	CACHE_TTL_5_MINS     = 5 * time.Minute
	CACHE_TTL_1_HOUR     = 1 * time.Hour
	CACHE_TTL_1_DAY      = 24 * time.Hour
)

// db
func DBKeyUser(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func DBKeyMe(userID int64) string {
	return fmt.Sprintf("me:%d", userID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyUserStreak(userID int64, day string) string {
	return fmt.Sprintf("streak:%d:%s", userID, day)
}

func DBKeyRegion(code string) string {
	return fmt.Sprintf("region:%s", strings.ToLower(code))
}

func DBKeySchool(schoolID int64) string {
	return fmt.Sprintf("school:%d", schoolID)
}

func LimitKeyMakeupCheckin(userID int64) string {
	return fmt.Sprintf("limit:checkin:makeup:%d", userID)
}

func LimitKeyLeaderboardRefresh(scope string) string {
	return fmt.Sprintf("limit:leaderboard:refresh:%s", strings.ToLower(scope))
}

func LockKeyLeaderboardRebuild(scope string) string {
	return fmt.Sprintf("lock:leaderboard-rebuild:%s", strings.ToLower(scope))
}
