package models

import (
	"time"
)

const (
	SCOPE_POINTS = "points"
	SCOPE_STREAK = "streak"
)

// LeaderboardEntry is one ranked row. Points and streak scopes share the
// shape; the streak fields stay zero in the points scope and vice versa.
type LeaderboardEntry struct {
	UserID      int64   `json:"user_id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	RegionCode  *string `json:"region_code"`
	SchoolID    *int64  `json:"school_id"`
	SchoolName  *string `json:"school_name"`
	Rank        int     `json:"rank"`

	Points          int        `json:"points,omitempty"`
	CurrentStreak   int        `json:"current_streak,omitempty"`
	LongestStreak   int        `json:"longest_streak,omitempty"`
	TotalCheckins   int        `json:"total_checkins,omitempty"`
	LastCheckinDate *time.Time `json:"last_checkin_date,omitempty"`
}

type RegionBucket struct {
	Label   string              `json:"label"`
	Entries []*LeaderboardEntry `json:"entries"`
}

type SchoolBucket struct {
	Name    string              `json:"name"`
	Entries []*LeaderboardEntry `json:"entries"`
}

// RankIndex covers every user in the scan, not just the visible top-K, so
// "what is my rank" never needs a rescan. Ranks are bucket-local.
type RankIndex struct {
	Global  map[int64]int           `json:"global"`
	Regions map[string]map[int64]int `json:"regions"`
	Schools map[int64]map[int64]int  `json:"schools"`
}

// Snapshot is the complete output of one aggregation pass. It is built
// synchronously, written to the cache file wholesale and superseded by the
// next rebuild; there are no partial updates.
type Snapshot struct {
	Scope       string                   `json:"scope"`
	BuildID     string                   `json:"build_id"`
	GeneratedAt *time.Time               `json:"generated_at"`
	ExpiresAt   *time.Time               `json:"expires_at"`
	TTLSeconds  int                      `json:"ttl_seconds"`
	Global      []*LeaderboardEntry      `json:"global"`
	Regions     map[string]*RegionBucket `json:"regions"`
	Schools     map[int64]*SchoolBucket  `json:"schools"`
	Ranks       *RankIndex               `json:"ranks,omitempty"`
}

// PointsRow is one row of the points scan, decoded once at the datastore
// boundary (users joined to school/avatar, soft-deleted filtered out).
type PointsRow struct {
	UserID      int64   `bun:"user_id" json:"user_id"`
	DisplayName string  `bun:"display_name" json:"display_name"`
	Points      int     `bun:"points" json:"points"`
	RegionCode  *string `bun:"region_code" json:"region_code"`
	SchoolID    *int64  `bun:"school_id" json:"school_id"`
	SchoolName  *string `bun:"school_name" json:"school_name"`
	AvatarURL   *string `bun:"avatar_url" json:"avatar_url"`
}

// StreakRow is one row of the streak scan: every checkin ordered by
// (user_id, checkin_date) with the user metadata repeated per row.
type StreakRow struct {
	UserID      int64     `bun:"user_id" json:"user_id"`
	CheckinDate time.Time `bun:"checkin_date" json:"checkin_date"`
	DisplayName string    `bun:"display_name" json:"display_name"`
	RegionCode  *string   `bun:"region_code" json:"region_code"`
	SchoolID    *int64    `bun:"school_id" json:"school_id"`
	SchoolName  *string   `bun:"school_name" json:"school_name"`
	AvatarURL   *string   `bun:"avatar_url" json:"avatar_url"`
}

// RebuildMark records who rebuilt a snapshot last and why.
type RebuildMark struct {
	Scope   string    `json:"scope"`
	Reason  string    `json:"reason"`
	BuildID string    `json:"build_id"`
	At      time.Time `json:"at"`
}
