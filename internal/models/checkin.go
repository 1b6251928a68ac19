package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	CHECKIN_SOURCE_ORGANIC = "organic"
	CHECKIN_SOURCE_MAKEUP  = "makeup"
)

// CheckinEvent is one row per (user, calendar day). Rows are append-only;
// the unique index on (user_id, checkin_date) plus insert-if-absent keeps
// the one-checkin-per-day invariant under racing submissions.
type CheckinEvent struct {
	bun.BaseModel `bun:"table:checkin"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	CheckinDate   time.Time `bun:"checkin_date,type:date" json:"checkin_date"`
	Source        string    `bun:"source" json:"source"`
	RecordID      *int64    `bun:"record_id" json:"record_id"`
	Note          *string   `bun:"note" json:"note"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// StreakState is derived from the ordered checkin dates, never persisted.
type StreakState struct {
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	TotalDays       int        `json:"total_days"`
	MakeupDays      int        `json:"makeup_days"`
	LastCheckinDate *time.Time `json:"last_checkin_date"`
	ActiveToday     bool       `json:"active_today"`
}
