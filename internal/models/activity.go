package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ActivityRecord is a tracked carbon-reduction action. Submitting the first
// one of a day also records that day's organic checkin.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:activity_record"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	Category      string    `bun:"category" json:"category"`
	CO2Grams      int       `bun:"co2_grams" json:"co2_grams"`
	Points        int       `bun:"points" json:"points"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
