package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:user"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	Username      string     `bun:"username" json:"username"`
	DisplayName   string     `bun:"display_name" json:"display_name"`
	AvatarID      *int64     `bun:"avatar_id" json:"avatar_id"`
	RegionCode    *string    `bun:"region_code" json:"region_code"`
	SchoolID      *int64     `bun:"school_id" json:"school_id"`
	Points        int        `bun:"points" json:"points"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time `bun:"deleted_at" json:"-"`

	AvatarURL  *string `bun:"-" json:"avatar_url"`
	SchoolName *string `bun:"-" json:"school_name"`
}

// UserFromAuth only use in middleware
type UserFromAuth struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}
