package models

import (
	"github.com/uptrace/bun"
)

type School struct {
	bun.BaseModel `bun:"table:school"`
	ID            int64   `bun:"id,pk,autoincrement" json:"id"`
	Name          string  `bun:"name" json:"name"`
	RegionCode    *string `bun:"region_code" json:"region_code"`
}

type Avatar struct {
	bun.BaseModel `bun:"table:avatar"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	URL           string `bun:"url" json:"url"`
}
