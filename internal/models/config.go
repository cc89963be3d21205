package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Config holds operational tunables (cron expressions, heuristic
// thresholds, admin chat ids) editable without a deploy.
type Config struct {
	bun.BaseModel `bun:"table:config"`
	Key           string    `bun:"key,pk" json:"key"`
	Value         string    `bun:"value" json:"value"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}
