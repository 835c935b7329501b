package model

import (
	"time"

	"gorm.io/datatypes"
)

// StatSnapshot is a periodic record of a companion's stats, kept so the mood
// forecaster can compute a health trend over recent samples.
type StatSnapshot struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanionID int64          `gorm:"index:idx_snapshot_companion;not null" json:"companion_id"`
	Stats       datatypes.JSON `json:"stats"` // {"health":90,"hunger":55,...}
	Mood        string         `gorm:"size:16" json:"mood"`
	CreatedAt   time.Time      `gorm:"index:idx_snapshot_created;autoCreateTime" json:"created_at"`
}
