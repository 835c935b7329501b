package model

import (
	"time"

	"gorm.io/datatypes"
)

// Quest types. Daily and weekly quests reset at their period boundary; event
// quests only count within their [StartAt, EndAt] window.
const (
	QuestTypeDaily  = "daily"
	QuestTypeWeekly = "weekly"
	QuestTypeEvent  = "event"
)

// QuestProgress statuses. Transitions are strictly forward:
// pending -> in_progress -> completed -> claimed.
const (
	QuestStatusPending    = "pending"
	QuestStatusInProgress = "in_progress"
	QuestStatusCompleted  = "completed"
	QuestStatusClaimed    = "claimed"
)

// QuestDef is a catalog quest definition. Published rows are immutable.
type QuestDef struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Key         string         `gorm:"uniqueIndex;size:64;not null" json:"key"`
	Description string         `gorm:"size:255" json:"description"`
	Type        string         `gorm:"size:16;not null" json:"type"`
	Difficulty  string         `gorm:"size:16;not null" json:"difficulty"`
	ActionKey   string         `gorm:"size:32;not null" json:"action_key"` // care action or event category this quest counts
	TargetValue int            `gorm:"not null" json:"target_value"`
	RewardCoins int64          `gorm:"default:0" json:"reward_coins"`
	RewardXP    int64          `gorm:"default:0" json:"reward_xp"`
	RewardItems datatypes.JSON `json:"reward_items"` // ["ribbon", ...]; never scaled by multipliers
	StartAt     *time.Time     `json:"start_at"`
	EndAt       *time.Time     `json:"end_at"`
	Published   bool           `gorm:"not null" json:"published"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// QuestProgress tracks one account's progress on a quest.
type QuestProgress struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64  `gorm:"index:idx_progress_account;not null" json:"account_id"`
	QuestID   int64  `gorm:"index:idx_progress_quest;not null" json:"quest_id"`
	Status    string `gorm:"size:16;default:pending" json:"status"`
	Progress  int    `gorm:"default:0" json:"progress"`
	// PeriodStart anchors daily/weekly resets: a row is reset at most once per
	// period because reset compares PeriodStart against the current boundary
	// instead of a mutable "last reset" timestamp.
	PeriodStart time.Time  `gorm:"not null" json:"period_start"`
	CompletedAt *time.Time `json:"completed_at"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
