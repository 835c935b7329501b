package model

import "time"

// Wallet holds an account's coin balance. The engine never mutates balances
// directly; it emits signed deltas that game/wallet applies inside the same
// transaction as the companion save.
type Wallet struct {
	ID             int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID      int64 `gorm:"uniqueIndex;not null" json:"account_id"`
	Balance        int64 `gorm:"default:0" json:"balance"`
	LifetimeEarned int64 `gorm:"default:0" json:"lifetime_earned"`
	LifetimeSpent  int64 `gorm:"default:0" json:"lifetime_spent"`

	// StreakDays counts consecutive qualifying care days; feeds the reward
	// streak multiplier.
	StreakDays  int        `gorm:"default:0" json:"streak_days"`
	LastCareDay *time.Time `json:"last_care_day"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
