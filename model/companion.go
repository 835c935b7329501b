package model

import "time"

// Companion is a user's virtual pet. Stats are kept in the 0-100 range at all
// times; decay and care deltas are applied through the game/care service, never
// written directly by handlers.
type Companion struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64  `gorm:"index:idx_companion_account;not null" json:"account_id"`
	Name      string `gorm:"size:32;not null" json:"name"`
	Species   string `gorm:"size:32" json:"species"`

	Health      int `gorm:"not null" json:"health"`
	Hunger      int `gorm:"not null" json:"hunger"`
	Happiness   int `gorm:"not null" json:"happiness"`
	Cleanliness int `gorm:"not null" json:"cleanliness"`
	Energy      int `gorm:"not null" json:"energy"`

	Level int    `gorm:"default:1" json:"level"`
	XP    int64  `gorm:"default:0" json:"xp"`
	Stage string `gorm:"size:16;default:egg" json:"stage"`
	Mood  string `gorm:"size:16;default:content" json:"mood"`

	// Personality modifiers scale stat decay. 1.0 is neutral; see game/stats.
	TraitPlayful float64 `gorm:"default:1" json:"trait_playful"`
	TraitCalm    float64 `gorm:"default:1" json:"trait_calm"`
	TraitActive  float64 `gorm:"default:1" json:"trait_active"`

	LastFedAt    *time.Time `json:"last_fed_at"`
	LastPlayedAt *time.Time `json:"last_played_at"`
	LastBathedAt *time.Time `json:"last_bathed_at"`
	LastRestedAt *time.Time `json:"last_rested_at"`
	// RestCooldownMin is the cooldown of the most recent rest action in
	// minutes, since rest duration is caller-supplied (1-8h).
	RestCooldownMin int `gorm:"default:0" json:"rest_cooldown_min"`

	// Version implements optimistic concurrency: a companion has one owner,
	// so at most one action is legitimately in flight, but two near-simultaneous
	// requests must not lose updates.
	Version   int64     `gorm:"default:0" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
