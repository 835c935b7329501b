package reward

import (
	"math"

	"github.com/softpaws/petkeeper/game/evolution"
)

// Difficulty scales quest payouts.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
	DifficultyHeroic Difficulty = "heroic"
)

// Streak multiplier: +10% per consecutive care day, capped at +50%.
const (
	streakStep = 0.1
	streakCap  = 0.5
)

// legendaryMultiplier applies while the companion is at the legendary stage.
const legendaryMultiplier = 1.25

// evolutionBonusMultiplier is a one-time boost granted on the payout that
// coincides with a stage advance.
const evolutionBonusMultiplier = 1.5

// Spec is the base reward of a quest or action before multipliers.
type Spec struct {
	Coins int64
	XP    int64
	Items []string
}

// Context carries the multiplier inputs for one payout.
type Context struct {
	StreakDays int
	Stage      evolution.Stage
	// EvolutionBonus is set by the evolution machine when the companion
	// advanced a stage during the triggering change.
	EvolutionBonus bool
}

// Outcome is a computed payout. Purely derived; the wallet collaborator
// applies the coins, the companion record absorbs the xp.
type Outcome struct {
	Coins int64    `json:"coins"`
	XP    int64    `json:"xp"`
	Items []string `json:"items"`
}

// IsValid reports whether d is a known difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyHeroic:
		return true
	default:
		return false
	}
}

func (d Difficulty) multiplier() float64 {
	switch d {
	case DifficultyNormal:
		return 1.2
	case DifficultyHard:
		return 1.5
	case DifficultyHeroic:
		return 2.0
	default: // easy and anything unknown
		return 1.0
	}
}

// Compute applies difficulty, streak and evolution multipliers to the base
// reward. Coins and xp scale independently; items are never scaled. Results
// are rounded down, and identical inputs always yield identical output.
func Compute(spec Spec, d Difficulty, ctx Context) Outcome {
	mult := d.multiplier() * streakMultiplier(ctx.StreakDays)
	if ctx.Stage == evolution.StageLegendary {
		mult *= legendaryMultiplier
	}
	if ctx.EvolutionBonus {
		mult *= evolutionBonusMultiplier
	}

	items := make([]string, len(spec.Items))
	copy(items, spec.Items)

	return Outcome{
		Coins: int64(math.Floor(float64(spec.Coins) * mult)),
		XP:    int64(math.Floor(float64(spec.XP) * mult)),
		Items: items,
	}
}

func streakMultiplier(days int) float64 {
	if days < 0 {
		days = 0
	}
	bonus := float64(days) * streakStep
	if bonus > streakCap {
		bonus = streakCap
	}
	return 1 + bonus
}
