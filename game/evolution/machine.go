package evolution

import (
	"math"

	"github.com/softpaws/petkeeper/game/stats"
)

// Stage is a companion's life stage. Stages only ever move forward.
type Stage string

const (
	StageEgg       Stage = "egg"
	StageJuvenile  Stage = "juvenile"
	StageAdult     Stage = "adult"
	StageLegendary Stage = "legendary"
)

// order maps stages to their rank for comparisons.
var order = map[Stage]int{
	StageEgg:       0,
	StageJuvenile:  1,
	StageAdult:     2,
	StageLegendary: 3,
}

// threshold holds the level/xp gate for entering a stage.
type threshold struct {
	Level int
	XP    int64
}

var thresholds = map[Stage]threshold{
	StageJuvenile:  {Level: 5, XP: 500},
	StageAdult:     {Level: 15, XP: 2000},
	StageLegendary: {Level: 30, XP: 5000},
}

// evolveStatGate is the minimum every stat must reach before any evolution.
const evolveStatGate = 50

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	_, ok := order[s]
	return ok
}

// Next returns the stage after s, or s itself if s is terminal or unknown.
func (s Stage) Next() Stage {
	switch s {
	case StageEgg:
		return StageJuvenile
	case StageJuvenile:
		return StageAdult
	case StageAdult:
		return StageLegendary
	default:
		return s
	}
}

// Result reports the outcome of one evolution evaluation.
type Result struct {
	Stage Stage
	// Evolved is set when the companion advanced a stage this evaluation; the
	// reward calculator grants a one-time bonus for it.
	Evolved bool
}

// Evaluate checks the transition guard after an xp or stat change and
// advances at most one stage. Requirements for the next stage: its level and
// xp thresholds met, every stat at least 50, and the companion not sick. It
// never skips a stage and never regresses.
func Evaluate(current Stage, level int, xp int64, s stats.Stats) Result {
	if !current.IsValid() {
		return Result{Stage: current}
	}
	next := current.Next()
	if next == current {
		return Result{Stage: current}
	}
	gate := thresholds[next]
	if level < gate.Level || xp < gate.XP {
		return Result{Stage: current}
	}
	if !s.AllAtLeast(evolveStatGate) || s.Sick() {
		return Result{Stage: current}
	}
	return Result{Stage: next, Evolved: true}
}

// XPForLevel returns the total xp threshold required to be at the given
// level. Level 1 requires 0 xp. The curve is 100 * (level-1)^1.5, rounded up
// so float rounding never makes a threshold easier.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(math.Ceil(100 * math.Pow(float64(level-1), 1.5)))
}

// LevelForXP returns the highest level L such that totalXP >= XPForLevel(L).
// Levels start at 1.
func LevelForXP(totalXP int64) int {
	if totalXP <= 0 {
		return 1
	}

	// Exponential search for an upper bound, then binary search.
	low, high := 1, 2
	for XPForLevel(high) <= totalXP {
		low = high
		high *= 2
		if high > 1_000_000 {
			break
		}
	}
	for low+1 < high {
		mid := low + (high-low)/2
		if XPForLevel(mid) <= totalXP {
			low = mid
		} else {
			high = mid
		}
	}
	return low
}
