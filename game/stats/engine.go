package stats

import "time"

// Stat bounds. Every stat is clamped into [MinStat, MaxStat] after any decay
// or delta application.
const (
	MinStat = 0
	MaxStat = 100
)

// Base decay per hour for each stat. Health has no base decay; it only drops
// while another stat sits below its critical threshold.
const (
	HungerDecayPerHour      = 5.0
	HappinessDecayPerHour   = 2.0
	CleanlinessDecayPerHour = 3.0
	EnergyDecayPerHour      = 5.0
)

// Critical thresholds. A stat below its threshold endangers health and flags
// the companion as at-risk in forecasts.
const (
	CriticalHunger      = 20
	CriticalHappiness   = 25
	CriticalCleanliness = 30
	CriticalEnergy      = 20
)

// SickHealth marks a companion as sick; sick companions cannot evolve.
const SickHealth = 30

// Stats holds the five core companion stats.
type Stats struct {
	Health      int `json:"health"`
	Hunger      int `json:"hunger"`
	Happiness   int `json:"happiness"`
	Cleanliness int `json:"cleanliness"`
	Energy      int `json:"energy"`
}

// Delta is a signed adjustment to named stats, supplied by the care resolver.
type Delta struct {
	Health      int
	Hunger      int
	Happiness   int
	Cleanliness int
	Energy      int
}

// PersonalityTraits are per-companion decay modifiers. 1.0 is neutral; values
// above 1.0 speed up the decay of the stats they govern. The mapping is fixed:
// Active drives hunger, energy and cleanliness (active pets burn energy, get
// hungry and get dirty faster), Playful speeds happiness decay (playful pets
// bore quickly) and Calm dampens it.
type PersonalityTraits struct {
	Playful float64 `json:"playful"`
	Calm    float64 `json:"calm"`
	Active  float64 `json:"active"`
}

// normalized replaces zero-value fields with the neutral 1.0 modifier so a
// zero PersonalityTraits behaves like a neutral pet.
func (t PersonalityTraits) normalized() PersonalityTraits {
	if t.Playful <= 0 {
		t.Playful = 1.0
	}
	if t.Calm <= 0 {
		t.Calm = 1.0
	}
	if t.Active <= 0 {
		t.Active = 1.0
	}
	return t
}

func (t PersonalityTraits) hungerModifier() float64      { return t.Active }
func (t PersonalityTraits) energyModifier() float64      { return t.Active }
func (t PersonalityTraits) cleanlinessModifier() float64 { return t.Active }

// happinessModifier averages "playful pets bore faster" with "calm pets stay
// content": (playful + (2 - calm)) / 2.
func (t PersonalityTraits) happinessModifier() float64 {
	return (t.Playful + (2.0 - t.Calm)) / 2.0
}

// ApplyDecay returns the stats after elapsed time has passed, scaled by the
// companion's personality. Health drops by 1 per application only while at
// least one other stat is below its critical threshold. The caller supplies
// elapsed time; this function never reads the wall clock.
func ApplyDecay(s Stats, traits PersonalityTraits, elapsed time.Duration) Stats {
	if elapsed <= 0 {
		return clampAll(s)
	}
	t := traits.normalized()
	hours := elapsed.Hours()

	s.Hunger = clamp(s.Hunger - int(HungerDecayPerHour*t.hungerModifier()*hours))
	s.Happiness = clamp(s.Happiness - int(HappinessDecayPerHour*t.happinessModifier()*hours))
	s.Cleanliness = clamp(s.Cleanliness - int(CleanlinessDecayPerHour*t.cleanlinessModifier()*hours))
	s.Energy = clamp(s.Energy - int(EnergyDecayPerHour*t.energyModifier()*hours))

	if s.AnyCritical() {
		s.Health = clamp(s.Health - 1)
	} else {
		s.Health = clamp(s.Health)
	}
	return s
}

// ApplyDelta adds the signed deltas to the stats and clamps the result.
func ApplyDelta(s Stats, d Delta) Stats {
	s.Health = clamp(s.Health + d.Health)
	s.Hunger = clamp(s.Hunger + d.Hunger)
	s.Happiness = clamp(s.Happiness + d.Happiness)
	s.Cleanliness = clamp(s.Cleanliness + d.Cleanliness)
	s.Energy = clamp(s.Energy + d.Energy)
	return s
}

// AnyCritical reports whether any non-health stat is below its critical
// threshold.
func (s Stats) AnyCritical() bool {
	return s.Hunger < CriticalHunger ||
		s.Happiness < CriticalHappiness ||
		s.Cleanliness < CriticalCleanliness ||
		s.Energy < CriticalEnergy
}

// AnyBelow reports whether any stat (health included) is below the given value.
func (s Stats) AnyBelow(v int) bool {
	return s.Health < v || s.Hunger < v || s.Happiness < v ||
		s.Cleanliness < v || s.Energy < v
}

// AllAtLeast reports whether every stat is at or above the given value.
func (s Stats) AllAtLeast(v int) bool {
	return !s.AnyBelow(v)
}

// Sick reports whether the companion counts as sick (health below SickHealth).
func (s Stats) Sick() bool {
	return s.Health < SickHealth
}

func clamp(v int) int {
	if v < MinStat {
		return MinStat
	}
	if v > MaxStat {
		return MaxStat
	}
	return v
}

func clampAll(s Stats) Stats {
	return ApplyDelta(s, Delta{})
}
