package care

import (
	"errors"
	"fmt"
	"time"

	"github.com/softpaws/petkeeper/game/mood"
	"github.com/softpaws/petkeeper/game/stats"
	"github.com/softpaws/petkeeper/game/wallet"
	"github.com/softpaws/petkeeper/model"
)

// Action is a supported care action.
type Action string

const (
	ActionFeed  Action = "feed"
	ActionPlay  Action = "play"
	ActionBathe Action = "bathe"
	ActionRest  Action = "rest"
)

var (
	// ErrInvalidAction is returned for unknown action names, unknown food
	// items, and rest durations outside 1-8 hours.
	ErrInvalidAction = errors.New("care: invalid action")
	// ErrCompanionNotFound is returned when the caller supplied an unknown
	// companion id.
	ErrCompanionNotFound = errors.New("care: companion not found")
	// ErrVersionConflict is returned when a concurrent action won the
	// optimistic version check; the caller should retry with fresh state.
	ErrVersionConflict = errors.New("care: companion was modified concurrently")
)

// ErrInsufficientFunds aliases the wallet sentinel so resolver callers match
// one error regardless of whether the rejection came from the pre-check or
// the wallet write.
var ErrInsufficientFunds = wallet.ErrInsufficientFunds

// CooldownError reports an action attempted before its cooldown elapsed.
type CooldownError struct {
	Action    Action
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("care: %s on cooldown, %ds remaining", e.Action, e.RemainingSeconds())
}

// RemainingSeconds rounds the remaining cooldown up to whole seconds for
// client display.
func (e *CooldownError) RemainingSeconds() int {
	return int((e.Remaining + time.Second - 1) / time.Second)
}

// Action cooldowns. Rest is variable: its cooldown equals the caller-supplied
// rest duration, recorded on the companion.
const (
	FeedCooldown  = 5 * time.Minute
	PlayCooldown  = 3 * time.Minute
	BatheCooldown = 10 * time.Minute

	MinRestHours = 1
	MaxRestHours = 8
)

// Default feed effect and cost; item variants below override these.
const (
	feedCost      = 10
	feedHunger    = 30
	feedHappiness = 5
)

const batheCost = 15

// FoodItem overrides the default feed amounts and cost. Free items cost 0.
type FoodItem struct {
	Hunger    int
	Happiness int
	Cost      int64
}

// foodItems is the built-in food catalog.
var foodItems = map[string]FoodItem{
	"kibble":    {Hunger: feedHunger, Happiness: feedHappiness, Cost: feedCost},
	"treat":     {Hunger: 10, Happiness: 15, Cost: 5},
	"feast":     {Hunger: 60, Happiness: 10, Cost: 25},
	"leftovers": {Hunger: 15, Happiness: 0, Cost: 0},
}

// Request is one care action submitted by the owner.
type Request struct {
	Action Action `json:"action"`
	// Item selects a food variant for feed; empty means the default.
	Item string `json:"item,omitempty"`
	// RestHours is the caller-supplied rest duration (1-8), required for rest.
	RestHours int `json:"rest_hours,omitempty"`
}

// Result is the outcome of a resolved action. CoinDelta is negative (a cost)
// and is applied to the wallet by the caller, not here.
type Result struct {
	Companion model.Companion
	CoinDelta int64
	Reaction  string
	Mood      mood.Mood
}

// reactions keyed by the companion's mood after the action.
var reactions = map[mood.Mood]string{
	mood.Ecstatic:   "spins around in pure delight!",
	mood.Happy:      "bounces happily around you.",
	mood.Content:    "chirps softly, pleased.",
	mood.Anxious:    "fidgets, still uneasy.",
	mood.Distressed: "whimpers and clings to you.",
	mood.Sad:        "manages a small, grateful nuzzle.",
	mood.Moody:      "accepts it with a huff.",
	mood.Sleepy:     "yawns and curls up.",
}

// StatsOf extracts the stat block from a companion record.
func StatsOf(c *model.Companion) stats.Stats {
	return stats.Stats{
		Health:      c.Health,
		Hunger:      c.Hunger,
		Happiness:   c.Happiness,
		Cleanliness: c.Cleanliness,
		Energy:      c.Energy,
	}
}

// TraitsOf extracts the personality traits from a companion record.
func TraitsOf(c *model.Companion) stats.PersonalityTraits {
	return stats.PersonalityTraits{
		Playful: c.TraitPlayful,
		Calm:    c.TraitCalm,
		Active:  c.TraitActive,
	}
}

func setStats(c *model.Companion, s stats.Stats) {
	c.Health = s.Health
	c.Hunger = s.Hunger
	c.Happiness = s.Happiness
	c.Cleanliness = s.Cleanliness
	c.Energy = s.Energy
}

// Resolve validates and applies one care action to a companion snapshot.
// Order: cooldown check, funds check, catch-up decay since the last touch,
// action deltas, cooldown bookkeeping. Decay always runs before the action's
// deltas so no care interval is skipped. Pure: "now" is supplied by the
// caller and the wallet is only read.
func Resolve(c model.Companion, req Request, walletBalance int64, now time.Time) (Result, error) {
	delta, cost, cooldown, err := resolveEffect(&c, req)
	if err != nil {
		return Result{}, err
	}

	if last := lastActionAt(&c, req.Action); last != nil {
		if elapsed := now.Sub(*last); elapsed < cooldown {
			return Result{}, &CooldownError{Action: req.Action, Remaining: cooldown - elapsed}
		}
	}
	if cost > walletBalance {
		return Result{}, ErrInsufficientFunds
	}

	s := stats.ApplyDecay(StatsOf(&c), TraitsOf(&c), now.Sub(c.UpdatedAt))
	s = stats.ApplyDelta(s, delta)
	setStats(&c, s)
	setLastActionAt(&c, req.Action, now)
	if req.Action == ActionRest {
		c.RestCooldownMin = req.RestHours * 60
	}
	c.UpdatedAt = now

	m := mood.DeriveMood(s)
	c.Mood = string(m)

	return Result{
		Companion: c,
		CoinDelta: -cost,
		Reaction:  reactions[m],
		Mood:      m,
	}, nil
}

// resolveEffect maps a request to its stat deltas, coin cost and cooldown.
func resolveEffect(c *model.Companion, req Request) (stats.Delta, int64, time.Duration, error) {
	switch req.Action {
	case ActionFeed:
		item := req.Item
		if item == "" {
			item = "kibble"
		}
		food, ok := foodItems[item]
		if !ok {
			return stats.Delta{}, 0, 0, ErrInvalidAction
		}
		return stats.Delta{Hunger: food.Hunger, Happiness: food.Happiness}, food.Cost, FeedCooldown, nil

	case ActionPlay:
		return stats.Delta{Happiness: 25, Energy: -15}, 0, PlayCooldown, nil

	case ActionBathe:
		return stats.Delta{Cleanliness: 40, Health: 5}, batheCost, BatheCooldown, nil

	case ActionRest:
		if req.RestHours < MinRestHours || req.RestHours > MaxRestHours {
			return stats.Delta{}, 0, 0, ErrInvalidAction
		}
		cooldown := time.Duration(c.RestCooldownMin) * time.Minute
		return stats.Delta{Energy: 35, Health: 5, Hunger: -5}, 0, cooldown, nil

	default:
		return stats.Delta{}, 0, 0, ErrInvalidAction
	}
}

func lastActionAt(c *model.Companion, a Action) *time.Time {
	switch a {
	case ActionFeed:
		return c.LastFedAt
	case ActionPlay:
		return c.LastPlayedAt
	case ActionBathe:
		return c.LastBathedAt
	case ActionRest:
		return c.LastRestedAt
	default:
		return nil
	}
}

func setLastActionAt(c *model.Companion, a Action, t time.Time) {
	switch a {
	case ActionFeed:
		c.LastFedAt = &t
	case ActionPlay:
		c.LastPlayedAt = &t
	case ActionBathe:
		c.LastBathedAt = &t
	case ActionRest:
		c.LastRestedAt = &t
	}
}
