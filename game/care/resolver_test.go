package care

import (
	"testing"
	"time"

	"github.com/softpaws/petkeeper/game/stats"
	"github.com/softpaws/petkeeper/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resolveNow = time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)

// freshCompanion has neutral traits and UpdatedAt == now, so Resolve applies
// no catch-up decay unless a test moves UpdatedAt back.
func freshCompanion() model.Companion {
	return model.Companion{
		ID: 1, AccountID: 1, Name: "Mochi",
		Health: 90, Hunger: 50, Happiness: 60, Cleanliness: 70, Energy: 80,
		Level: 1, Stage: "egg",
		TraitPlayful: 1.0, TraitCalm: 1.0, TraitActive: 1.0,
		UpdatedAt: resolveNow,
	}
}

func TestResolve_FeedDefaults(t *testing.T) {
	res, err := Resolve(freshCompanion(), Request{Action: ActionFeed}, 100, resolveNow)
	require.NoError(t, err)

	assert.Equal(t, 80, res.Companion.Hunger, "hunger +30")
	assert.Equal(t, 65, res.Companion.Happiness, "happiness +5")
	assert.Equal(t, int64(-10), res.CoinDelta)
	require.NotNil(t, res.Companion.LastFedAt)
	assert.Equal(t, resolveNow, *res.Companion.LastFedAt)
}

func TestResolve_FeedClampsAtMax(t *testing.T) {
	c := freshCompanion()
	c.Hunger = 90
	res, err := Resolve(c, Request{Action: ActionFeed}, 100, resolveNow)
	require.NoError(t, err)
	assert.Equal(t, stats.MaxStat, res.Companion.Hunger)
}

func TestResolve_FoodVariants(t *testing.T) {
	tests := []struct {
		item      string
		hunger    int
		happiness int
		cost      int64
	}{
		{"kibble", 80, 65, -10},
		{"treat", 60, 75, -5},
		{"feast", 100, 70, -25},
		{"leftovers", 65, 60, 0},
	}
	for _, tt := range tests {
		res, err := Resolve(freshCompanion(), Request{Action: ActionFeed, Item: tt.item}, 100, resolveNow)
		require.NoError(t, err, tt.item)
		assert.Equal(t, tt.hunger, res.Companion.Hunger, "%s hunger", tt.item)
		assert.Equal(t, tt.happiness, res.Companion.Happiness, "%s happiness", tt.item)
		assert.Equal(t, tt.cost, res.CoinDelta, "%s cost", tt.item)
	}
}

func TestResolve_UnknownFoodItem(t *testing.T) {
	_, err := Resolve(freshCompanion(), Request{Action: ActionFeed, Item: "gravel"}, 100, resolveNow)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestResolve_BatheCooldown(t *testing.T) {
	c := freshCompanion()
	last := resolveNow.Add(-2 * time.Minute)
	c.LastBathedAt = &last

	before := c
	_, err := Resolve(c, Request{Action: ActionBathe}, 100, resolveNow)

	var cdErr *CooldownError
	require.ErrorAs(t, err, &cdErr)
	assert.Equal(t, ActionBathe, cdErr.Action)
	assert.Equal(t, 480, cdErr.RemainingSeconds())
	assert.Equal(t, before, c, "no mutation on cooldown rejection")
}

func TestResolve_CooldownExpired(t *testing.T) {
	c := freshCompanion()
	last := resolveNow.Add(-BatheCooldown)
	c.LastBathedAt = &last
	c.UpdatedAt = resolveNow

	res, err := Resolve(c, Request{Action: ActionBathe}, 100, resolveNow)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Companion.Cleanliness)
	assert.Equal(t, 95, res.Companion.Health)
	assert.Equal(t, int64(-15), res.CoinDelta)
}

func TestResolve_InsufficientFunds(t *testing.T) {
	_, err := Resolve(freshCompanion(), Request{Action: ActionFeed}, 9, resolveNow)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Free actions never check the balance.
	_, err = Resolve(freshCompanion(), Request{Action: ActionPlay}, 0, resolveNow)
	assert.NoError(t, err)
}

func TestResolve_UnknownAction(t *testing.T) {
	_, err := Resolve(freshCompanion(), Request{Action: "teleport"}, 100, resolveNow)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestResolve_RestBounds(t *testing.T) {
	for _, hours := range []int{0, -1, 9} {
		_, err := Resolve(freshCompanion(), Request{Action: ActionRest, RestHours: hours}, 100, resolveNow)
		assert.ErrorIs(t, err, ErrInvalidAction, "rest %dh", hours)
	}

	res, err := Resolve(freshCompanion(), Request{Action: ActionRest, RestHours: 4}, 100, resolveNow)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Companion.Energy)
	assert.Equal(t, 95, res.Companion.Health)
	assert.Equal(t, 45, res.Companion.Hunger)
	assert.Equal(t, 4*60, res.Companion.RestCooldownMin)
	assert.Equal(t, int64(0), res.CoinDelta)
}

func TestResolve_RestCooldownUsesStoredDuration(t *testing.T) {
	c := freshCompanion()
	c.RestCooldownMin = 2 * 60
	last := resolveNow.Add(-90 * time.Minute)
	c.LastRestedAt = &last

	_, err := Resolve(c, Request{Action: ActionRest, RestHours: 1}, 100, resolveNow)
	var cdErr *CooldownError
	require.ErrorAs(t, err, &cdErr)
	assert.Equal(t, 30*60, cdErr.RemainingSeconds())

	// Past the stored cooldown the rest succeeds and records the new duration.
	last = resolveNow.Add(-3 * time.Hour)
	c.LastRestedAt = &last
	res, err := Resolve(c, Request{Action: ActionRest, RestHours: 1}, 100, resolveNow)
	require.NoError(t, err)
	assert.Equal(t, 60, res.Companion.RestCooldownMin)
}

func TestResolve_DecayRunsBeforeDeltas(t *testing.T) {
	c := freshCompanion()
	c.UpdatedAt = resolveNow.Add(-2 * time.Hour)

	res, err := Resolve(c, Request{Action: ActionFeed}, 100, resolveNow)
	require.NoError(t, err)

	// Two hours of neutral-trait decay first (hunger -10, happiness -4),
	// then the feed deltas.
	assert.Equal(t, 50-10+30, res.Companion.Hunger)
	assert.Equal(t, 60-4+5, res.Companion.Happiness)
	assert.Equal(t, 70-6, res.Companion.Cleanliness)
	assert.Equal(t, 80-10, res.Companion.Energy)
}

func TestResolve_MoodAndReaction(t *testing.T) {
	c := freshCompanion()
	c.Hunger = 70
	c.Happiness = 85
	c.Cleanliness = 90
	c.Energy = 90

	res, err := Resolve(c, Request{Action: ActionPlay}, 100, resolveNow)
	require.NoError(t, err)
	assert.Equal(t, string(res.Mood), res.Companion.Mood)
	assert.Equal(t, reactions[res.Mood], res.Reaction)
	assert.NotEmpty(t, res.Reaction)
}
