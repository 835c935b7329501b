package care

import (
	"context"
	"testing"
	"time"

	"github.com/softpaws/petkeeper/cache"
	"github.com/softpaws/petkeeper/game/mood"
	"github.com/softpaws/petkeeper/game/quest"
	"github.com/softpaws/petkeeper/game/stats"
	"github.com/softpaws/petkeeper/game/wallet"
	"github.com/softpaws/petkeeper/model"
	"github.com/softpaws/petkeeper/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB, cache.PubSub) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	wallets := wallet.NewService(db, logger)
	quests := quest.NewService(db, wallets, logger)
	svc := NewService(db, wallets, quests, ps, logger, 10)
	return svc, db, ps
}

func seedWallet(t *testing.T, db *gorm.DB, accountID, balance int64) {
	t.Helper()
	require.NoError(t, db.Create(&model.Wallet{AccountID: accountID, Balance: balance}).Error)
}

func TestCreateCompanion_Defaults(t *testing.T) {
	svc, _, _ := setupService(t)
	c, err := svc.CreateCompanion(context.Background(), 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)

	assert.Equal(t, 100, c.Health)
	assert.Equal(t, 80, c.Hunger)
	assert.Equal(t, 80, c.Happiness)
	assert.Equal(t, 80, c.Cleanliness)
	assert.Equal(t, 80, c.Energy)
	assert.Equal(t, 1, c.Level)
	assert.Equal(t, "egg", c.Stage)
	// Initial mood is derived from the starting stats, not a fixed default.
	assert.Equal(t, string(mood.DeriveMood(StatsOf(c))), c.Mood)
	assert.Equal(t, 1.0, c.TraitPlayful)
	assert.Equal(t, 1.0, c.TraitCalm)
	assert.Equal(t, 1.0, c.TraitActive)
}

func TestGet_WrongOwner(t *testing.T) {
	svc, _, _ := setupService(t)
	c, err := svc.CreateCompanion(context.Background(), 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, c.ID)
	assert.ErrorIs(t, err, ErrCompanionNotFound)
}

func TestPerformAction_FeedPersists(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	seedWallet(t, db, 1, 100)
	c, err := svc.CreateCompanion(ctx, 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)

	res, err := svc.PerformAction(ctx, 1, c.ID, Request{Action: ActionFeed}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(-10), res.CoinDelta)
	assert.Equal(t, 100, res.Companion.Hunger, "80 + 30 clamped")
	assert.Equal(t, 85, res.Companion.Happiness)
	assert.Equal(t, int64(10), res.Reward.XP)

	var stored model.Companion
	require.NoError(t, db.First(&stored, c.ID).Error)
	assert.Equal(t, 100, stored.Hunger)
	assert.Equal(t, int64(10), stored.XP)
	assert.Equal(t, int64(1), stored.Version)
	require.NotNil(t, stored.LastFedAt)

	var w model.Wallet
	require.NoError(t, db.Where("account_id = ?", 1).First(&w).Error)
	assert.Equal(t, int64(90), w.Balance)
	assert.Equal(t, 1, w.StreakDays)

	var snapshots int64
	require.NoError(t, db.Model(&model.StatSnapshot{}).Where("companion_id = ?", c.ID).Count(&snapshots).Error)
	assert.Equal(t, int64(1), snapshots)
}

func TestPerformAction_CooldownRejectsWithoutSideEffects(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	seedWallet(t, db, 1, 100)
	c, err := svc.CreateCompanion(ctx, 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)

	now := time.Now()
	_, err = svc.PerformAction(ctx, 1, c.ID, Request{Action: ActionFeed}, now)
	require.NoError(t, err)

	_, err = svc.PerformAction(ctx, 1, c.ID, Request{Action: ActionFeed}, now.Add(time.Minute))
	var cdErr *CooldownError
	require.ErrorAs(t, err, &cdErr)

	var w model.Wallet
	require.NoError(t, db.Where("account_id = ?", 1).First(&w).Error)
	assert.Equal(t, int64(90), w.Balance, "only the first feed was charged")
}

func TestPerformAction_InsufficientFunds(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	seedWallet(t, db, 1, 5)
	c, err := svc.CreateCompanion(ctx, 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)

	_, err = svc.PerformAction(ctx, 1, c.ID, Request{Action: ActionFeed}, time.Now())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	var w model.Wallet
	require.NoError(t, db.Where("account_id = ?", 1).First(&w).Error)
	assert.Equal(t, int64(5), w.Balance)
}

func TestPerformAction_CompletesQuestAndNotifies(t *testing.T) {
	svc, db, ps := setupService(t)
	ctx := context.Background()
	seedWallet(t, db, 1, 100)
	require.NoError(t, db.Create(&model.QuestDef{
		Key: "daily_feed", Description: "Feed your companion", Type: model.QuestTypeDaily,
		Difficulty: "easy", ActionKey: "feed", TargetValue: 1, RewardCoins: 50, Published: true,
	}).Error)
	c, err := svc.CreateCompanion(ctx, 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)

	msgs, cancel, err := ps.Subscribe(ctx, NotifyChannel(1))
	require.NoError(t, err)
	defer cancel()

	res, err := svc.PerformAction(ctx, 1, c.ID, Request{Action: ActionFeed}, time.Now())
	require.NoError(t, err)

	var types []string
	for _, n := range res.Notifications {
		types = append(types, n.Type)
	}
	assert.Contains(t, types, "quest_completed")

	select {
	case msg := <-msgs:
		assert.Equal(t, NotifyChannel(1), msg.Channel)
		assert.Contains(t, msg.Payload, "quest_completed")
	case <-time.After(time.Second):
		t.Fatal("no notification published")
	}
}

func TestGrantXP_Evolves(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	c, err := svc.CreateCompanion(ctx, 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)

	// 900 xp crosses level 5 and the juvenile xp gate with healthy stats.
	updated, evolved, err := svc.GrantXP(ctx, 1, c.ID, 900, time.Now())
	require.NoError(t, err)
	assert.True(t, evolved)
	assert.Equal(t, "juvenile", updated.Stage)
	assert.Equal(t, 5, updated.Level)

	var stored model.Companion
	require.NoError(t, db.First(&stored, c.ID).Error)
	assert.Equal(t, "juvenile", stored.Stage)
	assert.Equal(t, int64(900), stored.XP)
}

func TestDecaySweep(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	now := time.Now()

	stale, err := svc.CreateCompanion(ctx, 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)
	fresh, err := svc.CreateCompanion(ctx, 1, "Taro", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.Companion{}).Where("id = ?", stale.ID).
		UpdateColumn("updated_at", now.Add(-3*time.Hour)).Error)

	count, err := svc.DecaySweep(ctx, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var sweptStale model.Companion
	require.NoError(t, db.First(&sweptStale, stale.ID).Error)
	assert.Equal(t, 65, sweptStale.Hunger, "3h of decay at 5/h")
	assert.Equal(t, int64(1), sweptStale.Version)

	var sweptFresh model.Companion
	require.NoError(t, db.First(&sweptFresh, fresh.ID).Error)
	assert.Equal(t, 80, sweptFresh.Hunger, "fresh companion untouched")
}

func TestStatus_ProjectsDecayWithoutPersisting(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	now := time.Now()

	c, err := svc.CreateCompanion(ctx, 1, "Mochi", "axolotl", stats.PersonalityTraits{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.Companion{}).Where("id = ?", c.ID).
		UpdateColumn("updated_at", now.Add(-2*time.Hour)).Error)

	status, err := svc.Status(ctx, 1, c.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 70, status.Companion.Hunger, "projected 2h of decay")
	assert.NotEmpty(t, status.Mood)

	var stored model.Companion
	require.NoError(t, db.First(&stored, c.ID).Error)
	assert.Equal(t, 80, stored.Hunger, "row not rewritten by a read")
}
