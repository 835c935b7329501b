package care

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/softpaws/petkeeper/cache"
	"github.com/softpaws/petkeeper/game/evolution"
	"github.com/softpaws/petkeeper/game/mood"
	"github.com/softpaws/petkeeper/game/quest"
	"github.com/softpaws/petkeeper/game/reward"
	"github.com/softpaws/petkeeper/game/stats"
	"github.com/softpaws/petkeeper/game/wallet"
	"github.com/softpaws/petkeeper/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// New-companion defaults: full health, everything else at 80. The source
// material is ambiguous between 70/80 and 100/100 starts; 100/80 gives a
// healthy pet that still wants attention.
const (
	defaultHealth = 100
	defaultStat   = 80
)

// forecastWindow is how many recent snapshots feed the health trend.
const forecastWindow = 10

// Service applies care actions: it merges catch-up decay with action effects,
// re-evaluates evolution, advances quests keyed to the action, settles the
// wallet, and publishes notifications for the SSE stream.
type Service struct {
	db       *gorm.DB
	wallets  *wallet.Service
	quests   *quest.Service
	pubsub   cache.PubSub
	logger   *zap.Logger
	actionXP int64
}

// NewService creates a care Service. actionXP is the base xp granted per care
// action before multipliers.
func NewService(db *gorm.DB, wallets *wallet.Service, quests *quest.Service, pubsub cache.PubSub, logger *zap.Logger, actionXP int64) *Service {
	return &Service{
		db:       db,
		wallets:  wallets,
		quests:   quests,
		pubsub:   pubsub,
		logger:   logger,
		actionXP: actionXP,
	}
}

// Notification is a user-facing event delivered over the SSE stream.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ActionResponse is the full outcome of one care action.
type ActionResponse struct {
	Companion     model.Companion `json:"companion"`
	CoinDelta     int64           `json:"coin_delta"`
	Reaction      string          `json:"reaction"`
	Mood          mood.Mood       `json:"mood"`
	Reward        reward.Outcome  `json:"reward"`
	Evolved       bool            `json:"evolved"`
	Forecast      mood.Forecast   `json:"forecast"`
	Notifications []Notification  `json:"notifications"`
}

// StatusResponse is a read-only view of a companion with decay projected to
// "now" but not persisted; the periodic sweep owns persistence.
type StatusResponse struct {
	Companion model.Companion `json:"companion"`
	Mood      mood.Mood       `json:"mood"`
	Forecast  mood.Forecast   `json:"forecast"`
}

// CreateCompanion creates a companion with default stats for the account.
// Zero trait fields fall back to the neutral 1.0 modifier.
func (svc *Service) CreateCompanion(ctx context.Context, accountID int64, name, species string, traits stats.PersonalityTraits) (*model.Companion, error) {
	if traits.Playful <= 0 {
		traits.Playful = 1.0
	}
	if traits.Calm <= 0 {
		traits.Calm = 1.0
	}
	if traits.Active <= 0 {
		traits.Active = 1.0
	}
	starting := stats.Stats{
		Health:      defaultHealth,
		Hunger:      defaultStat,
		Happiness:   defaultStat,
		Cleanliness: defaultStat,
		Energy:      defaultStat,
	}
	c := &model.Companion{
		AccountID:    accountID,
		Name:         name,
		Species:      species,
		Health:       starting.Health,
		Hunger:       starting.Hunger,
		Happiness:    starting.Happiness,
		Cleanliness:  starting.Cleanliness,
		Energy:       starting.Energy,
		Level:        1,
		Stage:        string(evolution.StageEgg),
		Mood:         string(mood.DeriveMood(starting)),
		TraitPlayful: traits.Playful,
		TraitCalm:    traits.Calm,
		TraitActive:  traits.Active,
	}
	if err := svc.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	svc.logger.Info("companion created",
		zap.Int64("account_id", accountID),
		zap.Int64("companion_id", c.ID),
		zap.String("name", name))
	return c, nil
}

// Get loads a companion owned by the account.
func (svc *Service) Get(ctx context.Context, accountID, companionID int64) (*model.Companion, error) {
	var c model.Companion
	err := svc.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", companionID, accountID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all companions owned by the account.
func (svc *Service) List(ctx context.Context, accountID int64) ([]model.Companion, error) {
	var out []model.Companion
	err := svc.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id").Find(&out).Error
	return out, err
}

// Status projects decay onto the companion for display without persisting it,
// and derives mood and forecast from the projected stats.
func (svc *Service) Status(ctx context.Context, accountID, companionID int64, now time.Time) (*StatusResponse, error) {
	c, err := svc.Get(ctx, accountID, companionID)
	if err != nil {
		return nil, err
	}
	view := *c
	s := stats.ApplyDecay(StatsOf(&view), TraitsOf(&view), now.Sub(view.UpdatedAt))
	setStats(&view, s)
	m := mood.DeriveMood(s)
	view.Mood = string(m)

	history, err := svc.history(ctx, companionID)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{
		Companion: view,
		Mood:      m,
		Forecast:  mood.DeriveForecast(history, s),
	}, nil
}

// PerformAction runs the full action pipeline: resolve (cooldown, funds,
// decay-then-delta), grant action xp, re-evaluate evolution, settle wallet
// and streak in one transaction, advance quests, record a snapshot, and
// derive the forecast.
func (svc *Service) PerformAction(ctx context.Context, accountID, companionID int64, req Request, now time.Time) (*ActionResponse, error) {
	c, err := svc.Get(ctx, accountID, companionID)
	if err != nil {
		return nil, err
	}
	w, err := svc.wallets.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	res, err := Resolve(*c, req, w.Balance, now)
	if err != nil {
		return nil, err
	}
	updated := res.Companion

	// Action xp, then the evolution check. When the companion advances a
	// stage the payout is recomputed with the one-time evolution bonus.
	rctx := reward.Context{StreakDays: w.StreakDays, Stage: evolution.Stage(updated.Stage)}
	out := reward.Compute(reward.Spec{XP: svc.actionXP}, reward.DifficultyEasy, rctx)

	xp := updated.XP + out.XP
	level := evolution.LevelForXP(xp)
	eval := evolution.Evaluate(evolution.Stage(updated.Stage), level, xp, StatsOf(&updated))
	if eval.Evolved {
		rctx.EvolutionBonus = true
		out = reward.Compute(reward.Spec{XP: svc.actionXP}, reward.DifficultyEasy, rctx)
		xp = updated.XP + out.XP
		level = evolution.LevelForXP(xp)
		updated.Stage = string(eval.Stage)
	}
	updated.XP = xp
	updated.Level = level

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := svc.saveVersioned(tx, c.Version, &updated); err != nil {
			return err
		}
		if res.CoinDelta != 0 {
			if _, err := svc.wallets.ApplyDelta(tx, accountID, res.CoinDelta); err != nil {
				return err
			}
		}
		_, err := svc.wallets.MarkCareDay(tx, accountID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	var notifications []Notification
	if eval.Evolved {
		notifications = append(notifications, Notification{
			Type:    "evolution",
			Message: fmt.Sprintf("%s evolved into a %s!", updated.Name, updated.Stage),
		})
	}

	completed, err := svc.quests.OnAction(ctx, accountID, quest.Event{ActionKey: string(req.Action), At: now})
	if err != nil {
		svc.logger.Error("quest progress update failed", zap.Error(err))
	}
	for _, def := range completed {
		notifications = append(notifications, Notification{
			Type:    "quest_completed",
			Message: fmt.Sprintf("Quest complete: %s", def.Description),
		})
	}

	finalStats := StatsOf(&updated)
	svc.recordSnapshot(ctx, updated.ID, finalStats, res.Mood)
	history, err := svc.history(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	forecast := mood.DeriveForecast(history, finalStats)
	if forecast.Risk == mood.RiskHigh {
		notifications = append(notifications, Notification{
			Type:    "care_warning",
			Message: fmt.Sprintf("%s needs attention: %v", updated.Name, forecast.RecommendedActions),
		})
	}
	svc.publish(ctx, accountID, notifications)

	svc.logger.Info("care action resolved",
		zap.Int64("account_id", accountID),
		zap.Int64("companion_id", updated.ID),
		zap.String("action", string(req.Action)),
		zap.Int64("coin_delta", res.CoinDelta),
		zap.Bool("evolved", eval.Evolved))

	return &ActionResponse{
		Companion:     updated,
		CoinDelta:     res.CoinDelta,
		Reaction:      res.Reaction,
		Mood:          res.Mood,
		Reward:        out,
		Evolved:       eval.Evolved,
		Forecast:      forecast,
		Notifications: notifications,
	}, nil
}

// GrantXP adds xp to a companion (quest claims) and re-evaluates evolution.
func (svc *Service) GrantXP(ctx context.Context, accountID, companionID, xp int64, now time.Time) (*model.Companion, bool, error) {
	c, err := svc.Get(ctx, accountID, companionID)
	if err != nil {
		return nil, false, err
	}
	updated := *c
	updated.XP += xp
	updated.Level = evolution.LevelForXP(updated.XP)
	eval := evolution.Evaluate(evolution.Stage(updated.Stage), updated.Level, updated.XP, StatsOf(&updated))
	if eval.Evolved {
		updated.Stage = string(eval.Stage)
	}
	if err := svc.saveVersioned(svc.db.WithContext(ctx), c.Version, &updated); err != nil {
		return nil, false, err
	}
	if eval.Evolved {
		svc.publish(ctx, accountID, []Notification{{
			Type:    "evolution",
			Message: fmt.Sprintf("%s evolved into a %s!", updated.Name, updated.Stage),
		}})
	}
	return &updated, eval.Evolved, nil
}

// DecaySweep persists catch-up decay for companions untouched for at least
// staleAfter, recording a snapshot each and warning owners whose pets have
// slipped into a critical range. Returns the number of companions updated.
func (svc *Service) DecaySweep(ctx context.Context, staleAfter time.Duration, now time.Time) (int, error) {
	var companions []model.Companion
	cutoff := now.Add(-staleAfter)
	if err := svc.db.WithContext(ctx).Where("updated_at < ?", cutoff).Find(&companions).Error; err != nil {
		return 0, err
	}

	count := 0
	for i := range companions {
		c := companions[i]
		s := stats.ApplyDecay(StatsOf(&c), TraitsOf(&c), now.Sub(c.UpdatedAt))
		m := mood.DeriveMood(s)
		updated := c
		setStats(&updated, s)
		updated.Mood = string(m)
		updated.UpdatedAt = now

		if err := svc.saveVersioned(svc.db.WithContext(ctx), c.Version, &updated); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue // an action beat the sweep; it already decayed
			}
			return count, err
		}
		svc.recordSnapshot(ctx, c.ID, s, m)
		if s.AnyCritical() {
			svc.publish(ctx, c.AccountID, []Notification{{
				Type:    "care_warning",
				Message: fmt.Sprintf("%s needs attention: %v", c.Name, mood.RecommendActions(s)),
			}})
		}
		count++
	}
	return count, nil
}

// PruneSnapshots deletes stat snapshots older than the retention window.
func (svc *Service) PruneSnapshots(ctx context.Context, keep time.Duration, now time.Time) (int64, error) {
	res := svc.db.WithContext(ctx).
		Where("created_at < ?", now.Add(-keep)).
		Delete(&model.StatSnapshot{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		svc.logger.Info("stat snapshots pruned", zap.Int64("rows", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// saveVersioned writes the companion with an optimistic version check. A
// concurrent writer bumps the version first and this save affects zero rows.
func (svc *Service) saveVersioned(tx *gorm.DB, expectedVersion int64, c *model.Companion) error {
	c.Version = expectedVersion + 1
	result := tx.Model(&model.Companion{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Updates(map[string]interface{}{
			"health":            c.Health,
			"hunger":            c.Hunger,
			"happiness":         c.Happiness,
			"cleanliness":       c.Cleanliness,
			"energy":            c.Energy,
			"level":             c.Level,
			"xp":                c.XP,
			"stage":             c.Stage,
			"mood":              c.Mood,
			"last_fed_at":       c.LastFedAt,
			"last_played_at":    c.LastPlayedAt,
			"last_bathed_at":    c.LastBathedAt,
			"last_rested_at":    c.LastRestedAt,
			"rest_cooldown_min": c.RestCooldownMin,
			"version":           c.Version,
			"updated_at":        c.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (svc *Service) recordSnapshot(ctx context.Context, companionID int64, s stats.Stats, m mood.Mood) {
	payload, _ := json.Marshal(s)
	snap := &model.StatSnapshot{
		CompanionID: companionID,
		Stats:       datatypes.JSON(payload),
		Mood:        string(m),
	}
	if err := svc.db.WithContext(ctx).Create(snap).Error; err != nil {
		svc.logger.Warn("stat snapshot write failed", zap.Error(err))
	}
}

// history loads the most recent snapshots, oldest first.
func (svc *Service) history(ctx context.Context, companionID int64) ([]mood.Snapshot, error) {
	var rows []model.StatSnapshot
	err := svc.db.WithContext(ctx).
		Where("companion_id = ?", companionID).
		Order("id DESC").
		Limit(forecastWindow).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]mood.Snapshot, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		var s stats.Stats
		if err := json.Unmarshal(rows[i].Stats, &s); err != nil {
			continue
		}
		out = append(out, mood.Snapshot{Stats: s, At: rows[i].CreatedAt})
	}
	return out, nil
}

func (svc *Service) publish(ctx context.Context, accountID int64, notifications []Notification) {
	if svc.pubsub == nil {
		return
	}
	for _, n := range notifications {
		payload, _ := json.Marshal(n)
		if err := svc.pubsub.Publish(ctx, NotifyChannel(accountID), string(payload)); err != nil {
			svc.logger.Warn("notification publish failed", zap.Error(err))
		}
	}
}

// NotifyChannel is the per-account pub/sub channel for care notifications.
func NotifyChannel(accountID int64) string {
	return fmt.Sprintf("notify:%d", accountID)
}
