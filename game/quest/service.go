package quest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/softpaws/petkeeper/game/reward"
	"github.com/softpaws/petkeeper/game/wallet"
	"github.com/softpaws/petkeeper/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service persists quest progress around the pure tracker functions.
type Service struct {
	db      *gorm.DB
	wallets *wallet.Service
	logger  *zap.Logger
}

// NewService creates a quest Service.
func NewService(db *gorm.DB, wallets *wallet.Service, logger *zap.Logger) *Service {
	return &Service{db: db, wallets: wallets, logger: logger}
}

// Entry pairs a catalog quest with the account's progress, if any.
type Entry struct {
	Def      model.QuestDef       `json:"quest"`
	Progress *model.QuestProgress `json:"progress,omitempty"`
}

// List returns all published quests with the account's current progress.
func (svc *Service) List(ctx context.Context, accountID int64) ([]Entry, error) {
	var defs []model.QuestDef
	if err := svc.db.WithContext(ctx).Where("published = ?", true).Order("id").Find(&defs).Error; err != nil {
		return nil, err
	}
	var rows []model.QuestProgress
	if err := svc.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byQuest := make(map[int64]*model.QuestProgress, len(rows))
	for i := range rows {
		byQuest[rows[i].QuestID] = &rows[i]
	}
	entries := make([]Entry, 0, len(defs))
	for _, def := range defs {
		entries = append(entries, Entry{Def: def, Progress: byQuest[def.ID]})
	}
	return entries, nil
}

// OnAction advances every quest keyed to the event's action for the account.
// Progress rows are created on the first qualifying action, and a stale row
// (e.g. claimed in a previous period the scheduler has not swept yet) is
// reopened before the event is counted. Returns the quests completed by this
// event so the caller can notify the user.
func (svc *Service) OnAction(ctx context.Context, accountID int64, ev Event) ([]*model.QuestDef, error) {
	var defs []model.QuestDef
	err := svc.db.WithContext(ctx).
		Where("action_key = ? AND published = ?", ev.ActionKey, true).
		Find(&defs).Error
	if err != nil {
		return nil, err
	}

	var completed []*model.QuestDef
	for i := range defs {
		def := &defs[i]
		if !Eligible(def, ev.At) {
			continue
		}

		var p model.QuestProgress
		err := svc.db.WithContext(ctx).
			Where("account_id = ? AND quest_id = ?", accountID, def.ID).
			First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = model.QuestProgress{
				AccountID:   accountID,
				QuestID:     def.ID,
				Status:      model.QuestStatusPending,
				PeriodStart: PeriodStart(def.Type, ev.At),
			}
			if err := svc.db.WithContext(ctx).Create(&p).Error; err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}

		if reset, changed := ResetIfElapsed(def, p, ev.At); changed {
			p = reset
		}

		next, changed := Advance(def, p, ev)
		if !changed {
			continue
		}
		if err := svc.db.WithContext(ctx).Save(&next).Error; err != nil {
			return nil, err
		}
		if next.Status == model.QuestStatusCompleted {
			completed = append(completed, def)
			svc.logger.Info("quest completed",
				zap.Int64("account_id", accountID),
				zap.String("quest", def.Key))
		}
	}
	return completed, nil
}

// Claim pays out a completed quest: the progress row moves to claimed and the
// coin reward lands on the wallet inside one transaction. The xp portion of
// the outcome is returned for the caller to apply to the companion.
func (svc *Service) Claim(ctx context.Context, accountID int64, questKey string, rctx reward.Context, now time.Time) (reward.Outcome, error) {
	var outcome reward.Outcome
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var def model.QuestDef
		if err := tx.Where("key = ? AND published = ?", questKey, true).First(&def).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestNotFound
			}
			return err
		}
		var p model.QuestProgress
		if err := tx.Where("account_id = ? AND quest_id = ?", accountID, def.ID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestNotFound
			}
			return err
		}

		claimed, err := Claim(p, now)
		if err != nil {
			return err
		}
		if err := tx.Save(&claimed).Error; err != nil {
			return err
		}

		outcome = reward.Compute(rewardSpec(&def), reward.Difficulty(def.Difficulty), rctx)
		if outcome.Coins != 0 {
			if _, err := svc.wallets.ApplyDelta(tx, accountID, outcome.Coins); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return reward.Outcome{}, err
	}
	svc.logger.Info("quest claimed",
		zap.Int64("account_id", accountID),
		zap.String("quest", questKey),
		zap.Int64("coins", outcome.Coins),
		zap.Int64("xp", outcome.XP))
	return outcome, nil
}

// ResetDue reopens every daily/weekly progress row whose period has rolled
// over. Safe to call on any schedule; rows already in the current period are
// untouched. Returns the number of rows reset.
func (svc *Service) ResetDue(ctx context.Context, now time.Time) (int, error) {
	var defs []model.QuestDef
	err := svc.db.WithContext(ctx).
		Where("type IN ?", []string{model.QuestTypeDaily, model.QuestTypeWeekly}).
		Find(&defs).Error
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]*model.QuestDef, len(defs))
	ids := make([]int64, 0, len(defs))
	for i := range defs {
		byID[defs[i].ID] = &defs[i]
		ids = append(ids, defs[i].ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var rows []model.QuestProgress
	if err := svc.db.WithContext(ctx).Where("quest_id IN ?", ids).Find(&rows).Error; err != nil {
		return 0, err
	}

	count := 0
	for i := range rows {
		def := byID[rows[i].QuestID]
		if def == nil {
			continue
		}
		next, changed := ResetIfElapsed(def, rows[i], now)
		if !changed {
			continue
		}
		if err := svc.db.WithContext(ctx).Save(&next).Error; err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		svc.logger.Info("quest progress reset", zap.Int("rows", count))
	}
	return count, nil
}

func rewardSpec(def *model.QuestDef) reward.Spec {
	var items []string
	if len(def.RewardItems) > 0 {
		_ = json.Unmarshal(def.RewardItems, &items)
	}
	return reward.Spec{Coins: def.RewardCoins, XP: def.RewardXP, Items: items}
}
