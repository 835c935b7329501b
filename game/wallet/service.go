package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/softpaws/petkeeper/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInsufficientFunds is returned when a debit exceeds the balance.
var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

// Service owns wallet storage. The game engine only emits signed coin deltas;
// this service applies them, keeping balance and lifetime counters in one
// place so the apply can ride the caller's transaction.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a wallet Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Get returns the account's wallet, creating an empty one if missing.
func (svc *Service) Get(ctx context.Context, accountID int64) (*model.Wallet, error) {
	return svc.get(svc.db.WithContext(ctx), accountID)
}

func (svc *Service) get(tx *gorm.DB, accountID int64) (*model.Wallet, error) {
	var w model.Wallet
	err := tx.Where("account_id = ?", accountID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = model.Wallet{AccountID: accountID}
		if err := tx.Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ApplyDelta applies a signed coin delta on the given transaction handle.
// Negative deltas that exceed the balance fail with ErrInsufficientFunds and
// leave the wallet untouched, so callers can treat engine output as
// provisional until the wallet write succeeds.
func (svc *Service) ApplyDelta(tx *gorm.DB, accountID int64, delta int64) (*model.Wallet, error) {
	w, err := svc.get(tx, accountID)
	if err != nil {
		return nil, err
	}
	if delta < 0 && w.Balance+delta < 0 {
		return nil, ErrInsufficientFunds
	}
	w.Balance += delta
	if delta >= 0 {
		w.LifetimeEarned += delta
	} else {
		w.LifetimeSpent += -delta
	}
	if err := tx.Save(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

// MarkCareDay updates the consecutive-care-day streak. Caring on the UTC day
// after the last care day extends the streak, a gap restarts it at 1, and a
// second qualifying action on the same day is a no-op.
func (svc *Service) MarkCareDay(tx *gorm.DB, accountID int64, now time.Time) (*model.Wallet, error) {
	w, err := svc.get(tx, accountID)
	if err != nil {
		return nil, err
	}
	day := utcDate(now)
	if w.LastCareDay != nil {
		last := utcDate(*w.LastCareDay)
		switch {
		case day.Equal(last):
			return w, nil
		case day.Equal(last.AddDate(0, 0, 1)):
			w.StreakDays++
		default:
			w.StreakDays = 1
		}
	} else {
		w.StreakDays = 1
	}
	w.LastCareDay = &day
	if err := tx.Save(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

func utcDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
