package quest

import (
	"errors"
	"time"

	"github.com/softpaws/petkeeper/model"
)

// ErrInvalidTransition is returned for backward status moves, e.g. claiming a
// quest that is not completed.
var ErrInvalidTransition = errors.New("quest: invalid status transition")

// ErrQuestNotFound is returned when a quest key has no catalog entry.
var ErrQuestNotFound = errors.New("quest: not found")

// Event is one completed care action or game event fed to the tracker.
type Event struct {
	ActionKey string
	Magnitude int // defaults to 1 when zero
	At        time.Time
}

// Eligible reports whether a quest definition counts events at the given
// time: it must be published and, for event quests, inside its active window.
func Eligible(def *model.QuestDef, at time.Time) bool {
	if !def.Published {
		return false
	}
	if def.StartAt != nil && at.Before(*def.StartAt) {
		return false
	}
	if def.EndAt != nil && !at.Before(*def.EndAt) {
		return false
	}
	return true
}

// Advance applies one event to a progress record. Only pending and
// in_progress rows move; progress clamps at the target and the first
// increment moves pending to in_progress. Hitting the target completes the
// quest and stamps CompletedAt. Returns the updated record and whether it
// changed.
func Advance(def *model.QuestDef, p model.QuestProgress, ev Event) (model.QuestProgress, bool) {
	if p.Status != model.QuestStatusPending && p.Status != model.QuestStatusInProgress {
		return p, false
	}
	if def.ActionKey != ev.ActionKey || !Eligible(def, ev.At) {
		return p, false
	}
	magnitude := ev.Magnitude
	if magnitude <= 0 {
		magnitude = 1
	}
	if p.Progress >= def.TargetValue {
		return p, false
	}

	p.Progress += magnitude
	if p.Progress > def.TargetValue {
		p.Progress = def.TargetValue
	}
	if p.Status == model.QuestStatusPending {
		p.Status = model.QuestStatusInProgress
	}
	if p.Progress == def.TargetValue {
		p.Status = model.QuestStatusCompleted
		at := ev.At
		p.CompletedAt = &at
	}
	return p, true
}

// Claim moves a completed quest to claimed, stamping ClaimedAt exactly once.
// Any other starting status is an ErrInvalidTransition.
func Claim(p model.QuestProgress, now time.Time) (model.QuestProgress, error) {
	if p.Status != model.QuestStatusCompleted {
		return p, ErrInvalidTransition
	}
	p.Status = model.QuestStatusClaimed
	p.ClaimedAt = &now
	return p, nil
}

// PeriodStart returns the start of the current reset period for a quest type:
// UTC midnight for daily, UTC Monday 00:00 for weekly. Event quests have no
// period and return the zero time.
func PeriodStart(questType string, now time.Time) time.Time {
	u := now.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	switch questType {
	case model.QuestTypeDaily:
		return midnight
	case model.QuestTypeWeekly:
		// time.Weekday numbers Sunday as 0; shift so Monday is the origin.
		offset := (int(u.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	default:
		return time.Time{}
	}
}

// ResetIfElapsed reopens a progress record when its period has rolled over.
// The comparison is against the record's PeriodStart anchor, so calling this
// any number of times within one period resets at most once, and a claimed
// quest is only reopened after the boundary has actually passed.
func ResetIfElapsed(def *model.QuestDef, p model.QuestProgress, now time.Time) (model.QuestProgress, bool) {
	if def.Type != model.QuestTypeDaily && def.Type != model.QuestTypeWeekly {
		return p, false
	}
	boundary := PeriodStart(def.Type, now)
	if !p.PeriodStart.Before(boundary) {
		return p, false
	}
	p.Progress = 0
	p.Status = model.QuestStatusPending
	p.CompletedAt = nil
	p.ClaimedAt = nil
	p.PeriodStart = boundary
	return p, true
}
