package mood

import (
	"time"

	"github.com/softpaws/petkeeper/game/stats"
)

// Mood is a discrete label derived from the current stats. The set is closed
// so handlers can match exhaustively instead of passing raw strings around.
type Mood string

const (
	Ecstatic   Mood = "ecstatic"
	Happy      Mood = "happy"
	Content    Mood = "content"
	Anxious    Mood = "anxious"
	Distressed Mood = "distressed"
	Sad        Mood = "sad"
	Moody      Mood = "moody"
	Sleepy     Mood = "sleepy"
)

// Trend describes the direction of recent health samples.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Risk grades how urgently the companion needs care.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Stat weights for the mood score.
const (
	weightHappiness   = 0.30
	weightHealth      = 0.25
	weightHunger      = 0.20
	weightCleanliness = 0.15
	weightEnergy      = 0.10
)

// trendWindow is the number of recent samples considered for the health trend.
const trendWindow = 5

// Snapshot is one historical stat sample used for forecasting.
type Snapshot struct {
	Stats stats.Stats
	At    time.Time
}

// Forecast is a short-term outlook derived from recent samples and the
// current stats.
type Forecast struct {
	Trend              Trend    `json:"trend"`
	Risk               Risk     `json:"risk"`
	RecommendedActions []string `json:"recommended_actions"`
}

// Score returns the weighted stat sum used for mood bucketing.
func Score(s stats.Stats) float64 {
	return weightHappiness*float64(s.Happiness) +
		weightHealth*float64(s.Health) +
		weightHunger*float64(s.Hunger) +
		weightCleanliness*float64(s.Cleanliness) +
		weightEnergy*float64(s.Energy)
}

// DeriveMood buckets the weighted score into a mood label. In the middle
// bands a single starved stat colors the mood: an exhausted pet reads as
// sleepy, a joyless one as sad, a filthy one as moody. Precedence is fixed
// (sleepy, then sad, then moody) so the result is deterministic.
func DeriveMood(s stats.Stats) Mood {
	score := Score(s)
	switch {
	case score >= 85:
		return Ecstatic
	case score >= 70:
		return Happy
	case score >= 30:
		if s.Energy < stats.CriticalEnergy {
			return Sleepy
		}
		if s.Happiness < stats.CriticalHappiness {
			return Sad
		}
		if s.Cleanliness < stats.CriticalCleanliness {
			return Moody
		}
		if score >= 50 {
			return Content
		}
		return Anxious
	default:
		return Distressed
	}
}

// DeriveRisk grades the stats: high if any critical threshold is breached,
// medium if any stat is below 50, low otherwise.
func DeriveRisk(s stats.Stats) Risk {
	if s.AnyCritical() {
		return RiskHigh
	}
	if s.AnyBelow(50) {
		return RiskMedium
	}
	return RiskLow
}

// RecommendActions returns a deterministic list of care suggestions keyed to
// which stats sit below their critical thresholds.
func RecommendActions(s stats.Stats) []string {
	var out []string
	if s.Hunger < stats.CriticalHunger {
		out = append(out, "feed soon")
	}
	if s.Happiness < stats.CriticalHappiness {
		out = append(out, "play together")
	}
	if s.Cleanliness < stats.CriticalCleanliness {
		out = append(out, "time for a bath")
	}
	if s.Energy < stats.CriticalEnergy {
		out = append(out, "let them rest")
	}
	return out
}

// DeriveForecast combines the health trend over recent samples with the risk
// grade of the latest stats. With fewer than two samples the trend is stable.
func DeriveForecast(history []Snapshot, current stats.Stats) Forecast {
	return Forecast{
		Trend:              healthTrend(history),
		Risk:               DeriveRisk(current),
		RecommendedActions: RecommendActions(current),
	}
}

// healthTrend returns the sign of the health slope over the last trendWindow
// samples. Samples are expected oldest-first.
func healthTrend(history []Snapshot) Trend {
	if len(history) > trendWindow {
		history = history[len(history)-trendWindow:]
	}
	if len(history) < 2 {
		return TrendStable
	}

	// Least-squares slope with the sample index as x; only the sign matters.
	n := float64(len(history))
	var sumX, sumY, sumXY, sumXX float64
	for i, snap := range history {
		x := float64(i)
		y := float64(snap.Stats.Health)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return TrendStable
	}
	slope := (n*sumXY - sumX*sumY) / denom
	switch {
	case slope > 0.1:
		return TrendImproving
	case slope < -0.1:
		return TrendDeclining
	default:
		return TrendStable
	}
}
