// Package progression converts submission outcomes into experience, levels and streaks.
package progression

import (
	"math"
	"time"
)

// Mode is the session mode a submission was made in.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeLearn    Mode = "learn"
)

func (m Mode) Valid() bool {
	return m == ModePractice || m == ModeLearn
}

// Progression holds per-learner totals.
type Progression struct {
	LearnerID      string     `db:"learner_id"`
	TotalXP        int        `db:"total_xp"`
	Level          int        `db:"-"`
	CurrentStreak  int        `db:"current_streak"`
	LongestStreak  int        `db:"longest_streak"`
	LastActiveDate *time.Time `db:"last_active_date"`
	Submissions    int        `db:"submissions"`
	CorrectAnswers int        `db:"correct_answers"`
	PerfectAnswers int        `db:"perfect_answers"`
	ItemsStarted   int        `db:"items_started"`
	Version        int64      `db:"version"`
}

// New returns the progression of a learner who has not submitted anything yet.
func New(learnerID string) Progression {
	return Progression{LearnerID: learnerID, Level: 1}
}

// Outcome is the part of a submission the engine needs.
type Outcome struct {
	Correct  bool
	Accuracy int
	Mode     Mode
	// Date is the submission's calendar day in the learner's time zone, at midnight UTC.
	Date          time.Time
	FirstExposure bool
}

// Delta is the immutable result of one award.
type Delta struct {
	XPEarned      int
	Correct       bool
	PreviousLevel int
	NewLevel      int
	LeveledUp     bool
	StreakBefore  int
	StreakAfter   int
}

type Multipliers struct {
	LearnMode     float64
	PartialCredit float64
}

func DefaultMultipliers() Multipliers {
	return Multipliers{LearnMode: 0.5, PartialCredit: 0.2}
}

// Engine awards experience. It holds configuration only and is safe for concurrent use.
type Engine struct {
	curve       LevelCurve
	multipliers Multipliers
}

func NewEngine(curve LevelCurve, multipliers Multipliers) *Engine {
	return &Engine{curve: curve, multipliers: multipliers}
}

func (e *Engine) Curve() LevelCurve {
	return e.curve
}

// Award computes the experience for outcome and returns the next progression.
// The input progression is not modified.
func (e *Engine) Award(outcome Outcome, baseXP int, p Progression) (Delta, Progression) {
	next := p
	xp := e.XPFor(outcome, baseXP)

	next.TotalXP = p.TotalXP + xp
	previousLevel := e.curve.Level(p.TotalXP)
	next.Level = e.curve.Level(next.TotalXP)

	next.CurrentStreak, next.LastActiveDate = advanceStreak(p.CurrentStreak, p.LastActiveDate, outcome.Date)
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}

	next.Submissions++
	if outcome.Correct {
		next.CorrectAnswers++
	}
	if outcome.Accuracy >= 100 {
		next.PerfectAnswers++
	}
	if outcome.FirstExposure {
		next.ItemsStarted++
	}

	return Delta{
		XPEarned:      xp,
		Correct:       outcome.Correct,
		PreviousLevel: previousLevel,
		NewLevel:      next.Level,
		LeveledUp:     next.Level > previousLevel,
		StreakBefore:  p.CurrentStreak,
		StreakAfter:   next.CurrentStreak,
	}, next
}

// XPFor returns round-half-up(baseXP * modeFactor * accuracyFactor).
func (e *Engine) XPFor(outcome Outcome, baseXP int) int {
	if baseXP <= 0 {
		return 0
	}
	modeFactor := 1.0
	if outcome.Mode == ModeLearn {
		modeFactor = e.multipliers.LearnMode
	}
	accuracyFactor := 1.0
	if !outcome.Correct {
		accuracyFactor = e.multipliers.PartialCredit
	}
	return roundHalfUp(float64(baseXP) * modeFactor * accuracyFactor)
}

func roundHalfUp(v float64) int {
	// the epsilon absorbs products like 12.499999999 that should be 12.5
	return int(math.Floor(v + 0.5 + 1e-9))
}

func advanceStreak(streak int, lastActive *time.Time, date time.Time) (int, *time.Time) {
	day := truncateDay(date)
	if lastActive == nil {
		return 1, &day
	}
	last := truncateDay(*lastActive)
	switch gap := daysBetween(last, day); {
	case gap < 0:
		// a submission stamped before the last active day does not move the streak
		return streak, lastActive
	case gap == 0:
		return streak, &day
	case gap == 1:
		return streak + 1, &day
	default:
		return 1, &day
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// Day returns the calendar day of t in loc as midnight UTC.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return truncateDay(t.In(loc))
}
