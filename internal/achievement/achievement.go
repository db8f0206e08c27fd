// Package achievement evaluates unlock criteria against cumulative learner stats.
package achievement

import (
	"time"
)

// Metric names a monotonic cumulative stat.
type Metric string

const (
	MetricTotalXP        Metric = "total_xp"
	MetricLevel          Metric = "level"
	MetricLongestStreak  Metric = "longest_streak"
	MetricSubmissions    Metric = "submissions"
	MetricCorrectAnswers Metric = "correct_answers"
	MetricPerfectAnswers Metric = "perfect_answers"
	MetricItemsStarted   Metric = "items_started"
)

var knownMetrics = map[Metric]struct{}{
	MetricTotalXP:        {},
	MetricLevel:          {},
	MetricLongestStreak:  {},
	MetricSubmissions:    {},
	MetricCorrectAnswers: {},
	MetricPerfectAnswers: {},
	MetricItemsStarted:   {},
}

// Stats are the cumulative values the predicates look at.
type Stats struct {
	TotalXP        int
	Level          int
	CurrentStreak  int
	LongestStreak  int
	Submissions    int
	CorrectAnswers int
	PerfectAnswers int
	ItemsStarted   int
}

func (s Stats) value(m Metric) int {
	switch m {
	case MetricTotalXP:
		return s.TotalXP
	case MetricLevel:
		return s.Level
	case MetricLongestStreak:
		return s.LongestStreak
	case MetricSubmissions:
		return s.Submissions
	case MetricCorrectAnswers:
		return s.CorrectAnswers
	case MetricPerfectAnswers:
		return s.PerfectAnswers
	case MetricItemsStarted:
		return s.ItemsStarted
	}
	return 0
}

type Definition struct {
	ID        string `yaml:"id" validate:"required"`
	Title     string `yaml:"title"`
	Metric    Metric `yaml:"metric" validate:"required"`
	Threshold int    `yaml:"threshold" validate:"gt=0"`
}

// Met reports whether stats satisfy the definition.
func (d Definition) Met(stats Stats) bool {
	return stats.value(d.Metric) >= d.Threshold
}

type Unlock struct {
	ID         string    `db:"achievement_id" json:"id"`
	UnlockedAt time.Time `db:"unlocked_at" json:"unlocked_at"`
}

// Evaluate returns the achievements newly met by stats, in definition order.
// Every definition missing from unlocked is checked, not only the ones related
// to the latest event, so a single large gain unlocks everything it crosses.
func Evaluate(defs []Definition, stats Stats, unlocked map[string]time.Time, now time.Time) []Unlock {
	var result []Unlock
	for _, def := range defs {
		if _, ok := unlocked[def.ID]; ok {
			continue
		}
		if def.Met(stats) {
			result = append(result, Unlock{ID: def.ID, UnlockedAt: now})
		}
	}
	return result
}

func DefaultDefinitions() []Definition {
	return []Definition{
		{ID: "first-steps", Title: "First steps", Metric: MetricSubmissions, Threshold: 1},
		{ID: "xp-100", Title: "100 XP", Metric: MetricTotalXP, Threshold: 100},
		{ID: "xp-1000", Title: "1,000 XP", Metric: MetricTotalXP, Threshold: 1000},
		{ID: "xp-10000", Title: "10,000 XP", Metric: MetricTotalXP, Threshold: 10000},
		{ID: "level-5", Title: "Level 5", Metric: MetricLevel, Threshold: 5},
		{ID: "level-10", Title: "Level 10", Metric: MetricLevel, Threshold: 10},
		{ID: "streak-3", Title: "Three days in a row", Metric: MetricLongestStreak, Threshold: 3},
		{ID: "streak-7", Title: "One week streak", Metric: MetricLongestStreak, Threshold: 7},
		{ID: "streak-30", Title: "One month streak", Metric: MetricLongestStreak, Threshold: 30},
		{ID: "correct-50", Title: "50 correct answers", Metric: MetricCorrectAnswers, Threshold: 50},
		{ID: "perfect-10", Title: "10 perfect answers", Metric: MetricPerfectAnswers, Threshold: 10},
		{ID: "items-25", Title: "25 items started", Metric: MetricItemsStarted, Threshold: 25},
		{ID: "items-100", Title: "100 items started", Metric: MetricItemsStarted, Threshold: 100},
	}
}
