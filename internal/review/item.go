// Package review implements the SM-2 review scheduler for learner items.
package review

import "time"

// Item is the review state of one content item for one learner.
type Item struct {
	LearnerID       string     `db:"learner_id"`
	ContentItemID   string     `db:"content_item_id"`
	EasinessFactor  float64    `db:"easiness_factor"`
	RepetitionCount int        `db:"repetition_count"`
	IntervalDays    int        `db:"interval_days"`
	DueAt           time.Time  `db:"due_at"`
	LastReviewedAt  *time.Time `db:"last_reviewed_at"`
	// Version is the optimistic concurrency token; 0 means not yet stored.
	Version int64 `db:"version"`
}

// IsDue reports whether the item should be reviewed at now.
func (item Item) IsDue(now time.Time) bool {
	if item.LastReviewedAt == nil {
		return true
	}
	return !item.DueAt.After(now)
}

// Overdue returns how long the item has been due. Negative when not yet due.
func (item Item) Overdue(now time.Time) time.Duration {
	return now.Sub(item.DueAt)
}
