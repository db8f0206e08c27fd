// Package learning applies submissions and builds daily sessions on top of the pure
// scheduling, progression and achievement packages.
package learning

import (
	"time"

	"github.com/at-ishikawa/kioku/internal/achievement"
	"github.com/at-ishikawa/kioku/internal/progression"
	"github.com/at-ishikawa/kioku/internal/review"
)

// SubmitRequest is one graded answer.
type SubmitRequest struct {
	// SubmissionID is an optional client key; a repeated id returns the first result.
	SubmissionID     string `json:"submission_id" validate:"omitempty,max=64"`
	LearnerID        string `json:"learner_id" validate:"required,max=64"`
	ContentItemID    string `json:"content_item_id" validate:"required,max=128"`
	Accuracy         int    `json:"accuracy" validate:"min=0,max=100"`
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"min=0"`
	UserAnswer       string `json:"user_answer"`
	// CorrectAnswer is what the client displayed; the catalog answer is used for grading.
	CorrectAnswer string `json:"correct_answer"`
	Mode          string `json:"mode" validate:"required,oneof=learn practice"`
	// ClientXPEstimate is a display-only guess from the client and is ignored.
	ClientXPEstimate *int `json:"client_xp_estimate,omitempty"`
}

type SubmitResult struct {
	Correct              bool      `json:"correct"`
	XPEarned             int       `json:"xp_earned"`
	NewLevel             int       `json:"new_level"`
	LeveledUp            bool      `json:"leveled_up"`
	NextDueAt            time.Time `json:"next_due_at"`
	AchievementsUnlocked []string  `json:"achievements_unlocked"`
	TotalXP              int       `json:"total_xp"`
	CurrentStreak        int       `json:"current_streak"`
}

// SubmissionRecord is the history row written with every applied submission.
type SubmissionRecord struct {
	LearnerID        string    `db:"learner_id"`
	SubmissionID     *string   `db:"submission_id"`
	ContentItemID    string    `db:"content_item_id"`
	Accuracy         int       `db:"accuracy"`
	Quality          int       `db:"quality"`
	Mode             string    `db:"mode"`
	TimeSpentSeconds int       `db:"time_spent_seconds"`
	XPEarned         int       `db:"xp_earned"`
	Result           []byte    `db:"result"`
	SubmittedAt      time.Time `db:"submitted_at"`
}

// Commit is everything one submission changes. Versions on Item and
// Progression are the versions that were read; the store applies the commit
// only if they are still current.
type Commit struct {
	Item        review.Item
	Progression progression.Progression
	Unlocks     []achievement.Unlock
	Submission  SubmissionRecord
}

type ProgressSummary struct {
	LearnerID      string               `json:"learner_id"`
	TotalXP        int                  `json:"total_xp"`
	Level          int                  `json:"level"`
	XPToNextLevel  int                  `json:"xp_to_next_level"`
	CurrentStreak  int                  `json:"current_streak"`
	LongestStreak  int                  `json:"longest_streak"`
	LastActiveDate *time.Time           `json:"last_active_date,omitempty"`
	Submissions    int                  `json:"submissions"`
	CorrectAnswers int                  `json:"correct_answers"`
	PerfectAnswers int                  `json:"perfect_answers"`
	ItemsStarted   int                  `json:"items_started"`
	Achievements   []achievement.Unlock `json:"achievements"`
}
