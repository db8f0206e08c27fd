package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/kioku/internal/achievement"
	"github.com/at-ishikawa/kioku/internal/progression"
	"github.com/at-ishikawa/kioku/internal/review"
)

//go:generate mockgen -source=repository.go -destination=../mocks/learning/mock_store.go -package=mock_learning

// Store reads learner state and applies submissions atomically.
type Store interface {
	FindReviewItem(ctx context.Context, learnerID, contentItemID string) (*review.Item, error)
	FindReviewItems(ctx context.Context, learnerID string) ([]review.Item, error)
	FindProgression(ctx context.Context, learnerID string) (*progression.Progression, error)
	FindUnlocks(ctx context.Context, learnerID string) ([]achievement.Unlock, error)
	FindSubmissionResult(ctx context.Context, learnerID, submissionID string) ([]byte, error)
	// ApplySubmission writes the commit in one transaction, or returns
	// ErrConcurrentModification without writing anything.
	ApplySubmission(ctx context.Context, commit Commit) error
}

const mysqlDuplicateEntry = 1062

const reviewItemColumns = "learner_id, content_item_id, easiness_factor, repetition_count, interval_days, due_at, last_reviewed_at, version"

const progressionColumns = "learner_id, total_xp, current_streak, longest_streak, last_active_date, submissions, correct_answers, perfect_answers, items_started, version"

// DBStore implements Store using MySQL.
type DBStore struct {
	db *sqlx.DB
}

// NewDBStore creates a new DBStore.
func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

// FindReviewItem returns the review state of one item, or nil if the learner never saw it.
func (r *DBStore) FindReviewItem(ctx context.Context, learnerID, contentItemID string) (*review.Item, error) {
	var item review.Item
	err := r.db.GetContext(ctx, &item,
		"SELECT "+reviewItemColumns+" FROM review_items WHERE learner_id = ? AND content_item_id = ?",
		learnerID, contentItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(review_item) > %w", err)
	}
	return &item, nil
}

// FindReviewItems returns every item the learner has seen.
func (r *DBStore) FindReviewItems(ctx context.Context, learnerID string) ([]review.Item, error) {
	var items []review.Item
	if err := r.db.SelectContext(ctx, &items,
		"SELECT "+reviewItemColumns+" FROM review_items WHERE learner_id = ? ORDER BY due_at, content_item_id",
		learnerID); err != nil {
		return nil, fmt.Errorf("db.SelectContext(review_items) > %w", err)
	}
	return items, nil
}

// FindProgression returns the learner's totals, or nil before the first submission.
func (r *DBStore) FindProgression(ctx context.Context, learnerID string) (*progression.Progression, error) {
	var p progression.Progression
	err := r.db.GetContext(ctx, &p,
		"SELECT "+progressionColumns+" FROM learner_progressions WHERE learner_id = ?",
		learnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(learner_progression) > %w", err)
	}
	return &p, nil
}

// FindUnlocks returns the learner's unlocked achievements.
func (r *DBStore) FindUnlocks(ctx context.Context, learnerID string) ([]achievement.Unlock, error) {
	var unlocks []achievement.Unlock
	if err := r.db.SelectContext(ctx, &unlocks,
		"SELECT achievement_id, unlocked_at FROM learner_achievements WHERE learner_id = ? ORDER BY unlocked_at, achievement_id",
		learnerID); err != nil {
		return nil, fmt.Errorf("db.SelectContext(learner_achievements) > %w", err)
	}
	return unlocks, nil
}

// FindSubmissionResult returns the stored result of an earlier submission, or nil.
func (r *DBStore) FindSubmissionResult(ctx context.Context, learnerID, submissionID string) ([]byte, error) {
	var result []byte
	err := r.db.GetContext(ctx, &result,
		"SELECT result FROM submissions WHERE learner_id = ? AND submission_id = ?",
		learnerID, submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(submission) > %w", err)
	}
	return result, nil
}

// ApplySubmission implements Store.
func (r *DBStore) ApplySubmission(ctx context.Context, commit Commit) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = saveReviewItem(ctx, tx, commit.Item); err != nil {
		return err
	}
	if err = saveProgression(ctx, tx, commit.Progression); err != nil {
		return err
	}
	for _, unlock := range commit.Unlocks {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO learner_achievements (learner_id, achievement_id, unlocked_at) VALUES (?, ?, ?)",
			commit.Progression.LearnerID, unlock.ID, unlock.UnlockedAt); err != nil {
			return classifyWriteError("insert learner_achievement", err)
		}
	}

	s := commit.Submission
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO submissions (learner_id, submission_id, content_item_id, accuracy, quality, mode, time_spent_seconds, xp_earned, result, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.LearnerID, s.SubmissionID, s.ContentItemID, s.Accuracy, s.Quality, s.Mode,
		s.TimeSpentSeconds, s.XPEarned, s.Result, s.SubmittedAt); err != nil {
		return classifyWriteError("insert submission", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit() > %w", err)
	}
	return nil
}

func saveReviewItem(ctx context.Context, tx *sqlx.Tx, item review.Item) error {
	if item.Version == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO review_items (learner_id, content_item_id, easiness_factor, repetition_count, interval_days, due_at, last_reviewed_at, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
			item.LearnerID, item.ContentItemID, item.EasinessFactor, item.RepetitionCount,
			item.IntervalDays, item.DueAt, item.LastReviewedAt); err != nil {
			return classifyWriteError("insert review_item", err)
		}
		return nil
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE review_items SET easiness_factor = ?, repetition_count = ?, interval_days = ?, due_at = ?, last_reviewed_at = ?, version = version + 1
		WHERE learner_id = ? AND content_item_id = ? AND version = ?`,
		item.EasinessFactor, item.RepetitionCount, item.IntervalDays, item.DueAt, item.LastReviewedAt,
		item.LearnerID, item.ContentItemID, item.Version)
	if err != nil {
		return fmt.Errorf("tx.ExecContext(update review_item) > %w", err)
	}
	return requireOneRow(result, "review_item")
}

func saveProgression(ctx context.Context, tx *sqlx.Tx, p progression.Progression) error {
	if p.Version == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO learner_progressions (learner_id, total_xp, current_streak, longest_streak, last_active_date, submissions, correct_answers, perfect_answers, items_started, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			p.LearnerID, p.TotalXP, p.CurrentStreak, p.LongestStreak, p.LastActiveDate,
			p.Submissions, p.CorrectAnswers, p.PerfectAnswers, p.ItemsStarted); err != nil {
			return classifyWriteError("insert learner_progression", err)
		}
		return nil
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE learner_progressions SET total_xp = ?, current_streak = ?, longest_streak = ?, last_active_date = ?,
		submissions = ?, correct_answers = ?, perfect_answers = ?, items_started = ?, version = version + 1
		WHERE learner_id = ? AND version = ?`,
		p.TotalXP, p.CurrentStreak, p.LongestStreak, p.LastActiveDate,
		p.Submissions, p.CorrectAnswers, p.PerfectAnswers, p.ItemsStarted,
		p.LearnerID, p.Version)
	if err != nil {
		return fmt.Errorf("tx.ExecContext(update learner_progression) > %w", err)
	}
	return requireOneRow(result, "learner_progression")
}

func requireOneRow(result sql.Result, table string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("result.RowsAffected() > %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %s version changed", ErrConcurrentModification, table)
	}
	return nil
}

// classifyWriteError turns a duplicate key into a conflict: another writer
// inserted the same row after this one was read.
func classifyWriteError(op string, err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s: %s", ErrConcurrentModification, op, mysqlErr.Message)
	}
	return fmt.Errorf("tx.ExecContext(%s) > %w", op, err)
}
