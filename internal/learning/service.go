package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/kioku/internal/achievement"
	"github.com/at-ishikawa/kioku/internal/catalog"
	"github.com/at-ishikawa/kioku/internal/dailymix"
	"github.com/at-ishikawa/kioku/internal/progression"
	"github.com/at-ishikawa/kioku/internal/review"
)

const (
	DefaultCorrectAccuracy    = 90
	DefaultMaxConflictRetries = 3
	DefaultStoreTimeout       = 5 * time.Second
	DefaultDailyItems         = 20
	DefaultMaxDailyItems      = 200
)

type ServiceConfig struct {
	Scheduler    review.Params
	Progression  *progression.Engine
	Achievements []achievement.Definition
	Location     *time.Location
	// CorrectAccuracy is the accuracy from which an answer counts as correct
	// even when it does not match the catalog answer verbatim.
	CorrectAccuracy int
	// MaxConflictRetries bounds how often a conflicting submission is
	// recomputed. Zero selects DefaultMaxConflictRetries.
	MaxConflictRetries uint
	ConflictBackoff    time.Duration
	StoreTimeout       time.Duration
	DefaultDailyItems  int
	MaxDailyItems      int
	ReviewShare        float64
	Now                func() time.Time
	Logger             *slog.Logger
}

func (cfg ServiceConfig) withDefaults() ServiceConfig {
	if cfg.Scheduler == (review.Params{}) {
		cfg.Scheduler = review.DefaultParams()
	}
	if cfg.Progression == nil {
		cfg.Progression = progression.NewEngine(progression.DefaultLevelCurve(), progression.DefaultMultipliers())
	}
	if cfg.Achievements == nil {
		cfg.Achievements = achievement.DefaultDefinitions()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CorrectAccuracy == 0 {
		cfg.CorrectAccuracy = DefaultCorrectAccuracy
	}
	if cfg.MaxConflictRetries == 0 {
		cfg.MaxConflictRetries = DefaultMaxConflictRetries
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.DefaultDailyItems == 0 {
		cfg.DefaultDailyItems = DefaultDailyItems
	}
	if cfg.MaxDailyItems == 0 {
		cfg.MaxDailyItems = DefaultMaxDailyItems
	}
	if cfg.ReviewShare == 0 {
		cfg.ReviewShare = dailymix.DefaultReviewShare
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Service handles submissions and daily sessions. It keeps no per-learner
// state; all coordination happens through the Store's version checks.
type Service struct {
	store    Store
	catalog  *catalog.Catalog
	cfg      ServiceConfig
	validate *validator.Validate
}

func NewService(store Store, cat *catalog.Catalog, cfg ServiceConfig) *Service {
	return &Service{
		store:    store,
		catalog:  cat,
		cfg:      cfg.withDefaults(),
		validate: validator.New(),
	}
}

// Submit grades one answer, reschedules the item and awards experience.
// Either everything is stored or nothing is.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := s.validateRequest(req); err != nil {
		return SubmitResult{}, err
	}
	content, ok := s.catalog.Get(req.ContentItemID)
	if !ok {
		return SubmitResult{}, invalidInput("content_item_id", fmt.Sprintf("unknown content item %q", req.ContentItemID))
	}
	if req.ClientXPEstimate != nil {
		s.cfg.Logger.Debug("ignoring client xp estimate",
			"learner", req.LearnerID,
			"item", req.ContentItemID,
			"estimate", *req.ClientXPEstimate)
	}

	now := s.cfg.Now()
	attempts := s.cfg.MaxConflictRetries + 1
	var result SubmitResult
	err := retry.Do(
		func() error {
			r, err := s.submitOnce(ctx, req, content, now)
			if err != nil {
				return err
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(s.cfg.ConflictBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrConcurrentModification)
		}),
		retry.OnRetry(func(n uint, err error) {
			// retry-go also reports the final attempt, which is not recomputed
			if n+1 >= attempts {
				return
			}
			s.cfg.Logger.Info("submission conflicted, recomputing from fresh state",
				"attempt", n+1,
				"learner", req.LearnerID,
				"item", req.ContentItemID,
				"error", err)
		}),
	)
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return SubmitResult{}, fmt.Errorf("%w: gave up after %d attempts: %w", ErrTransientFailure, attempts, err)
		}
		return SubmitResult{}, err
	}
	return result, nil
}

func (s *Service) submitOnce(ctx context.Context, req SubmitRequest, content catalog.Item, now time.Time) (SubmitResult, error) {
	if req.SubmissionID != "" {
		stored, err := callStore(ctx, s.cfg.StoreTimeout, "FindSubmissionResult", func(ctx context.Context) ([]byte, error) {
			return s.store.FindSubmissionResult(ctx, req.LearnerID, req.SubmissionID)
		})
		if err != nil {
			return SubmitResult{}, err
		}
		if stored != nil {
			var prior SubmitResult
			if err := json.Unmarshal(stored, &prior); err != nil {
				return SubmitResult{}, fmt.Errorf("json.Unmarshal(submission %s) > %w", req.SubmissionID, err)
			}
			return prior, nil
		}
	}

	current, err := callStore(ctx, s.cfg.StoreTimeout, "FindReviewItem", func(ctx context.Context) (*review.Item, error) {
		return s.store.FindReviewItem(ctx, req.LearnerID, req.ContentItemID)
	})
	if err != nil {
		return SubmitResult{}, err
	}
	stored, err := callStore(ctx, s.cfg.StoreTimeout, "FindProgression", func(ctx context.Context) (*progression.Progression, error) {
		return s.store.FindProgression(ctx, req.LearnerID)
	})
	if err != nil {
		return SubmitResult{}, err
	}
	unlocks, err := callStore(ctx, s.cfg.StoreTimeout, "FindUnlocks", func(ctx context.Context) ([]achievement.Unlock, error) {
		return s.store.FindUnlocks(ctx, req.LearnerID)
	})
	if err != nil {
		return SubmitResult{}, err
	}

	accuracy := s.gradedAccuracy(req, content)
	quality := review.QualityFromAccuracy(accuracy)
	nextItem, err := review.Schedule(current, quality, now, s.cfg.Scheduler)
	if err != nil {
		return SubmitResult{}, invalidInput("accuracy", err.Error())
	}
	nextItem.LearnerID = req.LearnerID
	nextItem.ContentItemID = req.ContentItemID

	prog := progression.New(req.LearnerID)
	if stored != nil {
		prog = *stored
	}
	delta, nextProg := s.cfg.Progression.Award(progression.Outcome{
		Correct:       accuracy >= s.cfg.CorrectAccuracy,
		Accuracy:      accuracy,
		Mode:          progression.Mode(req.Mode),
		Date:          progression.Day(now, s.cfg.Location),
		FirstExposure: current == nil,
	}, content.XPBase, prog)

	unlocked := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		unlocked[u.ID] = u.UnlockedAt
	}
	newUnlocks := achievement.Evaluate(s.cfg.Achievements, statsOf(nextProg), unlocked, now)

	result := SubmitResult{
		Correct:              delta.Correct,
		XPEarned:             delta.XPEarned,
		NewLevel:             delta.NewLevel,
		LeveledUp:            delta.LeveledUp,
		NextDueAt:            nextItem.DueAt,
		AchievementsUnlocked: make([]string, 0, len(newUnlocks)),
		TotalXP:              nextProg.TotalXP,
		CurrentStreak:        nextProg.CurrentStreak,
	}
	for _, u := range newUnlocks {
		result.AchievementsUnlocked = append(result.AchievementsUnlocked, u.ID)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("json.Marshal(result) > %w", err)
	}
	record := SubmissionRecord{
		LearnerID:        req.LearnerID,
		ContentItemID:    req.ContentItemID,
		Accuracy:         req.Accuracy,
		Quality:          int(quality),
		Mode:             req.Mode,
		TimeSpentSeconds: req.TimeSpentSeconds,
		XPEarned:         delta.XPEarned,
		Result:           encoded,
		SubmittedAt:      now,
	}
	if req.SubmissionID != "" {
		id := req.SubmissionID
		record.SubmissionID = &id
	}

	if _, err := callStore(ctx, s.cfg.StoreTimeout, "ApplySubmission", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.ApplySubmission(ctx, Commit{
			Item:        nextItem,
			Progression: nextProg,
			Unlocks:     newUnlocks,
			Submission:  record,
		})
	}); err != nil {
		return SubmitResult{}, err
	}

	if delta.LeveledUp {
		s.cfg.Logger.Info("learner leveled up",
			"learner", req.LearnerID,
			"from", delta.PreviousLevel,
			"to", delta.NewLevel)
	}
	return result, nil
}

// GetDailyMix composes the session for date. It only reads.
func (s *Service) GetDailyMix(ctx context.Context, learnerID string, date time.Time, maxItems int) (dailymix.Session, error) {
	if strings.TrimSpace(learnerID) == "" {
		return dailymix.Session{}, invalidInput("learner_id", "is required")
	}
	if maxItems == 0 {
		maxItems = s.cfg.DefaultDailyItems
	}
	if maxItems < 0 || maxItems > s.cfg.MaxDailyItems {
		return dailymix.Session{}, invalidInput("max_items", fmt.Sprintf("must be between 1 and %d", s.cfg.MaxDailyItems))
	}

	day := progression.Day(s.cfg.Now(), s.cfg.Location)
	if !date.IsZero() {
		day = progression.Day(date, time.UTC)
	}
	// items due at any moment of the learner's day count as due
	y, m, d := day.Date()
	endOfDay := time.Date(y, m, d+1, 0, 0, 0, 0, s.cfg.Location).Add(-time.Nanosecond)

	seen, err := callStore(ctx, s.cfg.StoreTimeout, "FindReviewItems", func(ctx context.Context) ([]review.Item, error) {
		return s.store.FindReviewItems(ctx, learnerID)
	})
	if err != nil {
		return dailymix.Session{}, err
	}

	seenIDs := make(map[string]struct{}, len(seen))
	categories := make(map[string]string, len(seen))
	practicable := make([]review.Item, 0, len(seen))
	for _, item := range seen {
		seenIDs[item.ContentItemID] = struct{}{}
		content, ok := s.catalog.Get(item.ContentItemID)
		if !ok {
			// retired from the catalog
			continue
		}
		categories[item.ContentItemID] = content.SkillCategory
		practicable = append(practicable, item)
	}

	return dailymix.Compose(dailymix.Input{
		LearnerID:     learnerID,
		Date:          day,
		Now:           endOfDay,
		Seen:          practicable,
		NewCandidates: s.catalog.Unseen(seenIDs),
		MaxItems:      maxItems,
		ReviewShare:   s.cfg.ReviewShare,
		Categories:    categories,
	}), nil
}

// GetProgress returns the learner's totals and achievements.
func (s *Service) GetProgress(ctx context.Context, learnerID string) (ProgressSummary, error) {
	if strings.TrimSpace(learnerID) == "" {
		return ProgressSummary{}, invalidInput("learner_id", "is required")
	}

	var (
		stored  *progression.Progression
		unlocks []achievement.Unlock
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stored, err = callStore(gctx, s.cfg.StoreTimeout, "FindProgression", func(ctx context.Context) (*progression.Progression, error) {
			return s.store.FindProgression(ctx, learnerID)
		})
		return err
	})
	g.Go(func() error {
		var err error
		unlocks, err = callStore(gctx, s.cfg.StoreTimeout, "FindUnlocks", func(ctx context.Context) ([]achievement.Unlock, error) {
			return s.store.FindUnlocks(ctx, learnerID)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return ProgressSummary{}, err
	}

	p := progression.New(learnerID)
	if stored != nil {
		p = *stored
	}
	curve := s.cfg.Progression.Curve()
	summary := ProgressSummary{
		LearnerID:      learnerID,
		TotalXP:        p.TotalXP,
		Level:          curve.Level(p.TotalXP),
		XPToNextLevel:  curve.XPToNextLevel(p.TotalXP),
		CurrentStreak:  p.CurrentStreak,
		LongestStreak:  p.LongestStreak,
		LastActiveDate: p.LastActiveDate,
		Submissions:    p.Submissions,
		CorrectAnswers: p.CorrectAnswers,
		PerfectAnswers: p.PerfectAnswers,
		ItemsStarted:   p.ItemsStarted,
		Achievements:   unlocks,
	}
	if summary.Achievements == nil {
		summary.Achievements = []achievement.Unlock{}
	}
	// a streak is only live while the learner was active today or yesterday
	if p.LastActiveDate != nil {
		today := progression.Day(s.cfg.Now(), s.cfg.Location)
		if today.Sub(*p.LastActiveDate) > 24*time.Hour {
			summary.CurrentStreak = 0
		}
	}
	return summary, nil
}

// gradedAccuracy is the accuracy both the scheduler and the progression
// engine grade. An answer matching the catalog counts as at least
// CorrectAccuracy.
func (s *Service) gradedAccuracy(req SubmitRequest, content catalog.Item) int {
	if content.IsCorrectAnswer(req.UserAnswer) && req.Accuracy < s.cfg.CorrectAccuracy {
		return s.cfg.CorrectAccuracy
	}
	return req.Accuracy
}

func (s *Service) validateRequest(req SubmitRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate.Struct() > %w", err)
	}
	invalid := &InvalidInputError{}
	for _, e := range validationErrors {
		invalid.Fields = append(invalid.Fields, FieldError{
			Field:       jsonFieldName(e.StructField()),
			Description: fmt.Sprintf("failed on %s %s", e.Tag(), e.Param()),
		})
	}
	return invalid
}

var jsonFieldNames = map[string]string{
	"SubmissionID":     "submission_id",
	"LearnerID":        "learner_id",
	"ContentItemID":    "content_item_id",
	"Accuracy":         "accuracy",
	"TimeSpentSeconds": "time_spent_seconds",
	"Mode":             "mode",
}

func jsonFieldName(field string) string {
	if name, ok := jsonFieldNames[field]; ok {
		return name
	}
	return field
}

func statsOf(p progression.Progression) achievement.Stats {
	return achievement.Stats{
		TotalXP:        p.TotalXP,
		Level:          p.Level,
		CurrentStreak:  p.CurrentStreak,
		LongestStreak:  p.LongestStreak,
		Submissions:    p.Submissions,
		CorrectAnswers: p.CorrectAnswers,
		PerfectAnswers: p.PerfectAnswers,
		ItemsStarted:   p.ItemsStarted,
	}
}

// callStore bounds a store call with timeout and classifies its failure.
func callStore[T any](ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		var zero T
		if errors.Is(err, ErrConcurrentModification) {
			return zero, err
		}
		// the caller went away, the store did not fail
		if parentErr := parent.Err(); parentErr != nil {
			return zero, fmt.Errorf("store.%s() > %w", op, parentErr)
		}
		return zero, fmt.Errorf("%w: store.%s() > %w", ErrPersistenceUnavailable, op, err)
	}
	return v, nil
}
