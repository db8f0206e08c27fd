package learning_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/kioku/internal/achievement"
	"github.com/at-ishikawa/kioku/internal/catalog"
	"github.com/at-ishikawa/kioku/internal/dailymix"
	"github.com/at-ishikawa/kioku/internal/learning"
	mock_learning "github.com/at-ishikawa/kioku/internal/mocks/learning"
	"github.com/at-ishikawa/kioku/internal/progression"
	"github.com/at-ishikawa/kioku/internal/review"
)

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{ID: "w1", SkillCategory: "vocabulary", Difficulty: 1, XPBase: 10, CorrectAnswer: "apple"},
		{ID: "w2", SkillCategory: "vocabulary", Difficulty: 2, XPBase: 25},
		{ID: "g1", SkillCategory: "grammar", Difficulty: 1, XPBase: 20},
		{ID: "l1", SkillCategory: "listening", Difficulty: 3, XPBase: 30},
	})
	require.NoError(t, err)
	return cat
}

func newTestService(t *testing.T, store learning.Store) *learning.Service {
	t.Helper()
	return learning.NewService(store, newTestCatalog(t), learning.ServiceConfig{
		MaxConflictRetries: 2,
		ConflictBackoff:    time.Millisecond,
		Now:                func() time.Time { return testNow },
	})
}

func practiceRequest(item string, accuracy int) learning.SubmitRequest {
	return learning.SubmitRequest{
		LearnerID:     "alice",
		ContentItemID: item,
		Accuracy:      accuracy,
		Mode:          "practice",
	}
}

// expectFreshLearner sets up the reads of a learner who has never submitted.
func expectFreshLearner(store *mock_learning.MockStore, item string, times int) {
	store.EXPECT().FindReviewItem(gomock.Any(), "alice", item).Return(nil, nil).Times(times)
	store.EXPECT().FindProgression(gomock.Any(), "alice").Return(nil, nil).Times(times)
	store.EXPECT().FindUnlocks(gomock.Any(), "alice").Return(nil, nil).Times(times)
}

func TestService_Submit_FirstExposure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	expectFreshLearner(store, "w1", 1)

	var got learning.Commit
	store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, commit learning.Commit) error {
			got = commit
			return nil
		})

	result, err := newTestService(t, store).Submit(context.Background(), practiceRequest("w1", 100))
	require.NoError(t, err)

	assert.True(t, result.Correct)
	assert.Equal(t, 10, result.XPEarned)
	assert.Equal(t, 10, result.TotalXP)
	assert.Equal(t, 1, result.NewLevel)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, testNow.AddDate(0, 0, 1), result.NextDueAt)
	assert.Equal(t, []string{"first-steps"}, result.AchievementsUnlocked)

	assert.Equal(t, "alice", got.Item.LearnerID)
	assert.Equal(t, "w1", got.Item.ContentItemID)
	assert.Equal(t, int64(0), got.Item.Version)
	assert.Equal(t, 1, got.Item.RepetitionCount)
	assert.Equal(t, 1, got.Progression.ItemsStarted)
	assert.Equal(t, 1, got.Progression.PerfectAnswers)
	assert.Equal(t, []achievement.Unlock{{ID: "first-steps", UnlockedAt: testNow}}, got.Unlocks)
	assert.Nil(t, got.Submission.SubmissionID)
	assert.Equal(t, int(review.QualityPerfect), got.Submission.Quality)

	var stored learning.SubmitResult
	require.NoError(t, json.Unmarshal(got.Submission.Result, &stored))
	assert.Equal(t, result, stored)
}

func TestService_Submit_Grading(t *testing.T) {
	tests := []struct {
		name        string
		request     learning.SubmitRequest
		wantCorrect bool
		wantXP      int
	}{
		{
			name:        "practice high accuracy",
			request:     practiceRequest("w2", 95),
			wantCorrect: true,
			wantXP:      25,
		},
		{
			name: "learn mode halves xp",
			request: learning.SubmitRequest{
				LearnerID: "alice", ContentItemID: "w2", Accuracy: 100, Mode: "learn",
			},
			wantCorrect: true,
			wantXP:      13,
		},
		{
			name:        "partial credit",
			request:     practiceRequest("w2", 40),
			wantCorrect: false,
			wantXP:      5,
		},
		{
			name: "matching answer counts as correct",
			request: learning.SubmitRequest{
				LearnerID: "alice", ContentItemID: "w1", Accuracy: 60, Mode: "practice",
				UserAnswer: "  Apple ",
			},
			wantCorrect: true,
			wantXP:      10,
		},
		{
			name: "client estimate is ignored",
			request: learning.SubmitRequest{
				LearnerID: "alice", ContentItemID: "w2", Accuracy: 100, Mode: "practice",
				ClientXPEstimate: func() *int { v := 9999; return &v }(),
			},
			wantCorrect: true,
			wantXP:      25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mock_learning.NewMockStore(ctrl)
			expectFreshLearner(store, tt.request.ContentItemID, 1)
			store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).Return(nil)

			result, err := newTestService(t, store).Submit(context.Background(), tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCorrect, result.Correct)
			assert.Equal(t, tt.wantXP, result.XPEarned)
		})
	}
}

func TestService_Submit_ExistingState(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)

	lastReviewed := testNow.AddDate(0, 0, -6)
	yesterday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	store.EXPECT().FindReviewItem(gomock.Any(), "alice", "w2").Return(&review.Item{
		LearnerID: "alice", ContentItemID: "w2", EasinessFactor: 2.6, RepetitionCount: 2,
		IntervalDays: 6, DueAt: testNow, LastReviewedAt: &lastReviewed, Version: 4,
	}, nil)
	store.EXPECT().FindProgression(gomock.Any(), "alice").Return(&progression.Progression{
		LearnerID: "alice", TotalXP: 90, CurrentStreak: 2, LongestStreak: 2,
		LastActiveDate: &yesterday, Submissions: 8, CorrectAnswers: 8, ItemsStarted: 3, Version: 8,
	}, nil)
	store.EXPECT().FindUnlocks(gomock.Any(), "alice").Return([]achievement.Unlock{
		{ID: "first-steps", UnlockedAt: yesterday},
	}, nil)

	var got learning.Commit
	store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, commit learning.Commit) error {
			got = commit
			return nil
		})

	result, err := newTestService(t, store).Submit(context.Background(), practiceRequest("w2", 100))
	require.NoError(t, err)

	assert.Equal(t, 115, result.TotalXP)
	assert.Equal(t, 2, result.NewLevel)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 3, result.CurrentStreak)
	assert.Equal(t, []string{"xp-100", "streak-3"}, result.AchievementsUnlocked)

	assert.Equal(t, int64(4), got.Item.Version)
	assert.Equal(t, int64(8), got.Progression.Version)
	assert.Equal(t, 3, got.Item.RepetitionCount)
	assert.Equal(t, 16, got.Item.IntervalDays)
	assert.Equal(t, 3, got.Progression.ItemsStarted)
}

func TestService_Submit_RetriesOnConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	expectFreshLearner(store, "w1", 2)

	gomock.InOrder(
		store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
			Return(learning.ErrConcurrentModification),
		store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).Return(nil),
	)

	result, err := newTestService(t, store).Submit(context.Background(), practiceRequest("w1", 100))
	require.NoError(t, err)
	assert.Equal(t, 10, result.XPEarned)
}

func TestService_Submit_ConflictBudgetExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	expectFreshLearner(store, "w1", 3)
	store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
		Return(learning.ErrConcurrentModification).Times(3)

	_, err := newTestService(t, store).Submit(context.Background(), practiceRequest("w1", 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, learning.ErrTransientFailure)
	assert.True(t, learning.IsRetryable(err))
}

func TestService_Submit_DefaultConflictRetries(t *testing.T) {
	newService := func(store learning.Store) *learning.Service {
		return learning.NewService(store, newTestCatalog(t), learning.ServiceConfig{
			Now: func() time.Time { return testNow },
		})
	}

	t.Run("recovers from a conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mock_learning.NewMockStore(ctrl)
		expectFreshLearner(store, "w1", 2)
		gomock.InOrder(
			store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
				Return(learning.ErrConcurrentModification),
			store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).Return(nil),
		)

		result, err := newService(store).Submit(context.Background(), practiceRequest("w1", 100))
		require.NoError(t, err)
		assert.Equal(t, 10, result.XPEarned)
	})

	t.Run("gives up after the default budget", func(t *testing.T) {
		attempts := int(learning.DefaultMaxConflictRetries) + 1
		ctrl := gomock.NewController(t)
		store := mock_learning.NewMockStore(ctrl)
		expectFreshLearner(store, "w1", attempts)
		store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
			Return(learning.ErrConcurrentModification).Times(attempts)

		_, err := newService(store).Submit(context.Background(), practiceRequest("w1", 100))
		require.Error(t, err)
		assert.ErrorIs(t, err, learning.ErrTransientFailure)
		assert.Contains(t, err.Error(), "gave up after 4 attempts")
	})
}

func TestService_Submit_LogsOnlyRecomputedConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	expectFreshLearner(store, "w1", 3)
	store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
		Return(learning.ErrConcurrentModification).Times(3)

	var logs bytes.Buffer
	service := learning.NewService(store, newTestCatalog(t), learning.ServiceConfig{
		MaxConflictRetries: 2,
		ConflictBackoff:    time.Millisecond,
		Now:                func() time.Time { return testNow },
		Logger:             slog.New(slog.NewTextHandler(&logs, nil)),
	})

	_, err := service.Submit(context.Background(), practiceRequest("w1", 100))
	require.ErrorIs(t, err, learning.ErrTransientFailure)
	assert.Equal(t, 2, strings.Count(logs.String(), "recomputing from fresh state"))
}

func TestService_Submit_MatchingAnswerGradesBothEngines(t *testing.T) {
	tests := []struct {
		name         string
		request      learning.SubmitRequest
		wantCorrect  bool
		wantXP       int
		wantQuality  review.Quality
		wantAccuracy int
	}{
		{
			name: "matching answer with zero accuracy",
			request: learning.SubmitRequest{
				LearnerID: "alice", ContentItemID: "w1", Accuracy: 0, Mode: "practice",
				UserAnswer: "apple",
			},
			wantCorrect:  true,
			wantXP:       10,
			wantQuality:  review.QualityPerfect,
			wantAccuracy: 0,
		},
		{
			name: "wrong answer with zero accuracy",
			request: learning.SubmitRequest{
				LearnerID: "alice", ContentItemID: "w1", Accuracy: 0, Mode: "practice",
				UserAnswer: "banana",
			},
			wantCorrect:  false,
			wantXP:       2,
			wantQuality:  review.QualityBlackout,
			wantAccuracy: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mock_learning.NewMockStore(ctrl)
			expectFreshLearner(store, "w1", 1)

			var got learning.Commit
			store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, commit learning.Commit) error {
					got = commit
					return nil
				})

			result, err := newTestService(t, store).Submit(context.Background(), tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCorrect, result.Correct)
			assert.Equal(t, tt.wantXP, result.XPEarned)
			assert.Equal(t, int(tt.wantQuality), got.Submission.Quality)
			assert.Equal(t, tt.wantAccuracy, got.Submission.Accuracy)
			if tt.wantCorrect {
				assert.Equal(t, 1, got.Progression.CorrectAnswers)
			} else {
				assert.Equal(t, 0, got.Progression.CorrectAnswers)
			}
		})
	}
}

func TestService_Submit_CallerCanceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	store.EXPECT().FindReviewItem(gomock.Any(), "alice", "w1").
		DoAndReturn(func(ctx context.Context, _, _ string) (*review.Item, error) {
			cancel()
			return nil, ctx.Err()
		})

	_, err := newTestService(t, store).Submit(ctx, practiceRequest("w1", 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, learning.ErrPersistenceUnavailable)
	assert.False(t, learning.IsRetryable(err))
}

func TestService_Submit_PersistenceUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	store.EXPECT().FindReviewItem(gomock.Any(), "alice", "w1").
		Return(nil, errors.New("dial tcp: connection refused"))

	_, err := newTestService(t, store).Submit(context.Background(), practiceRequest("w1", 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, learning.ErrPersistenceUnavailable)
	assert.True(t, learning.IsRetryable(err))
}

func TestService_Submit_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		request   learning.SubmitRequest
		wantField string
	}{
		{
			name:      "missing learner",
			request:   learning.SubmitRequest{ContentItemID: "w1", Accuracy: 50, Mode: "practice"},
			wantField: "learner_id",
		},
		{
			name:      "accuracy above range",
			request:   practiceRequest("w1", 101),
			wantField: "accuracy",
		},
		{
			name:      "negative accuracy",
			request:   practiceRequest("w1", -1),
			wantField: "accuracy",
		},
		{
			name:      "unknown mode",
			request:   learning.SubmitRequest{LearnerID: "alice", ContentItemID: "w1", Accuracy: 50, Mode: "exam"},
			wantField: "mode",
		},
		{
			name:      "unknown content item",
			request:   practiceRequest("missing", 50),
			wantField: "content_item_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			// no expectations: any store access fails the test
			store := mock_learning.NewMockStore(ctrl)

			_, err := newTestService(t, store).Submit(context.Background(), tt.request)
			require.Error(t, err)
			assert.ErrorIs(t, err, learning.ErrInvalidInput)
			assert.False(t, learning.IsRetryable(err))

			var invalid *learning.InvalidInputError
			require.ErrorAs(t, err, &invalid)
			require.NotEmpty(t, invalid.Fields)
			assert.Equal(t, tt.wantField, invalid.Fields[0].Field)
		})
	}
}

func TestService_Submit_DuplicateSubmissionID(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)

	prior := learning.SubmitResult{
		Correct: true, XPEarned: 10, NewLevel: 1, NextDueAt: testNow.AddDate(0, 0, 1),
		AchievementsUnlocked: []string{"first-steps"}, TotalXP: 10, CurrentStreak: 1,
	}
	encoded, err := json.Marshal(prior)
	require.NoError(t, err)
	store.EXPECT().FindSubmissionResult(gomock.Any(), "alice", "s-1").Return(encoded, nil)

	req := practiceRequest("w1", 100)
	req.SubmissionID = "s-1"
	result, err := newTestService(t, store).Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, prior, result)
}

func TestService_Submit_NewSubmissionID(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	store.EXPECT().FindSubmissionResult(gomock.Any(), "alice", "s-2").Return(nil, nil)
	expectFreshLearner(store, "w1", 1)

	var got learning.Commit
	store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, commit learning.Commit) error {
			got = commit
			return nil
		})

	req := practiceRequest("w1", 100)
	req.SubmissionID = "s-2"
	_, err := newTestService(t, store).Submit(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, got.Submission.SubmissionID)
	assert.Equal(t, "s-2", *got.Submission.SubmissionID)
}

func TestService_GetDailyMix(t *testing.T) {
	reviewed := testNow.AddDate(0, 0, -3)
	seen := []review.Item{
		{LearnerID: "alice", ContentItemID: "w1", EasinessFactor: 2.5, IntervalDays: 1, DueAt: testNow.AddDate(0, 0, -2), LastReviewedAt: &reviewed},
		// due later today still counts
		{LearnerID: "alice", ContentItemID: "w2", EasinessFactor: 2.5, IntervalDays: 3, DueAt: testNow.Add(8 * time.Hour), LastReviewedAt: &reviewed},
		// retired from the catalog
		{LearnerID: "alice", ContentItemID: "gone", EasinessFactor: 2.5, IntervalDays: 1, DueAt: testNow.AddDate(0, 0, -5), LastReviewedAt: &reviewed},
	}

	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	store.EXPECT().FindReviewItems(gomock.Any(), "alice").Return(seen, nil)

	session, err := newTestService(t, store).GetDailyMix(context.Background(), "alice", time.Time{}, 4)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), session.Date)
	assert.Equal(t, []dailymix.Entry{
		{ContentItemID: "w1", Source: dailymix.SourceReview, SkillCategory: "vocabulary"},
		{ContentItemID: "g1", Source: dailymix.SourceNew, SkillCategory: "grammar"},
		{ContentItemID: "w2", Source: dailymix.SourceReview, SkillCategory: "vocabulary"},
		{ContentItemID: "l1", Source: dailymix.SourceNew, SkillCategory: "listening"},
	}, session.Items)
	assert.Equal(t, 2, session.ReviewCount)
	assert.Equal(t, 2, session.NewCount)
	assert.Equal(t, dailymix.StatusOK, session.Status)
}

func TestService_GetDailyMix_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		learnerID string
		maxItems  int
	}{
		{name: "missing learner", learnerID: "", maxItems: 5},
		{name: "negative max items", learnerID: "alice", maxItems: -1},
		{name: "max items above limit", learnerID: "alice", maxItems: learning.DefaultMaxDailyItems + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mock_learning.NewMockStore(ctrl)

			_, err := newTestService(t, store).GetDailyMix(context.Background(), tt.learnerID, time.Time{}, tt.maxItems)
			assert.ErrorIs(t, err, learning.ErrInvalidInput)
		})
	}
}

func TestService_GetDailyMix_NewLearner(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	store.EXPECT().FindReviewItems(gomock.Any(), "bob").Return(nil, nil)

	session, err := newTestService(t, store).GetDailyMix(context.Background(), "bob", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, session.Items, 4)
	assert.Equal(t, 4, session.NewCount)
	assert.Equal(t, dailymix.StatusCatalogExhausted, session.Status)
}

func TestService_GetProgress(t *testing.T) {
	yesterday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	lastWeek := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		progression *progression.Progression
		unlocks     []achievement.Unlock
		want        learning.ProgressSummary
	}{
		{
			name:        "new learner",
			progression: nil,
			want: learning.ProgressSummary{
				LearnerID: "alice", Level: 1, XPToNextLevel: 100,
				Achievements: []achievement.Unlock{},
			},
		},
		{
			name: "active streak",
			progression: &progression.Progression{
				LearnerID: "alice", TotalXP: 230, CurrentStreak: 4, LongestStreak: 6,
				LastActiveDate: &yesterday, Submissions: 20,
			},
			unlocks: []achievement.Unlock{{ID: "xp-100", UnlockedAt: yesterday}},
			want: learning.ProgressSummary{
				LearnerID: "alice", TotalXP: 230, Level: 3, XPToNextLevel: 151,
				CurrentStreak: 4, LongestStreak: 6, LastActiveDate: &yesterday, Submissions: 20,
				Achievements: []achievement.Unlock{{ID: "xp-100", UnlockedAt: yesterday}},
			},
		},
		{
			name: "lapsed streak reads as zero",
			progression: &progression.Progression{
				LearnerID: "alice", TotalXP: 50, CurrentStreak: 4, LongestStreak: 4,
				LastActiveDate: &lastWeek,
			},
			want: learning.ProgressSummary{
				LearnerID: "alice", TotalXP: 50, Level: 1, XPToNextLevel: 50,
				CurrentStreak: 0, LongestStreak: 4, LastActiveDate: &lastWeek,
				Achievements: []achievement.Unlock{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mock_learning.NewMockStore(ctrl)
			store.EXPECT().FindProgression(gomock.Any(), "alice").Return(tt.progression, nil)
			store.EXPECT().FindUnlocks(gomock.Any(), "alice").Return(tt.unlocks, nil)

			got, err := newTestService(t, store).GetProgress(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_GetProgress_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	store.EXPECT().FindProgression(gomock.Any(), "alice").Return(nil, errors.New("timeout"))
	store.EXPECT().FindUnlocks(gomock.Any(), "alice").Return(nil, nil).AnyTimes()

	_, err := newTestService(t, store).GetProgress(context.Background(), "alice")
	assert.ErrorIs(t, err, learning.ErrPersistenceUnavailable)
}
