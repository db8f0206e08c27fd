package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/genproto/googleapis/rpc/errdetails"

	"github.com/at-ishikawa/kioku/internal/catalog"
	"github.com/at-ishikawa/kioku/internal/dailymix"
	"github.com/at-ishikawa/kioku/internal/learning"
	mock_learning "github.com/at-ishikawa/kioku/internal/mocks/learning"
)

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// fakeService returns canned results so error mapping can be tested alone.
type fakeService struct {
	submitErr   error
	mixErr      error
	progressErr error

	mu      sync.Mutex
	gotDate time.Time
}

func (f *fakeService) requestedDate() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotDate
}

func (f *fakeService) Submit(_ context.Context, req learning.SubmitRequest) (learning.SubmitResult, error) {
	if f.submitErr != nil {
		return learning.SubmitResult{}, f.submitErr
	}
	return learning.SubmitResult{Correct: true, XPEarned: req.Accuracy}, nil
}

func (f *fakeService) GetDailyMix(_ context.Context, learnerID string, date time.Time, _ int) (dailymix.Session, error) {
	f.mu.Lock()
	f.gotDate = date
	f.mu.Unlock()
	if f.mixErr != nil {
		return dailymix.Session{}, f.mixErr
	}
	return dailymix.Session{LearnerID: learnerID, Date: date, Items: []dailymix.Entry{}, Status: dailymix.StatusEmpty}, nil
}

func (f *fakeService) GetProgress(_ context.Context, learnerID string) (learning.ProgressSummary, error) {
	if f.progressErr != nil {
		return learning.ProgressSummary{}, f.progressErr
	}
	return learning.ProgressSummary{LearnerID: learnerID, Level: 1}, nil
}

func newTestServer(t *testing.T, service LearningService) *httptest.Server {
	t.Helper()
	handler := NewLearningHandler(service, 200*time.Millisecond, nil)
	path, h := NewLearningServiceHandler(handler)
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func submitClient(srv *httptest.Server) *connect.Client[learning.SubmitRequest, learning.SubmitResult] {
	return connect.NewClient[learning.SubmitRequest, learning.SubmitResult](
		srv.Client(), srv.URL+SubmitProcedure, connect.WithCodec(jsonCodec{}))
}

func TestLearningHandler_Submit_RoundTrip(t *testing.T) {
	cat, err := catalog.New([]catalog.Item{
		{ID: "w1", SkillCategory: "vocabulary", XPBase: 10},
	})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	store := mock_learning.NewMockStore(ctrl)
	store.EXPECT().FindReviewItem(gomock.Any(), "alice", "w1").Return(nil, nil)
	store.EXPECT().FindProgression(gomock.Any(), "alice").Return(nil, nil)
	store.EXPECT().FindUnlocks(gomock.Any(), "alice").Return(nil, nil)
	store.EXPECT().ApplySubmission(gomock.Any(), gomock.Any()).Return(nil)

	service := learning.NewService(store, cat, learning.ServiceConfig{
		Now: func() time.Time { return testNow },
	})
	srv := newTestServer(t, service)

	resp, err := submitClient(srv).CallUnary(context.Background(), connect.NewRequest(&learning.SubmitRequest{
		LearnerID:     "alice",
		ContentItemID: "w1",
		Accuracy:      100,
		Mode:          "practice",
	}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Correct)
	assert.Equal(t, 10, resp.Msg.XPEarned)
	assert.Equal(t, testNow.AddDate(0, 0, 1), resp.Msg.NextDueAt.UTC())
	assert.Equal(t, []string{"first-steps"}, resp.Msg.AchievementsUnlocked)
}

func TestLearningHandler_Submit_Errors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCode      connect.Code
		wantRetryInfo bool
		wantField     string
	}{
		{
			name: "invalid input",
			err: &learning.InvalidInputError{Fields: []learning.FieldError{
				{Field: "accuracy", Description: "failed on max 100"},
			}},
			wantCode:  connect.CodeInvalidArgument,
			wantField: "accuracy",
		},
		{
			name:          "conflicts exhausted",
			err:           fmt.Errorf("%w: gave up: %w", learning.ErrTransientFailure, learning.ErrConcurrentModification),
			wantCode:      connect.CodeAborted,
			wantRetryInfo: true,
		},
		{
			name:          "store down",
			err:           fmt.Errorf("%w: store.FindReviewItem() > dial tcp", learning.ErrPersistenceUnavailable),
			wantCode:      connect.CodeUnavailable,
			wantRetryInfo: true,
		},
		{
			name:     "caller canceled",
			err:      fmt.Errorf("store.FindReviewItem() > %w", context.Canceled),
			wantCode: connect.CodeCanceled,
		},
		{
			name:     "unexpected",
			err:      errors.New("boom"),
			wantCode: connect.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeService{submitErr: tt.err})

			_, err := submitClient(srv).CallUnary(context.Background(), connect.NewRequest(&learning.SubmitRequest{
				LearnerID: "alice", ContentItemID: "w1", Accuracy: 50, Mode: "practice",
			}))
			require.Error(t, err)

			var connectErr *connect.Error
			require.True(t, errors.As(err, &connectErr))
			assert.Equal(t, tt.wantCode, connectErr.Code())

			var gotRetryInfo bool
			var gotField string
			for _, detail := range connectErr.Details() {
				value, err := detail.Value()
				require.NoError(t, err)
				switch v := value.(type) {
				case *errdetails.RetryInfo:
					gotRetryInfo = true
					assert.Equal(t, 200*time.Millisecond, v.GetRetryDelay().AsDuration())
				case *errdetails.BadRequest:
					require.NotEmpty(t, v.GetFieldViolations())
					gotField = v.GetFieldViolations()[0].GetField()
				}
			}
			assert.Equal(t, tt.wantRetryInfo, gotRetryInfo)
			assert.Equal(t, tt.wantField, gotField)
			if tt.wantCode == connect.CodeInternal {
				assert.NotContains(t, connectErr.Message(), "boom")
			}
		})
	}
}

func TestLearningHandler_GetDailyMix(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		wantDate time.Time
		wantCode connect.Code
	}{
		{
			name:     "explicit date",
			date:     "2025-03-11",
			wantDate: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "today",
			date:     "",
			wantDate: time.Time{},
		},
		{
			name:     "malformed date",
			date:     "11/03/2025",
			wantCode: connect.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeService{}
			srv := newTestServer(t, service)
			client := connect.NewClient[GetDailyMixRequest, dailymix.Session](
				srv.Client(), srv.URL+GetDailyMixProcedure, connect.WithCodec(jsonCodec{}))

			resp, err := client.CallUnary(context.Background(), connect.NewRequest(&GetDailyMixRequest{
				LearnerID: "alice",
				Date:      tt.date,
				MaxItems:  5,
			}))
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, connect.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", resp.Msg.LearnerID)
			assert.Equal(t, dailymix.StatusEmpty, resp.Msg.Status)
			assert.True(t, tt.wantDate.Equal(service.requestedDate()))
		})
	}
}

func TestLearningHandler_GetProgress(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := newTestServer(t, &fakeService{})
		client := connect.NewClient[GetProgressRequest, learning.ProgressSummary](
			srv.Client(), srv.URL+GetProgressProcedure, connect.WithCodec(jsonCodec{}))

		resp, err := client.CallUnary(context.Background(), connect.NewRequest(&GetProgressRequest{LearnerID: "alice"}))
		require.NoError(t, err)
		assert.Equal(t, "alice", resp.Msg.LearnerID)
		assert.Equal(t, 1, resp.Msg.Level)
	})

	t.Run("missing learner", func(t *testing.T) {
		srv := newTestServer(t, &fakeService{progressErr: &learning.InvalidInputError{
			Fields: []learning.FieldError{{Field: "learner_id", Description: "is required"}},
		}})
		client := connect.NewClient[GetProgressRequest, learning.ProgressSummary](
			srv.Client(), srv.URL+GetProgressProcedure, connect.WithCodec(jsonCodec{}))

		_, err := client.CallUnary(context.Background(), connect.NewRequest(&GetProgressRequest{}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}
