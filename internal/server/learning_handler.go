// Package server provides Connect RPC handlers for the learning service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/at-ishikawa/kioku/internal/dailymix"
	"github.com/at-ishikawa/kioku/internal/learning"
)

const (
	LearningServiceName = "kioku.v1.LearningService"

	SubmitProcedure      = "/" + LearningServiceName + "/Submit"
	GetDailyMixProcedure = "/" + LearningServiceName + "/GetDailyMix"
	GetProgressProcedure = "/" + LearningServiceName + "/GetProgress"
)

const dateLayout = "2006-01-02"

// LearningService is what the handler needs from learning.Service.
type LearningService interface {
	Submit(ctx context.Context, req learning.SubmitRequest) (learning.SubmitResult, error)
	GetDailyMix(ctx context.Context, learnerID string, date time.Time, maxItems int) (dailymix.Session, error)
	GetProgress(ctx context.Context, learnerID string) (learning.ProgressSummary, error)
}

type GetDailyMixRequest struct {
	LearnerID string `json:"learner_id"`
	// Date is a calendar day formatted as 2006-01-02. Empty means today.
	Date     string `json:"date,omitempty"`
	MaxItems int    `json:"max_items,omitempty"`
}

type GetProgressRequest struct {
	LearnerID string `json:"learner_id"`
}

// LearningHandler serves the learning RPCs.
type LearningHandler struct {
	service    LearningService
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewLearningHandler creates a handler. retryDelay is suggested to clients
// on retryable failures.
func NewLearningHandler(service LearningService, retryDelay time.Duration, logger *slog.Logger) *LearningHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LearningHandler{
		service:    service,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

func (h *LearningHandler) Submit(
	ctx context.Context,
	req *connect.Request[learning.SubmitRequest],
) (*connect.Response[learning.SubmitResult], error) {
	result, err := h.service.Submit(ctx, *req.Msg)
	if err != nil {
		return nil, h.toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&result), nil
}

func (h *LearningHandler) GetDailyMix(
	ctx context.Context,
	req *connect.Request[GetDailyMixRequest],
) (*connect.Response[dailymix.Session], error) {
	var date time.Time
	if req.Msg.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Msg.Date)
		if err != nil {
			return nil, h.toConnectError(req.Spec().Procedure, &learning.InvalidInputError{
				Fields: []learning.FieldError{{Field: "date", Description: "must be formatted as YYYY-MM-DD"}},
			})
		}
		date = parsed
	}

	session, err := h.service.GetDailyMix(ctx, req.Msg.LearnerID, date, req.Msg.MaxItems)
	if err != nil {
		return nil, h.toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&session), nil
}

func (h *LearningHandler) GetProgress(
	ctx context.Context,
	req *connect.Request[GetProgressRequest],
) (*connect.Response[learning.ProgressSummary], error) {
	summary, err := h.service.GetProgress(ctx, req.Msg.LearnerID)
	if err != nil {
		return nil, h.toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&summary), nil
}

// NewLearningServiceHandler builds an HTTP handler serving every learning
// procedure and returns the path to mount it on.
func NewLearningServiceHandler(h *LearningHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SubmitProcedure, connect.NewUnaryHandler(SubmitProcedure, h.Submit, opts...))
	mux.Handle(GetDailyMixProcedure, connect.NewUnaryHandler(GetDailyMixProcedure, h.GetDailyMix, opts...))
	mux.Handle(GetProgressProcedure, connect.NewUnaryHandler(GetProgressProcedure, h.GetProgress, opts...))
	return "/" + LearningServiceName + "/", mux
}

func (h *LearningHandler) toConnectError(procedure string, err error) *connect.Error {
	var invalid *learning.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		connectErr := connect.NewError(connect.CodeInvalidArgument, err)
		var fieldViolations []*errdetails.BadRequest_FieldViolation
		for _, f := range invalid.Fields {
			fieldViolations = append(fieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       f.Field,
				Description: f.Description,
			})
		}
		if detail, detailErr := connect.NewErrorDetail(&errdetails.BadRequest{
			FieldViolations: fieldViolations,
		}); detailErr == nil {
			connectErr.AddDetail(detail)
		}
		return connectErr
	case errors.Is(err, learning.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, learning.ErrTransientFailure):
		return h.retryableError(procedure, connect.CodeAborted, err)
	case errors.Is(err, learning.ErrPersistenceUnavailable):
		return h.retryableError(procedure, connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	h.logger.Error("request failed", "procedure", procedure, "error", err)
	return connect.NewError(connect.CodeInternal, fmt.Errorf("internal error"))
}

func (h *LearningHandler) retryableError(procedure string, code connect.Code, err error) *connect.Error {
	h.logger.Warn("retryable failure", "procedure", procedure, "code", code.String(), "error", err)
	connectErr := connect.NewError(code, err)
	if detail, detailErr := connect.NewErrorDetail(&errdetails.RetryInfo{
		RetryDelay: durationpb.New(h.retryDelay),
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}
