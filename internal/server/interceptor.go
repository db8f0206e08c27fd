package server

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// NewLoggingInterceptor logs every unary call with its outcome and latency.
func NewLoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Info("rpc failed", append(attrs, "code", connect.CodeOf(err).String())...)
				return res, err
			}
			logger.Debug("rpc completed", attrs...)
			return res, nil
		}
	}
}
