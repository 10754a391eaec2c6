package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-Id"

// LoggingInterceptor logs every RPC with its procedure, user, duration and
// outcome. It reuses the caller's request id when one is sent.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx)
			requestID := req.Header().Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			attrs := []any{
				"procedure", procedure,
				"request_id", requestID,
				"user_id", userID,
				"duration_ms", duration,
			}
			var connectErr *connect.Error
			switch {
			case err == nil:
				resp.Header().Set(RequestIDHeader, requestID)
				slog.Info("RPC ok", attrs...)
			case errors.As(err, &connectErr):
				connectErr.Meta().Set(RequestIDHeader, requestID)
				slog.Warn("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
			default:
				slog.Error("RPC error", append(attrs, "error", err)...)
			}
			return resp, err
		}
	}
}
