package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LogAttrser is implemented by request and response messages that add
// key/value pairs to the RPC log line. Implementations must not return
// personal data such as phone numbers.
type LogAttrser interface {
	LogAttrs() []any
}

func messageAttrs(msg any) []any {
	if m, ok := msg.(LogAttrser); ok {
		return m.LogAttrs()
	}
	return nil
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// with its procedure, session, peer, duration and outcome, plus whatever the
// request and response messages contribute through LogAttrser.
// It must run after RequireSession to see the session ID.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			attrs := []any{
				"procedure", req.Spec().Procedure,
				"session_id", GetSessionID(ctx), // empty for CreateSession
				"peer", req.Peer().Addr,
			}
			attrs = append(attrs, messageAttrs(req.Any())...)

			resp, err := next(ctx, req)

			attrs = append(attrs, "duration_ms", time.Since(start).Milliseconds())
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) && connectErr.Code() != connect.CodeInternal {
					attrs = append(attrs, "code", connectErr.Code(), "error", connectErr.Message())
					slog.Warn("RPC error", attrs...)
				} else {
					attrs = append(attrs, "error", err)
					slog.Error("RPC error", attrs...)
				}
				return resp, err
			}

			if resp != nil {
				attrs = append(attrs, messageAttrs(resp.Any())...)
			}
			slog.Info("RPC ok", attrs...)
			return resp, err
		}
	}
}
