package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"
)

// CommandObserver receives one observation per handled RPC.
type CommandObserver interface {
	ObserveCommand(procedure, code string, elapsed time.Duration)
}

// MetricsInterceptor reports every RPC's procedure, result code and latency.
func MetricsInterceptor(obs CommandObserver) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			obs.ObserveCommand(req.Spec().Procedure, code, time.Since(start))
			return resp, err
		}
	}
}
