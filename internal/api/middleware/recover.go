package middleware

import (
	"net/http"

	"github.com/ayo6706/wallet-ledger/internal/api/problem"
	"go.uber.org/zap"
)

// RecoverMiddleware turns a panic into a retryable INTERNAL problem. Any
// transaction in flight has already rolled back by the time it unwinds here.
func RecoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("route", routePattern(r)),
					zap.String("method", r.Method),
					zap.String("trace_id", TraceIDFromContext(r.Context())),
					zap.Stack("stack"),
				)
				problem.WriteDetails(w, r, problem.Details{
					Type:      problem.Type("internal"),
					Status:    http.StatusInternalServerError,
					Detail:    "unexpected server error",
					Code:      "INTERNAL",
					Retryable: true,
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
