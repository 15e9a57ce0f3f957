package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/transport"
	"github.com/nhatdang2003/tms-backend/pkg/logger"
)

// RecoveryMiddleware turns a panic into a 500 in the usual error envelope.
// The panic value is logged, never returned.
func RecoveryMiddleware(lg *slog.Logger) func(http.Handler) http.Handler {
	h := transport.NewBaseHandler(lg)
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
				logger.From(r.Context()).Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"url", r.URL.String(),
					"stack", string(debug.Stack()))

				h.WriteAppError(w, internal.NewInternalError("Internal server error", nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
