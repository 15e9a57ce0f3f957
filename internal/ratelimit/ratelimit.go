package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/transport"
)

// Rule is a fixed number of requests per window.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// KeyFunc picks the bucket a request counts against.
type KeyFunc func(r *http.Request) string

func ByClientIP(r *http.Request) string {
	if ip := transport.ClientIP(r); ip != "" {
		return ip
	}
	return "unknown"
}

// Middleware answers 429 once the caller's bucket is empty. Limiter errors
// let the request through.
func Middleware(l Limiter, key KeyFunc, lg *slog.Logger) func(http.Handler) http.Handler {
	h := transport.NewBaseHandler(lg)
	if key == nil {
		key = ByClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			res, err := l.Allow(r.Context(), k)
			if err != nil {
				h.Logger.Warn("rate limiter unavailable, allowing request", "key", k, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				retry := int(res.RetryAfter.Round(time.Second).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				h.Logger.Warn("rate limit exceeded", "key", k, "path", r.URL.Path)
				h.WriteAppError(w, internal.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
