package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// LocalLimiter keeps one token bucket per key in process memory. The least
// recently seen keys are dropped once maxKeys is reached.
type LocalLimiter struct {
	rule    Rule
	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
}

func NewLocalLimiter(rule Rule, maxKeys int) (*LocalLimiter, error) {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	cache, err := lru.New[string, *rate.Limiter](maxKeys)
	if err != nil {
		return nil, err
	}
	return &LocalLimiter{rule: rule, buckets: cache}, nil
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Result, error) {
	lim := l.bucket(key)
	res := Result{Limit: l.rule.Limit}
	if lim.Allow() {
		res.Allowed = true
		res.Remaining = int(lim.Tokens())
		if res.Remaining < 0 {
			res.Remaining = 0
		}
		return res, nil
	}
	res.RetryAfter = l.interval()
	return res, nil
}

func (l *LocalLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.buckets.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(l.interval()), l.rule.Limit)
	l.buckets.Add(key, lim)
	return lim
}

// interval is the refill period of one token.
func (l *LocalLimiter) interval() time.Duration {
	if l.rule.Limit <= 0 {
		return l.rule.Window
	}
	return l.rule.Window / time.Duration(l.rule.Limit)
}
