package ratelimit

import (
	"time"

	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/redis/go-redis/v9"
)

const (
	RuleLogin          = "login"
	RuleRefresh        = "refresh"
	RuleForgotPassword = "forgot_password"
	RuleResetPassword  = "reset_password"
)

// Rules returns the auth endpoint rules keyed by name.
func Rules(cfg internal.RateLimitConfig) map[string]Rule {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return map[string]Rule{
		RuleLogin:          {Name: RuleLogin, Limit: orDefault(cfg.Login, 5), Window: window},
		RuleRefresh:        {Name: RuleRefresh, Limit: orDefault(cfg.Refresh, 10), Window: window},
		RuleForgotPassword: {Name: RuleForgotPassword, Limit: orDefault(cfg.ForgotPassword, 3), Window: window},
		RuleResetPassword:  {Name: RuleResetPassword, Limit: orDefault(cfg.ResetPassword, 5), Window: window},
	}
}

// New builds the limiter for rule on the configured backend. client may be nil
// for the memory backend.
func New(cfg internal.RateLimitConfig, client redis.Cmdable, rule Rule) (Limiter, error) {
	if cfg.Backend == "redis" {
		return NewRedisLimiter(client, rule, "tms:ratelimit"), nil
	}
	return NewLocalLimiter(rule, cfg.MaxKeys)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
