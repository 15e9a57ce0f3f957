package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/transport"
	"github.com/nhatdang2003/tms-backend/pkg/logger"
)

type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*Claims, error)
}

type Authorizer interface {
	Check(ctx context.Context, principal *Principal, required []string) error
	CheckRoles(principal *Principal, roles []string) error
}

// Gate authenticates bearer tokens and authorizes principals per route.
type Gate struct {
	*transport.BaseHandler
	tokens  AccessTokenVerifier
	authz   Authorizer
	metrics *Metrics
}

func NewGate(tokens AccessTokenVerifier, authz Authorizer, metrics *Metrics, lg *slog.Logger) *Gate {
	return &Gate{
		BaseHandler: transport.NewBaseHandler(lg),
		tokens:      tokens,
		authz:       authz,
		metrics:     metrics,
	}
}

// Authenticate turns a bearer token into a principal. Every failure is
// reported as ErrUnauthenticated; the precise reason is only logged.
func (g *Gate) Authenticate(bearer string) (*Principal, error) {
	if bearer == "" {
		return nil, internal.ErrUnauthenticated
	}
	claims, err := g.tokens.VerifyAccessToken(bearer)
	if err != nil {
		reason := "invalid"
		if appErr, ok := internal.IsAppError(err); ok {
			reason = string(appErr.Code)
			if appErr.StatusCode >= http.StatusInternalServerError {
				return nil, err
			}
		}
		g.Logger.Warn("access token rejected", "reason", reason, "error", err)
		return nil, internal.ErrUnauthenticated
	}
	principal, err := claims.Principal()
	if err != nil {
		g.Logger.Warn("access token has a malformed subject", "subject", claims.Subject)
		return nil, internal.ErrUnauthenticated
	}
	return principal, nil
}

func (g *Gate) Authorize(ctx context.Context, principal *Principal, required []string) error {
	return g.authz.Check(ctx, principal, required)
}

// RequireAuth rejects requests without a valid access token.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(transport.BearerToken(r))
		if err != nil {
			g.HandleServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuthenticated(r.Context(), principal)))
	})
}

// OptionalAuth attaches a principal when a valid token is present and lets
// the request through either way.
func (g *Gate) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := transport.BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := g.Authenticate(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuthenticated(r.Context(), principal)))
	})
}

// RequirePermissions answers 403 when no principal is attached.
func (g *Gate) RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())
			start := time.Now()
			err := g.Authorize(r.Context(), principal, permissions)
			g.logDecision(r, principal, "permissions", permissions, err, time.Since(start))
			if err != nil {
				g.HandleServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles admits the listed roles and ADMIN. Anonymous callers get 403.
func (g *Gate) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())
			start := time.Now()
			err := g.authz.CheckRoles(principal, roles)
			g.logDecision(r, principal, "roles", roles, err, time.Since(start))
			if err != nil {
				g.HandleServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) logDecision(r *http.Request, principal *Principal, kind string, required []string, err error, took time.Duration) {
	route := routeLabel(r)
	outcome := "allowed"
	if err != nil {
		outcome = "denied"
	}
	g.metrics.AuthzDecision(route, outcome, took)

	var userID int64
	if principal != nil {
		userID = principal.ID
	}
	lg := logger.From(r.Context())
	attrs := []any{
		"route", route,
		"method", r.Method,
		"user_id", userID,
		"check", kind,
		"required", strings.Join(required, ","),
		"outcome", outcome,
		"duration_ms", took.Milliseconds(),
	}
	if err != nil {
		lg.Warn("authorization denied", append(attrs, "error", err)...)
		return
	}
	lg.Info("authorization granted", attrs...)
}

func withAuthenticated(ctx context.Context, principal *Principal) context.Context {
	ctx = WithPrincipal(ctx, principal)
	ctx = internal.ContextWithUserID(ctx, principal.ID)
	return logger.With(ctx, "user_id", principal.ID)
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
