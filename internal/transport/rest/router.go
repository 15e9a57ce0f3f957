package rest

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/nhatdang2003/tms-backend/internal/auth"
	"github.com/nhatdang2003/tms-backend/internal/transport"
	"github.com/nhatdang2003/tms-backend/internal/transport/middleware"
	"github.com/nhatdang2003/tms-backend/internal/transport/swagger"
)

const APIPrefix = "/api/v1"

type Module interface {
	Routes() transport.RouteTable
}

// Mount places a module's route table under Prefix, relative to /api/v1.
type Mount struct {
	Prefix string
	Module Module
}

type RouterConfig struct {
	AllowedOrigins string
	// TrustedProxies may rewrite the client address through X-Forwarded-For.
	TrustedProxies []*net.IPNet
	// MetricsHandler is served at MetricsPath when non-nil.
	MetricsHandler http.Handler
	MetricsPath    string
	HTTPMetrics    *middleware.HTTPMetrics
	// OpenAPI is the raw document served at /openapi.yml for the swagger UI.
	OpenAPI []byte
}

func NewRouter(gate *auth.Gate, health *HealthHandler, mounts []Mount, cfg RouterConfig, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RealIP(cfg.TrustedProxies))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.HTTPMetrics != nil {
		router.Use(cfg.HTTPMetrics.Instrument)
	}
	router.Use(middleware.LoggingMiddleware)

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, cfg.MetricsHandler)
	}
	if len(cfg.OpenAPI) > 0 {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(cfg.OpenAPI)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route(APIPrefix, func(r chi.Router) {
		if health != nil {
			r.Get("/health", health.HealthCheck)
			r.Get("/ping", health.Ping)
		}
		for _, m := range mounts {
			if m.Module == nil {
				continue
			}
			table := m.Module.Routes()
			r.Route(m.Prefix, func(sr chi.Router) {
				MountTable(sr, gate, table)
			})
		}
	})

	return router
}

// MountTable registers every route with the gate middlewares its access
// level asks for: authentication first, then permissions, then roles, then
// the route's own middlewares. Declared permissions and roles are enforced
// at every access level, so an anonymous caller on a gated route gets 403.
func MountTable(r chi.Router, gate *auth.Gate, table transport.RouteTable) {
	for _, rt := range table {
		var chain []func(http.Handler) http.Handler
		switch rt.Access {
		case transport.AccessOptional:
			chain = append(chain, gate.OptionalAuth)
		case transport.AccessAuthenticated:
			chain = append(chain, gate.RequireAuth)
		}
		if len(rt.Permissions) > 0 {
			chain = append(chain, gate.RequirePermissions(rt.Permissions...))
		}
		if len(rt.Roles) > 0 {
			chain = append(chain, gate.RequireRoles(rt.Roles...))
		}
		chain = append(chain, rt.Middlewares...)
		r.With(chain...).Method(rt.Method, rt.Pattern, rt.Handler)
	}
}
