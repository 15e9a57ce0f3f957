package transport

import "net/http"

// Access says how much authentication a route needs.
type Access int

const (
	AccessPublic Access = iota
	// AccessOptional attaches a principal when the caller sends a valid token.
	AccessOptional
	AccessAuthenticated
)

func (a Access) String() string {
	switch a {
	case AccessOptional:
		return "optional"
	case AccessAuthenticated:
		return "authenticated"
	default:
		return "public"
	}
}

// Route declares one endpoint together with what a caller must hold to reach it.
// Permissions are all required; Roles admit any one of them.
type Route struct {
	Method      string
	Pattern     string
	Access      Access
	Permissions []string
	Roles       []string
	// Middlewares run after authorization, closest to the handler.
	Middlewares []func(http.Handler) http.Handler
	Handler     http.HandlerFunc
}

type RouteTable []Route

// Middleware is a nil-safe helper for optional route middlewares.
func Middleware(mw func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	if mw == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{mw}
}
