package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RealIP rewrites RemoteAddr to the client address a trusted proxy reports.
// Requests from any other peer keep their socket address, so forwarding
// headers cannot move a client into a fresh rate-limit bucket.
func RealIP(trusted []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := forwardedClient(r, trusted); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient walks X-Forwarded-For from the right and returns the first
// hop that is not a trusted proxy. Hops left of it are client supplied.
func forwardedClient(r *http.Request, trusted []*net.IPNet) string {
	peer := net.ParseIP(hostOnly(r.RemoteAddr))
	if peer == nil || !containsIP(trusted, peer) {
		return ""
	}

	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(strings.Join(values, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				return ""
			}
			if !containsIP(trusted, ip) {
				return ip.String()
			}
		}
		return ""
	}

	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func containsIP(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
