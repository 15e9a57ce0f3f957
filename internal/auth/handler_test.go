package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/nhatdang2003/tms-backend/internal/ratelimit"
	"github.com/nhatdang2003/tms-backend/internal/transport"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

type errorBody struct {
	Error struct {
		Type string `json:"type"`
		Code string `json:"code"`
	} `json:"error"`
}

var _ = ginkgo.Describe("Auth Handler", func() {
	var (
		accounts  *mockAccounts
		tokenRepo *mockTokenRepo
		router    *chi.Mux
	)

	mount := func(h *Handler, gate *Gate) *chi.Mux {
		r := chi.NewRouter()
		for _, rt := range h.Routes() {
			chain := append([]func(http.Handler) http.Handler{}, rt.Middlewares...)
			if rt.Access == transport.AccessAuthenticated {
				chain = append([]func(http.Handler) http.Handler{gate.RequireAuth}, chain...)
			}
			r.With(chain...).Method(rt.Method, rt.Pattern, rt.Handler)
		}
		return r
	}

	do := func(method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			gomega.Expect(json.NewEncoder(&buf).Encode(body)).To(gomega.Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "ginkgo-client")
		req.RemoteAddr = "192.0.2.10:40000"
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decodeError := func(rec *httptest.ResponseRecorder) errorBody {
		var body errorBody
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		return body
	}

	login := func() LoginResponse {
		rec := do(http.MethodPost, "/login", LoginDTO{Email: "tech@example.com", Password: testPassword}, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var resp LoginResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		return resp
	}

	ginkgo.BeforeEach(func() {
		accounts = newMockAccounts()
		tokenRepo = newMockTokenRepo(accounts)
		publisher := &recordingPublisher{}
		tokens := NewTokenService(testTokenConfig(), tokenRepo, publisher, nil, discardLogger())
		service := NewService(accounts, tokens, publisher, nil, ServiceConfig{BCryptCost: bcrypt.MinCost}, discardLogger())
		gate := NewGate(tokens, NewPermissionResolver(accounts, discardLogger()), nil, discardLogger())

		limiter, err := ratelimit.NewLocalLimiter(ratelimit.Rule{Name: ratelimit.RuleLogin, Limit: 3, Window: time.Minute}, 100)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		resetLimiter, err := ratelimit.NewLocalLimiter(ratelimit.Rule{Name: ratelimit.RuleResetPassword, Limit: 2, Window: time.Minute}, 100)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		h := NewHandler(service, RateLimits{
			Login:         ratelimit.Middleware(limiter, ratelimit.ByClientIP, discardLogger()),
			ResetPassword: ratelimit.Middleware(resetLimiter, ratelimit.ByClientIP, discardLogger()),
		})
		router = mount(h, gate)

		_, technician, _ := testRoles()
		accounts.add(1, "tech@example.com", userDatamodel.StatusActive, technician)
	})

	ginkgo.Describe("POST /login", func() {
		ginkgo.It("should bind the session to the user agent and client ip", func() {
			resp := login()
			gomega.Expect(resp.AccessToken).NotTo(gomega.BeEmpty())
			gomega.Expect(resp.User.Email).To(gomega.Equal("tech@example.com"))

			live := tokenRepo.live(1)
			gomega.Expect(live).To(gomega.HaveLen(1))
			gomega.Expect(live[0].DeviceInfo).To(gomega.Equal("ginkgo-client"))
			gomega.Expect(live[0].IPAddress).To(gomega.Equal("192.0.2.10"))
		})

		ginkgo.It("should answer 401 for a wrong password", func() {
			rec := do(http.MethodPost, "/login", LoginDTO{Email: "tech@example.com", Password: "Wrong!Pass1"}, "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(rec).Error.Code).To(gomega.Equal("INVALID_CREDENTIALS"))
		})

		ginkgo.It("should answer 400 for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString("{"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should answer 429 once the client exceeds the login limit", func() {
			for i := 0; i < 3; i++ {
				do(http.MethodPost, "/login", LoginDTO{Email: "tech@example.com", Password: "Wrong!Pass1"}, "")
			}
			rec := do(http.MethodPost, "/login", LoginDTO{Email: "tech@example.com", Password: testPassword}, "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusTooManyRequests))
			gomega.Expect(rec.Header().Get("Retry-After")).NotTo(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("POST /refresh-token", func() {
		ginkgo.It("should rotate a valid token", func() {
			first := login()
			rec := do(http.MethodPost, "/refresh-token", RefreshTokenDTO{RefreshToken: first.RefreshToken}, "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var next LoginResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &next)).To(gomega.Succeed())
			gomega.Expect(next.RefreshToken).NotTo(gomega.Equal(first.RefreshToken))
			gomega.Expect(next.RefreshExpiresAt.Unix()).To(gomega.Equal(first.RefreshExpiresAt.Unix()))
		})

		ginkgo.It("should hide why a token was rejected", func() {
			rec := do(http.MethodPost, "/refresh-token", RefreshTokenDTO{RefreshToken: "not-a-jwt"}, "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(rec).Error.Code).To(gomega.Equal("UNAUTHENTICATED"))
		})
	})

	ginkgo.Describe("POST /reset-password", func() {
		ginkgo.It("should throttle repeated reset attempts from one client", func() {
			dto := ResetPasswordDTO{ResetToken: "guessed-token", NewPassword: "N3w!Password"}
			for i := 0; i < 2; i++ {
				rec := do(http.MethodPost, "/reset-password", dto, "")
				gomega.Expect(rec.Code).NotTo(gomega.Equal(http.StatusTooManyRequests))
			}
			rec := do(http.MethodPost, "/reset-password", dto, "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusTooManyRequests))
		})
	})

	ginkgo.Describe("authenticated routes", func() {
		ginkgo.It("should reject a missing token", func() {
			rec := do(http.MethodGet, "/profile", nil, "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(rec).Error.Code).To(gomega.Equal("UNAUTHENTICATED"))
		})

		ginkgo.It("should return the profile with effective permissions", func() {
			resp := login()
			rec := do(http.MethodGet, "/profile", nil, resp.AccessToken)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var profile ProfileResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &profile)).To(gomega.Succeed())
			gomega.Expect(profile.Permissions).To(gomega.ConsistOf("tickets:read", "tickets:update"))
			gomega.Expect(profile.Status).To(gomega.Equal(userDatamodel.StatusActive))
		})

		ginkgo.It("should revoke every session on logout-all", func() {
			resp := login()
			rec := do(http.MethodPost, "/logout-all", nil, resp.AccessToken)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(tokenRepo.live(1)).To(gomega.BeEmpty())
		})

		ginkgo.It("should succeed on logout with an unknown token", func() {
			resp := login()
			rec := do(http.MethodPost, "/logout", LogoutDTO{RefreshToken: "unknown"}, resp.AccessToken)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(tokenRepo.live(1)).To(gomega.HaveLen(1))
		})
	})
})
