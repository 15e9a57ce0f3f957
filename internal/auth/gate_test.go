package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

var _ = ginkgo.Describe("Gate", func() {
	var (
		accounts *mockAccounts
		tokens   *TokenService
		resolver *PermissionResolver
		gate     *Gate
		router   chi.Router
	)

	ok := func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		if p == nil {
			_, _ = io.WriteString(w, "anonymous")
			return
		}
		_, _ = io.WriteString(w, p.Email)
	}

	tokenFor := func(id int64) string {
		u, err := accounts.FindByID(context.Background(), id)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		pair, err := tokens.GenerateTokenPair(context.Background(), SubjectFromDataModel(u), IssueOptions{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return pair.AccessToken
	}

	call := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		accounts = newMockAccounts()
		admin, technician, _ := testRoles()
		accounts.add(1, "admin@example.com", userDatamodel.StatusActive, admin)
		accounts.add(2, "tech@example.com", userDatamodel.StatusActive, technician)

		tokens = NewTokenService(testTokenConfig(), newMockTokenRepo(accounts), nil, nil, discardLogger())
		resolver = NewPermissionResolver(accounts, discardLogger())
		gate = NewGate(tokens, resolver, NewMetrics(prometheus.NewRegistry()), discardLogger())

		router = chi.NewRouter()
		router.With(gate.OptionalAuth).Get("/public", ok)
		router.With(gate.RequireAuth).Get("/me", ok)
		router.With(gate.RequireAuth, gate.RequirePermissions("tickets:read")).Get("/tickets", ok)
		router.With(gate.RequireAuth, gate.RequirePermissions("users:delete")).Delete("/users/{id}", ok)
		router.With(gate.RequireAuth, gate.RequireRoles(SupervisorRoleName)).Get("/reports", ok)
		router.With(gate.RequireAuth, RequireOwnerOrAdmin(NewOwnershipPolicy(resolver), "id")).Post("/users/{id}/revoke-sessions", ok)
	})

	ginkgo.Describe("authentication", func() {
		ginkgo.It("should reject a missing token with 401", func() {
			rec := call(http.MethodGet, "/me", "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should give expired and malformed tokens the same answer", func() {
			tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
			expired := tokenFor(2)
			tokens.now = time.Now

			expiredRec := call(http.MethodGet, "/me", expired)
			garbageRec := call(http.MethodGet, "/me", "not-a-jwt")

			gomega.Expect(expiredRec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(garbageRec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(expiredRec.Body.String()).To(gomega.Equal(garbageRec.Body.String()))
		})

		ginkgo.It("should attach the principal for valid tokens", func() {
			rec := call(http.MethodGet, "/me", tokenFor(2))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("tech@example.com"))
		})

		ginkgo.It("should keep honouring an access token issued before the user was blocked", func() {
			token := tokenFor(2)
			accounts.setStatus(2, userDatamodel.StatusBlocked)

			principal, err := gate.Authenticate(token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(principal.ID).To(gomega.Equal(int64(2)))

			rec := call(http.MethodGet, "/me", token)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("tech@example.com"))
		})

		ginkgo.It("should let anonymous callers through optional routes", func() {
			rec := call(http.MethodGet, "/public", "")
			gomega.Expect(rec.Body.String()).To(gomega.Equal("anonymous"))

			rec = call(http.MethodGet, "/public", "not-a-jwt")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("anonymous"))

			rec = call(http.MethodGet, "/public", tokenFor(1))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("admin@example.com"))
		})
	})

	ginkgo.Describe("authorization", func() {
		ginkgo.It("should allow holders of the permission", func() {
			gomega.Expect(call(http.MethodGet, "/tickets", tokenFor(2)).Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should answer 403 when a permission is missing", func() {
			gomega.Expect(call(http.MethodDelete, "/users/5", tokenFor(2)).Code).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should let ADMIN through permission and role checks", func() {
			gomega.Expect(call(http.MethodDelete, "/users/5", tokenFor(1)).Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(call(http.MethodGet, "/reports", tokenFor(1)).Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should refuse roles that are not listed", func() {
			gomega.Expect(call(http.MethodGet, "/reports", tokenFor(2)).Code).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should authenticate before loading permissions", func() {
			accounts.err = io.ErrUnexpectedEOF
			gomega.Expect(call(http.MethodGet, "/tickets", "").Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should let users act on their own records only", func() {
			gomega.Expect(call(http.MethodPost, "/users/2/revoke-sessions", tokenFor(2)).Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(call(http.MethodPost, "/users/1/revoke-sessions", tokenFor(2)).Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(call(http.MethodPost, "/users/2/revoke-sessions", tokenFor(1)).Code).To(gomega.Equal(http.StatusOK))
		})
	})
})
