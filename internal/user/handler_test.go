package user_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/auth"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/nhatdang2003/tms-backend/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type noUsers struct{}

func (noUsers) FindByID(context.Context, int64) (*userDatamodel.User, error) { return nil, nil }

type stubService struct {
	listed    user.ListQuery
	deleted   [2]int64
	fetched   int64
	getErr    error
	createErr error
}

func (s *stubService) Create(_ context.Context, dto user.CreateUserDTO) (*user.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &user.User{ID: 10, Email: dto.Email}, nil
}

func (s *stubService) List(_ context.Context, _ *auth.Principal, q user.ListQuery) ([]*user.User, error) {
	s.listed = q
	return []*user.User{}, nil
}

func (s *stubService) Get(_ context.Context, id int64) (*user.User, error) {
	s.fetched = id
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &user.User{ID: id}, nil
}

func (s *stubService) UpdateProfile(_ context.Context, id int64, _ user.UpdateProfileDTO) (*user.User, error) {
	return &user.User{ID: id}, nil
}

func (s *stubService) Update(_ context.Context, id int64, _ user.UpdateUserDTO) (*user.User, error) {
	return &user.User{ID: id}, nil
}

func (s *stubService) Delete(_ context.Context, id, deletedBy int64) error {
	s.deleted = [2]int64{id, deletedBy}
	return nil
}

func (s *stubService) GetRole(_ context.Context, id int64) (*user.RoleResponse, error) {
	return &user.RoleResponse{UserID: id, Role: auth.TechnicianRoleName}, nil
}

func (s *stubService) RevokeSessions(_ context.Context, id int64) (*user.RevokeSessionsResponse, error) {
	return &user.RevokeSessionsResponse{UserID: id, Revoked: 1}, nil
}

var _ = Describe("User Handler", func() {
	var (
		svc       *stubService
		router    *chi.Mux
		principal *auth.Principal
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc = &stubService{}
		principal = &auth.Principal{ID: 7, Email: "tech@example.com", Role: auth.TechnicianRoleName}

		ownership := auth.NewOwnershipPolicy(auth.NewPermissionResolver(noUsers{}, lg))
		h := user.NewHandler(svc, ownership, lg)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if principal != nil {
					r = r.WithContext(auth.WithPrincipal(r.Context(), principal))
				}
				next.ServeHTTP(w, r)
			})
		})
		for _, rt := range h.Routes() {
			router.With(rt.Middlewares...).Method(rt.Method, rt.Pattern, rt.Handler)
		}
	})

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("should parse list filters from the query string", func() {
		rec := serve(http.MethodGet, "/?status=ACTIVE&role=TECHNICIAN&organization_id=3", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(svc.listed).To(Equal(user.ListQuery{Status: "ACTIVE", Role: "TECHNICIAN", OrganizationID: 3}))
	})

	It("should create a user and answer 201", func() {
		rec := serve(http.MethodPost, "/", `{"email":"new@example.com"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))
	})

	It("should map a conflict to 409", func() {
		svc.createErr = internal.ErrEmailTaken
		rec := serve(http.MethodPost, "/", `{"email":"taken@example.com"}`)
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should reject a non-numeric id", func() {
		rec := serve(http.MethodGet, "/abc", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should map a missing user to 404", func() {
		svc.getErr = internal.ErrUserNotFound
		rec := serve(http.MethodGet, "/99", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error.Code).To(Equal("USER_NOT_FOUND"))
	})

	It("should record the caller as the deleting user", func() {
		rec := serve(http.MethodDelete, "/12", "")
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(svc.deleted).To(Equal([2]int64{12, 7}))
	})

	It("should serve the caller's own profile", func() {
		rec := serve(http.MethodGet, "/profile", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(svc.fetched).To(Equal(int64(7)))
	})

	It("should answer 401 on profile without a principal", func() {
		principal = nil
		rec := serve(http.MethodGet, "/profile", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	Describe("GET /{id}/role", func() {
		It("should let a user read their own role", func() {
			rec := serve(http.MethodGet, "/7/role", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should refuse another user's role to a non-admin", func() {
			rec := serve(http.MethodGet, "/8/role", "")
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("should let an admin read any role", func() {
			principal.Role = auth.AdminRoleName
			rec := serve(http.MethodGet, "/8/role", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})
