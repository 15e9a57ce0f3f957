package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/auth"
	"github.com/nhatdang2003/tms-backend/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateUserDTO) (*User, error)
	List(ctx context.Context, caller *auth.Principal, q ListQuery) ([]*User, error)
	Get(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, dto UpdateProfileDTO) (*User, error)
	Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, id, deletedBy int64) error
	GetRole(ctx context.Context, id int64) (*RoleResponse, error)
	RevokeSessions(ctx context.Context, id int64) (*RevokeSessionsResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	ownership *auth.OwnershipPolicy
}

func NewHandler(svc ServiceAPI, ownership *auth.OwnershipPolicy, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
		ownership:   ownership,
	}
}

// Routes are relative to /api/v1/users.
func (h *Handler) Routes() transport.RouteTable {
	return transport.RouteTable{
		{Method: http.MethodPost, Pattern: "/", Access: transport.AccessAuthenticated, Permissions: auth.CanCreate("users"), Handler: h.Create},
		{Method: http.MethodGet, Pattern: "/", Access: transport.AccessAuthenticated, Permissions: auth.CanRead("users"), Handler: h.List},
		{Method: http.MethodGet, Pattern: "/profile", Access: transport.AccessAuthenticated, Handler: h.GetProfile},
		{Method: http.MethodPatch, Pattern: "/profile", Access: transport.AccessAuthenticated, Handler: h.UpdateProfile},
		{Method: http.MethodGet, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanRead("users"), Handler: h.Get},
		{Method: http.MethodPatch, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanUpdate("users"), Handler: h.Update},
		{Method: http.MethodDelete, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanDelete("users"), Handler: h.Delete},
		{
			Method:      http.MethodGet,
			Pattern:     "/{id}/role",
			Access:      transport.AccessAuthenticated,
			Middlewares: transport.Middleware(auth.RequireOwnerOrAdmin(h.ownership, "id")),
			Handler:     h.GetRole,
		},
		{Method: http.MethodPost, Pattern: "/{id}/revoke-sessions", Access: transport.AccessAuthenticated, Permissions: auth.CanUpdate("users"), Handler: h.RevokeSessions},
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.PrincipalFromContext(r.Context())
	list, err := h.Service.List(r.Context(), caller, ParseListQuery(r.URL.Query()))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	u, err := h.Service.Get(r.Context(), caller.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var dto UpdateProfileDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.Service.UpdateProfile(r.Context(), caller.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id, caller.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	resp, err := h.Service.GetRole(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	resp, err := h.Service.RevokeSessions(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return nil, false
	}
	return p, true
}
