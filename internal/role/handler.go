package role

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/nhatdang2003/tms-backend/internal/auth"
	"github.com/nhatdang2003/tms-backend/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Get(ctx context.Context, id int64) (*Role, error)
	Update(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error)
	Delete(ctx context.Context, id int64) error
	AssignPermissions(ctx context.Context, id int64, dto PermissionIDsDTO) (*Role, error)
	AddPermissions(ctx context.Context, id int64, dto PermissionIDsDTO) (*Role, error)
	RemovePermissions(ctx context.Context, id int64, dto PermissionIDsDTO) (*Role, error)
	GetRolePermissions(ctx context.Context, id int64) (*RolePermissionsResponse, error)
	HasPermission(ctx context.Context, id int64, name string) (bool, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
	}
}

// Routes are relative to /api/v1/roles.
func (h *Handler) Routes() transport.RouteTable {
	read := auth.CanRead("roles")
	update := auth.CanUpdate("roles")
	return transport.RouteTable{
		{Method: http.MethodPost, Pattern: "/", Access: transport.AccessAuthenticated, Permissions: auth.CanCreate("roles"), Handler: h.Create},
		{Method: http.MethodGet, Pattern: "/", Access: transport.AccessAuthenticated, Permissions: read, Handler: h.List},
		{Method: http.MethodGet, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: read, Handler: h.Get},
		{Method: http.MethodPatch, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: update, Handler: h.Update},
		{Method: http.MethodDelete, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanDelete("roles"), Handler: h.Delete},
		{Method: http.MethodGet, Pattern: "/{id}/permissions", Access: transport.AccessAuthenticated, Permissions: read, Handler: h.GetPermissions},
		{Method: http.MethodPut, Pattern: "/{id}/permissions", Access: transport.AccessAuthenticated, Permissions: update, Handler: h.AssignPermissions},
		{Method: http.MethodPost, Pattern: "/{id}/permissions/add", Access: transport.AccessAuthenticated, Permissions: update, Handler: h.AddPermissions},
		{Method: http.MethodPost, Pattern: "/{id}/permissions/remove", Access: transport.AccessAuthenticated, Permissions: update, Handler: h.RemovePermissions},
		{Method: http.MethodGet, Pattern: "/{id}/permissions/check/{permissionName}", Access: transport.AccessAuthenticated, Permissions: read, Handler: h.CheckPermission},
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	role, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, role)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateRoleDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	role, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	resp, err := h.Service.GetRolePermissions(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var dto PermissionIDsDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	role, err := h.Service.AssignPermissions(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) AddPermissions(w http.ResponseWriter, r *http.Request) {
	h.changePermissions(w, r, "added", h.Service.AddPermissions)
}

func (h *Handler) RemovePermissions(w http.ResponseWriter, r *http.Request) {
	h.changePermissions(w, r, "removed", h.Service.RemovePermissions)
}

func (h *Handler) changePermissions(w http.ResponseWriter, r *http.Request, verb string,
	change func(context.Context, int64, PermissionIDsDTO) (*Role, error)) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var dto PermissionIDsDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	role, err := change(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionChangeResponse{
		Message: fmt.Sprintf("%d permissions %s for role %s", len(dto.PermissionIDs), verb, role.Name),
		Role: RoleSummary{
			ID:              role.ID,
			Name:            role.Name,
			PermissionCount: len(role.Permissions),
		},
	})
}

func (h *Handler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	name := chi.URLParam(r, "permissionName")
	has, err := h.Service.HasPermission(r.Context(), id, name)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionCheckResponse{
		RoleID:         id,
		PermissionName: name,
		HasPermission:  has,
	})
}
