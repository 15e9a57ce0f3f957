package permission

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/nhatdang2003/tms-backend/internal/auth"
	"github.com/nhatdang2003/tms-backend/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreatePermissionDTO) (*Permission, error)
	List(ctx context.Context) ([]*Permission, error)
	Get(ctx context.Context, id int64) (*Permission, error)
	Update(ctx context.Context, id int64, dto UpdatePermissionDTO) (*Permission, error)
	Delete(ctx context.Context, id int64) error
	FindByResourceAndAction(ctx context.Context, resource, action string) ([]*Permission, error)
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

// Routes are relative to /api/v1/permissions.
func (h *Handler) Routes() transport.RouteTable {
	read := auth.CanRead("permissions")
	return transport.RouteTable{
		{Method: http.MethodPost, Pattern: "/", Access: transport.AccessAuthenticated, Permissions: auth.CanCreate("permissions"), Handler: h.Create},
		{Method: http.MethodGet, Pattern: "/", Access: transport.AccessAuthenticated, Permissions: read, Handler: h.List},
		{Method: http.MethodGet, Pattern: "/resource/{resource}/action/{action}", Access: transport.AccessAuthenticated, Permissions: read, Handler: h.FindByResourceAndAction},
		{Method: http.MethodGet, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: read, Handler: h.Get},
		{Method: http.MethodPatch, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanUpdate("permissions"), Handler: h.Update},
		{Method: http.MethodDelete, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanDelete("permissions"), Handler: h.Delete},
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	p, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, p)
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
	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdatePermissionDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	p, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
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

func (h *Handler) FindByResourceAndAction(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.FindByResourceAndAction(r.Context(), chi.URLParam(r, "resource"), chi.URLParam(r, "action"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, list)
}
