package organization

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nhatdang2003/tms-backend/internal/auth"
	"github.com/nhatdang2003/tms-backend/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateOrganizationDTO) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	Get(ctx context.Context, id int64) (*Organization, error)
	Update(ctx context.Context, id int64, dto UpdateOrganizationDTO) (*Organization, error)
	Delete(ctx context.Context, id int64) error
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

// Routes are relative to /api/v1/organizations.
func (h *Handler) Routes() transport.RouteTable {
	return transport.RouteTable{
		{Method: http.MethodPost, Pattern: "/", Access: transport.AccessAuthenticated, Permissions: auth.CanCreate("organizations"), Handler: h.Create},
		{Method: http.MethodGet, Pattern: "/", Access: transport.AccessAuthenticated, Permissions: auth.CanRead("organizations"), Handler: h.List},
		{Method: http.MethodGet, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanRead("organizations"), Handler: h.Get},
		{Method: http.MethodPatch, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanUpdate("organizations"), Handler: h.Update},
		{Method: http.MethodDelete, Pattern: "/{id}", Access: transport.AccessAuthenticated, Permissions: auth.CanDelete("organizations"), Handler: h.Delete},
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateOrganizationDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	org, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, org)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, orgs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	org, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateOrganizationDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	org, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, org)
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
