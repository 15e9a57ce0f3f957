package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/transport"
	"github.com/nhatdang2003/tms-backend/pkg/logger"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO, opts IssueOptions) (*LoginResponse, error)
	Refresh(ctx context.Context, dto RefreshTokenDTO, opts IssueOptions) (*LoginResponse, error)
	Logout(ctx context.Context, dto LogoutDTO) error
	LogoutAll(ctx context.Context, userID int64) (int64, error)
	ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error
	ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error
	ResetPassword(ctx context.Context, dto ResetPasswordDTO) error
	Profile(ctx context.Context, userID int64) (*ProfileResponse, error)
}

// RateLimits holds the per-route limiters; nil entries leave a route unlimited.
type RateLimits struct {
	Login          func(http.Handler) http.Handler
	Refresh        func(http.Handler) http.Handler
	ForgotPassword func(http.Handler) http.Handler
	ResetPassword  func(http.Handler) http.Handler
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	limits  RateLimits
}

func NewHandler(svc ServiceAPI, limits RateLimits) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		limits:      limits,
	}
}

// Routes are relative to /api/v1/auth.
func (h *Handler) Routes() transport.RouteTable {
	return transport.RouteTable{
		{Method: http.MethodPost, Pattern: "/login", Access: transport.AccessPublic, Middlewares: transport.Middleware(h.limits.Login), Handler: h.Login},
		{Method: http.MethodPost, Pattern: "/refresh-token", Access: transport.AccessPublic, Middlewares: transport.Middleware(h.limits.Refresh), Handler: h.RefreshToken},
		{Method: http.MethodPost, Pattern: "/forgot-password", Access: transport.AccessPublic, Middlewares: transport.Middleware(h.limits.ForgotPassword), Handler: h.ForgotPassword},
		{Method: http.MethodPost, Pattern: "/reset-password", Access: transport.AccessPublic, Middlewares: transport.Middleware(h.limits.ResetPassword), Handler: h.ResetPassword},
		{Method: http.MethodPost, Pattern: "/logout", Access: transport.AccessAuthenticated, Handler: h.Logout},
		{Method: http.MethodPost, Pattern: "/logout-all", Access: transport.AccessAuthenticated, Handler: h.LogoutAll},
		{Method: http.MethodPost, Pattern: "/change-password", Access: transport.AccessAuthenticated, Handler: h.ChangePassword},
		{Method: http.MethodGet, Pattern: "/profile", Access: transport.AccessAuthenticated, Handler: h.Profile},
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	resp, err := h.Service.Login(r.Context(), dto, issueOptions(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	resp, err := h.Service.Refresh(r.Context(), dto, issueOptions(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var dto LogoutDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.Logout(r.Context(), dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	count, err := h.Service.LogoutAll(r.Context(), principal.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: fmt.Sprintf("All refresh tokens revoked (%d tokens)", count),
	})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var dto ChangePasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.ChangePassword(r.Context(), principal.ID, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "Password changed successfully. You will need to log in again with your new password.",
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	profile, err := h.Service.Profile(r.Context(), principal.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var dto ForgotPasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.ForgotPassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "If the address belongs to an account, a password reset link has been sent to it.",
	})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.ResetPassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Password has been reset successfully."})
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return nil, false
	}
	return principal, true
}

func issueOptions(r *http.Request) IssueOptions {
	return IssueOptions{
		DeviceInfo: r.UserAgent(),
		IPAddress:  transport.ClientIP(r),
	}
}
