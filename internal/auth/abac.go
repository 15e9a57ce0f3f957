package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/transport"
)

// OwnershipPolicy is a small attribute-based check: callers may act on records
// they own, admins on any record.
type OwnershipPolicy struct {
	resolver *PermissionResolver
}

func NewOwnershipPolicy(resolver *PermissionResolver) *OwnershipPolicy {
	return &OwnershipPolicy{resolver: resolver}
}

func (p *OwnershipPolicy) Allow(ctx context.Context, principal *Principal, ownerID int64) error {
	if principal == nil {
		return internal.ErrNotAuthenticated
	}
	if principal.ID == ownerID {
		return nil
	}
	if principal.Role == AdminRoleName {
		return nil
	}
	admin, err := p.resolver.IsAdmin(ctx, principal.ID)
	if err != nil {
		return err
	}
	if admin {
		return nil
	}
	p.resolver.logger.Warn("ownership check failed", "user_id", principal.ID, "owner_id", ownerID)
	return internal.ErrInsufficientPermissions
}

// RequireOwnerOrAdmin reads the owning user id from the URL parameter param.
func RequireOwnerOrAdmin(policy *OwnershipPolicy, param string) func(next http.Handler) http.Handler {
	h := transport.NewBaseHandler(policy.resolver.logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				h.WriteAppError(w, internal.ErrUnauthenticated)
				return
			}
			ownerID, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil {
				h.WriteAppError(w, internal.NewValidationError("invalid "+param, internal.ErrCodeValidationFailed))
				return
			}
			if err := policy.Allow(r.Context(), principal, ownerID); err != nil {
				h.HandleServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
