package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nhatdang2003/tms-backend/internal"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
)

// UserFinder loads a user with role, role permissions and organization.
// It returns nil, nil for unknown or deleted users.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*userDatamodel.User, error)
}

// PermissionResolver answers permission questions from the store. Nothing is
// cached, so role changes apply to the very next request.
type PermissionResolver struct {
	users  UserFinder
	logger *slog.Logger
}

func NewPermissionResolver(users UserFinder, lg *slog.Logger) *PermissionResolver {
	if lg == nil {
		lg = slog.Default()
	}
	return &PermissionResolver{users: users, logger: lg}
}

// Check succeeds when the principal holds every required permission.
func (r *PermissionResolver) Check(ctx context.Context, principal *Principal, required []string) error {
	if len(required) == 0 {
		return nil
	}
	if principal == nil {
		r.logger.Warn("permission check without an authenticated principal")
		return internal.ErrNotAuthenticated
	}

	subject, err := r.loadSubject(ctx, principal.ID)
	if err != nil {
		return err
	}
	if subject == nil {
		r.logger.Warn("permission check for unknown user", "user_id", principal.ID)
		return internal.ErrNotAuthenticated
	}
	if !subject.HasRole() {
		r.logger.Warn("user has no role assigned", "user_id", subject.ID)
		return internal.ErrNoRoleAssigned
	}

	set := NewPermissionSet(subject.Role, subject.Permissions)
	r.logger.Debug("checking permissions",
		"user_id", subject.ID,
		"role", subject.Role,
		"required", strings.Join(required, ","))

	if missing := set.Missing(required); len(missing) > 0 {
		r.logger.Warn("user is missing permissions",
			"user_id", subject.ID,
			"role", subject.Role,
			"missing", strings.Join(missing, ","))
		return internal.ErrInsufficientPermissions
	}
	return nil
}

// CheckRoles succeeds when the principal's role is one of roles. ADMIN always passes.
func (r *PermissionResolver) CheckRoles(principal *Principal, roles []string) error {
	if len(roles) == 0 {
		return nil
	}
	if principal == nil {
		return internal.ErrNotAuthenticated
	}
	if principal.Role == "" {
		return internal.ErrNoRoleAssigned
	}
	if principal.Role == AdminRoleName {
		return nil
	}
	for _, role := range roles {
		if principal.Role == role {
			return nil
		}
	}
	r.logger.Warn("role not allowed",
		"user_id", principal.ID,
		"role", principal.Role,
		"allowed", strings.Join(roles, ","))
	return internal.ErrInsufficientPermissions
}

func (r *PermissionResolver) HasPermission(ctx context.Context, userID int64, name string) (bool, error) {
	set, ok, err := r.permissionSet(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return set.Has(name), nil
}

func (r *PermissionResolver) HasAllPermissions(ctx context.Context, userID int64, names []string) (bool, error) {
	set, ok, err := r.permissionSet(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return set.HasAll(names), nil
}

func (r *PermissionResolver) HasAnyPermission(ctx context.Context, userID int64, names []string) (bool, error) {
	set, ok, err := r.permissionSet(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return set.HasAny(names), nil
}

// GetUserPermissions lists the permission names granted by the user's role.
func (r *PermissionResolver) GetUserPermissions(ctx context.Context, userID int64) ([]string, error) {
	subject, err := r.loadSubject(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subject == nil || !subject.HasRole() {
		return []string{}, nil
	}
	return subject.Permissions, nil
}

func (r *PermissionResolver) CanAccessResource(ctx context.Context, userID int64, resource, action string) (bool, error) {
	return r.HasPermission(ctx, userID, PermissionName(resource, action))
}

func (r *PermissionResolver) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	set, ok, err := r.permissionSet(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return set.IsAdmin(), nil
}

func (r *PermissionResolver) CanManageResource(ctx context.Context, userID int64, resource string) (bool, error) {
	set, ok, err := r.permissionSet(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return set.CanManageResource(resource), nil
}

func (r *PermissionResolver) FilterByPermissions(ctx context.Context, userID int64, candidates []string) ([]string, error) {
	set, ok, err := r.permissionSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	return set.FilterByPermissions(candidates), nil
}

// permissionSet reports ok=false for unknown users and users without a role.
func (r *PermissionResolver) permissionSet(ctx context.Context, userID int64) (PermissionSet, bool, error) {
	subject, err := r.loadSubject(ctx, userID)
	if err != nil {
		return PermissionSet{}, false, err
	}
	if subject == nil || !subject.HasRole() {
		return PermissionSet{}, false, nil
	}
	return NewPermissionSet(subject.Role, subject.Permissions), true, nil
}

func (r *PermissionResolver) loadSubject(ctx context.Context, userID int64) (*Subject, error) {
	u, err := r.users.FindByID(ctx, userID)
	if err != nil {
		r.logger.Error("failed to load user permissions", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to load user permissions", err)
	}
	if u == nil {
		return nil, nil
	}
	return SubjectFromDataModel(u), nil
}
