package role

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nhatdang2003/tms-backend/internal"
	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*rbacDatamodel.Role, error)
	// GetByID and GetByName preload permissions and return nil, nil when absent.
	GetByID(ctx context.Context, id int64) (*rbacDatamodel.Role, error)
	GetByName(ctx context.Context, name string) (*rbacDatamodel.Role, error)
	Create(ctx context.Context, r *rbacDatamodel.Role) error
	Update(ctx context.Context, r *rbacDatamodel.Role) error
	// Delete detaches the role from its permissions and users.
	Delete(ctx context.Context, id int64) error
	FindPermissions(ctx context.Context, ids []int64) ([]rbacDatamodel.Permission, error)
	SetPermissions(ctx context.Context, r *rbacDatamodel.Role, perms []rbacDatamodel.Permission) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.Name)
	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}

	data := &rbacDatamodel.Role{Name: name, Description: dto.Description}
	if err := s.repo.Create(ctx, data); err != nil {
		s.logger.Error("failed to create role", "name", name, "error", err)
		return nil, internal.NewInternalError("failed to create role", err)
	}
	s.logger.Info("role created", "role_id", data.ID, "name", data.Name)
	return FromDataModel(data), nil
}

func (s *Service) List(ctx context.Context) ([]*Role, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	out := make([]*Role, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := dto.Patch()
	if patch.RenamesFrom(current.Name) {
		if err := s.ensureNameFree(ctx, *patch.Name); err != nil {
			return nil, err
		}
	}

	updated := patch.Apply(*FromDataModel(current))
	data := ToDataModel(&updated)
	if err := s.repo.Update(ctx, data); err != nil {
		s.logger.Error("failed to update role", "role_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update role", err)
	}
	data.Permissions = current.Permissions
	return FromDataModel(data), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete role", err)
	}
	s.logger.Info("role deleted", "role_id", id)
	return nil
}

// AssignPermissions replaces the role's permissions with exactly ids.
func (s *Service) AssignPermissions(ctx context.Context, id int64, dto PermissionIDsDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.findPermissions(ctx, dto.PermissionIDs)
	if err != nil {
		return nil, err
	}
	return s.setPermissions(ctx, current, perms)
}

// AddPermissions grants ids on top of what the role already has.
func (s *Service) AddPermissions(ctx context.Context, id int64, dto PermissionIDsDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	added, err := s.findPermissions(ctx, dto.PermissionIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(current.Permissions)+len(added))
	merged := make([]rbacDatamodel.Permission, 0, len(current.Permissions)+len(added))
	for _, p := range append(append([]rbacDatamodel.Permission{}, current.Permissions...), added...) {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}
	return s.setPermissions(ctx, current, merged)
}

// RemovePermissions drops ids from the role. Ids it does not hold are ignored.
func (s *Service) RemovePermissions(ctx context.Context, id int64, dto PermissionIDsDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	drop := make(map[int64]struct{}, len(dto.PermissionIDs))
	for _, pid := range dto.PermissionIDs {
		drop[pid] = struct{}{}
	}
	kept := make([]rbacDatamodel.Permission, 0, len(current.Permissions))
	for _, p := range current.Permissions {
		if _, ok := drop[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	return s.setPermissions(ctx, current, kept)
}

func (s *Service) GetRolePermissions(ctx context.Context, id int64) (*RolePermissionsResponse, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RolePermissionsResponse{RoleID: r.ID, Permissions: r.Permissions}, nil
}

// HasPermission reports whether name is granted directly to the role.
// The ADMIN bypass is not applied here.
func (s *Service) HasPermission(ctx context.Context, id int64, name string) (bool, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	for _, p := range r.Permissions {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) load(ctx context.Context, id int64) (*rbacDatamodel.Role, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if row == nil {
		return nil, internal.ErrRoleNotFound
	}
	return row, nil
}

// findPermissions fails with ErrPermissionNotFound unless every id exists.
func (s *Service) findPermissions(ctx context.Context, ids []int64) ([]rbacDatamodel.Permission, error) {
	perms, err := s.repo.FindPermissions(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	found := make(map[int64]struct{}, len(perms))
	for _, p := range perms {
		found[p.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			s.logger.Warn("unknown permission id", "permission_id", id)
			return nil, internal.ErrPermissionNotFound
		}
	}
	return perms, nil
}

func (s *Service) setPermissions(ctx context.Context, r *rbacDatamodel.Role, perms []rbacDatamodel.Permission) (*Role, error) {
	if err := s.repo.SetPermissions(ctx, r, perms); err != nil {
		s.logger.Error("failed to update role permissions", "role_id", r.ID, "error", err)
		return nil, internal.NewInternalError("failed to update role permissions", err)
	}
	s.logger.Info("role permissions updated", "role_id", r.ID, "count", len(perms))
	return s.Get(ctx, r.ID)
}

func (s *Service) ensureNameFree(ctx context.Context, name string) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return internal.NewInternalError("failed to check role name", err)
	}
	if existing != nil {
		return internal.ErrRoleNameTaken
	}
	return nil
}
