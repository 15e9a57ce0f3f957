package permission

import (
	"context"
	"log/slog"

	"github.com/nhatdang2003/tms-backend/internal"
	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*rbacDatamodel.Permission, error)
	GetByID(ctx context.Context, id int64) (*rbacDatamodel.Permission, error)
	GetByName(ctx context.Context, name string) (*rbacDatamodel.Permission, error)
	FindByResourceAndAction(ctx context.Context, resource, action string) ([]*rbacDatamodel.Permission, error)
	Create(ctx context.Context, p *rbacDatamodel.Permission) error
	Update(ctx context.Context, p *rbacDatamodel.Permission) error
	// Delete also drops the permission from every role.
	Delete(ctx context.Context, id int64) error
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

func (s *Service) Create(ctx context.Context, dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	p := dto.Permission()
	if err := s.ensureNameFree(ctx, p.Name); err != nil {
		return nil, err
	}

	data := ToDataModel(&p)
	if err := s.repo.Create(ctx, data); err != nil {
		s.logger.Error("failed to create permission", "name", p.Name, "error", err)
		return nil, internal.NewInternalError("failed to create permission", err)
	}
	s.logger.Info("permission created", "permission_id", data.ID, "name", data.Name)
	return FromDataModel(data), nil
}

func (s *Service) List(ctx context.Context) ([]*Permission, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Permission, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permission", err)
	}
	if row == nil {
		return nil, internal.ErrPermissionNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := dto.Patch()
	if patch.RenamesFrom(current.Name) {
		if err := s.ensureNameFree(ctx, *patch.Name); err != nil {
			return nil, err
		}
	}

	updated := patch.Apply(*current)
	data := ToDataModel(&updated)
	if err := s.repo.Update(ctx, data); err != nil {
		s.logger.Error("failed to update permission", "permission_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update permission", err)
	}
	return FromDataModel(data), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete permission", err)
	}
	s.logger.Info("permission deleted", "permission_id", id)
	return nil
}

func (s *Service) FindByResourceAndAction(ctx context.Context, resource, action string) ([]*Permission, error) {
	rows, err := s.repo.FindByResourceAndAction(ctx, resource, action)
	if err != nil {
		return nil, internal.NewInternalError("failed to find permissions", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return internal.NewInternalError("failed to check permission name", err)
	}
	if existing != nil {
		return internal.ErrPermissionNameTaken
	}
	return nil
}

func fromDataModels(rows []*rbacDatamodel.Permission) []*Permission {
	out := make([]*Permission, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out
}
