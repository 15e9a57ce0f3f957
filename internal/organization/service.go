package organization

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nhatdang2003/tms-backend/internal"
	organizationDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/organization"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*organizationDatamodel.Organization, error)
	GetByID(ctx context.Context, id int64) (*organizationDatamodel.Organization, error)
	// NameTaken also sees soft-deleted rows, which still hold the unique name.
	NameTaken(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, o *organizationDatamodel.Organization) error
	Update(ctx context.Context, o *organizationDatamodel.Organization) error
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

func (s *Service) Create(ctx context.Context, dto CreateOrganizationDTO) (*Organization, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.Name)
	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}

	data := &organizationDatamodel.Organization{
		Name:        name,
		Description: dto.Description,
		Address:     dto.Address,
	}
	if err := s.repo.Create(ctx, data); err != nil {
		s.logger.Error("failed to create organization", "name", name, "error", err)
		return nil, internal.NewInternalError("failed to create organization", err)
	}
	s.logger.Info("organization created", "organization_id", data.ID, "name", name)
	return FromDataModel(data), nil
}

func (s *Service) List(ctx context.Context) ([]*Organization, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list organizations", "error", err)
		return nil, internal.NewInternalError("failed to list organizations", err)
	}
	out := make([]*Organization, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Organization, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load organization", err)
	}
	if row == nil {
		return nil, internal.ErrOrganizationNotFound
	}
	return FromDataModel(row), nil
}

// Update checks the name for duplicates only when it actually changes.
func (s *Service) Update(ctx context.Context, id int64, dto UpdateOrganizationDTO) (*Organization, error) {
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
		s.logger.Error("failed to update organization", "organization_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update organization", err)
	}
	return FromDataModel(data), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete organization", err)
	}
	s.logger.Info("organization deleted", "organization_id", id)
	return nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string) error {
	taken, err := s.repo.NameTaken(ctx, name)
	if err != nil {
		return internal.NewInternalError("failed to check organization name", err)
	}
	if taken {
		return internal.ErrOrganizationNameTaken
	}
	return nil
}
