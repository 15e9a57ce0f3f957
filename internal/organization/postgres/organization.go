package postgres

import (
	"context"
	"errors"

	organizationDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/organization"
	"github.com/nhatdang2003/tms-backend/internal/organization"
	"gorm.io/gorm"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) organization.RepositoryAPI {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) List(ctx context.Context) ([]*organizationDatamodel.Organization, error) {
	var orgs []*organizationDatamodel.Organization
	err := r.db.WithContext(ctx).Order("id ASC").Find(&orgs).Error
	return orgs, err
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*organizationDatamodel.Organization, error) {
	var org organizationDatamodel.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) NameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&organizationDatamodel.Organization{}).
		Where("name = ?", name).
		Count(&count).Error
	return count > 0, err
}

func (r *OrganizationRepository) Create(ctx context.Context, org *organizationDatamodel.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *OrganizationRepository) Update(ctx context.Context, org *organizationDatamodel.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

func (r *OrganizationRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&organizationDatamodel.Organization{}, id).Error
}
