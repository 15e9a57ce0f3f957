package postgres

import (
	"context"
	"errors"

	organizationDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/organization"
	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/nhatdang2003/tms-backend/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) List(ctx context.Context, f user.Filter) ([]*userDatamodel.User, error) {
	q := r.db.WithContext(ctx).Preload("Role").Preload("Organization")

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Role != "" {
		q = q.Where("role_id IN (?)", r.db.Model(&rbacDatamodel.Role{}).Select("id").Where("name = ?", f.Role))
	}
	if f.OrganizationID != 0 {
		q = q.Where("organization_id = ?", f.OrganizationID)
	}
	if f.OrganizationName != nil {
		q = q.Where("organization_id IN (?)", r.db.Model(&organizationDatamodel.Organization{}).Select("id").Where("name = ?", *f.OrganizationName))
	}

	var users []*userDatamodel.User
	err := q.Order("id ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Organization").
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&userDatamodel.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) RoleExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&rbacDatamodel.Role{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) OrganizationExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&organizationDatamodel.Organization{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error
}

// UpdateProfile writes every column except the password hash and the
// deletion markers.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{ID: u.ID}).
		Select("email", "first_name", "last_name", "phone_number", "status", "role_id", "organization_id", "updated_at").
		Updates(u).Error
}

func (r *UserRepository) SoftDelete(ctx context.Context, id, deletedBy int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&userDatamodel.User{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Delete(&userDatamodel.User{}, id).Error
	})
}
