package postgres

import (
	"context"
	"errors"

	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
	"github.com/nhatdang2003/tms-backend/internal/permission"
	"gorm.io/gorm"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.RepositoryAPI {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) List(ctx context.Context) ([]*rbacDatamodel.Permission, error) {
	var perms []*rbacDatamodel.Permission
	err := r.db.WithContext(ctx).Order("name ASC").Find(&perms).Error
	return perms, err
}

func (r *PermissionRepository) GetByID(ctx context.Context, id int64) (*rbacDatamodel.Permission, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*rbacDatamodel.Permission, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *PermissionRepository) FindByResourceAndAction(ctx context.Context, resource, action string) ([]*rbacDatamodel.Permission, error) {
	var perms []*rbacDatamodel.Permission
	err := r.db.WithContext(ctx).
		Where("resource = ? AND action = ?", resource, action).
		Order("name ASC").
		Find(&perms).Error
	return perms, err
}

func (r *PermissionRepository) Create(ctx context.Context, p *rbacDatamodel.Permission) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PermissionRepository) Update(ctx context.Context, p *rbacDatamodel.Permission) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rbacDatamodel.Permission{}, id).Error
	})
}

func (r *PermissionRepository) first(ctx context.Context, query string, args ...interface{}) (*rbacDatamodel.Permission, error) {
	var p rbacDatamodel.Permission
	err := r.db.WithContext(ctx).Where(query, args...).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
