package postgres

import (
	"context"
	"errors"

	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/nhatdang2003/tms-backend/internal/role"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) List(ctx context.Context) ([]*rbacDatamodel.Role, error) {
	var roles []*rbacDatamodel.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*rbacDatamodel.Role, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*rbacDatamodel.Role, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *RoleRepository) Create(ctx context.Context, role *rbacDatamodel.Role) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(role).Error
}

func (r *RoleRepository) Update(ctx context.Context, role *rbacDatamodel.Role) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(role).Error
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Model(&userDatamodel.User{}).
			Where("role_id = ?", id).
			Update("role_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&rbacDatamodel.Role{}, id).Error
	})
}

func (r *RoleRepository) FindPermissions(ctx context.Context, ids []int64) ([]rbacDatamodel.Permission, error) {
	var perms []rbacDatamodel.Permission
	if len(ids) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}

func (r *RoleRepository) SetPermissions(ctx context.Context, role *rbacDatamodel.Role, perms []rbacDatamodel.Permission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if len(perms) == 0 {
			return nil
		}
		links := make([]rbacDatamodel.RolePermission, 0, len(perms))
		for _, p := range perms {
			links = append(links, rbacDatamodel.RolePermission{RoleID: role.ID, PermissionID: p.ID})
		}
		return tx.Create(&links).Error
	})
}

func (r *RoleRepository) first(ctx context.Context, query string, args ...interface{}) (*rbacDatamodel.Role, error) {
	var role rbacDatamodel.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Where(query, args...).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}
