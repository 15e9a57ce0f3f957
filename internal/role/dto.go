package role

import (
	"strings"

	"github.com/nhatdang2003/tms-backend/internal/core/common/validation"
	"github.com/nhatdang2003/tms-backend/internal/permission"
)

type CreateRoleDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d CreateRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(50)
	v.Field("description", d.Description).MaxLength(255)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateRoleDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (d UpdateRoleDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(50)
	}
	v.Field("description", d.Description).MaxLength(255)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d UpdateRoleDTO) Patch() Patch {
	p := Patch{Description: d.Description}
	if d.Name != nil {
		name := strings.TrimSpace(*d.Name)
		p.Name = &name
	}
	return p
}

type PermissionIDsDTO struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (d PermissionIDsDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("permission_ids", d.PermissionIDs).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RolePermissionsResponse struct {
	RoleID      int64                    `json:"role_id"`
	Permissions []*permission.Permission `json:"permissions"`
}

type RoleSummary struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	PermissionCount int    `json:"permission_count"`
}

type PermissionChangeResponse struct {
	Message string      `json:"message"`
	Role    RoleSummary `json:"role"`
}

type PermissionCheckResponse struct {
	RoleID         int64  `json:"role_id"`
	PermissionName string `json:"permission_name"`
	HasPermission  bool   `json:"has_permission"`
}
