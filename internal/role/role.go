package role

import (
	"time"

	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
	"github.com/nhatdang2003/tms-backend/internal/permission"
)

type Role struct {
	ID          int64                    `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Permissions []*permission.Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// PermissionNames lists the names of the permissions granted directly to r.
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

type Patch struct {
	Name        *string
	Description *string
}

func (pt Patch) Apply(r Role) Role {
	if pt.Name != nil {
		r.Name = *pt.Name
	}
	if pt.Description != nil {
		r.Description = *pt.Description
	}
	return r
}

func (pt Patch) RenamesFrom(current string) bool {
	return pt.Name != nil && *pt.Name != current
}

func FromDataModel(r *rbacDatamodel.Role) *Role {
	out := &Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Permissions) > 0 {
		out.Permissions = make([]*permission.Permission, 0, len(r.Permissions))
		for i := range r.Permissions {
			out.Permissions = append(out.Permissions, permission.FromDataModel(&r.Permissions[i]))
		}
	}
	return out
}

// ToDataModel leaves permissions out; they are written through the
// association methods only.
func ToDataModel(r *Role) *rbacDatamodel.Role {
	return &rbacDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
