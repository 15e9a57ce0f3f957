package permission

import (
	"time"

	"github.com/nhatdang2003/tms-backend/internal/auth"
	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
)

type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Patch struct {
	Name        *string
	Description *string
	Resource    *string
	Action      *string
}

// Apply returns p with the patch applied. A new name without an explicit
// resource or action also moves those to the parts of the name.
func (pt Patch) Apply(p Permission) Permission {
	if pt.Name != nil {
		p.Name = *pt.Name
		if resource, action, ok := auth.SplitPermissionName(p.Name); ok {
			if pt.Resource == nil {
				p.Resource = resource
			}
			if pt.Action == nil {
				p.Action = action
			}
		}
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Resource != nil {
		p.Resource = *pt.Resource
	}
	if pt.Action != nil {
		p.Action = *pt.Action
	}
	return p
}

func (pt Patch) RenamesFrom(current string) bool {
	return pt.Name != nil && *pt.Name != current
}

func FromDataModel(p *rbacDatamodel.Permission) *Permission {
	return &Permission{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToDataModel(p *Permission) *rbacDatamodel.Permission {
	return &rbacDatamodel.Permission{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
