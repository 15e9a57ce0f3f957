package permission

import (
	"strings"

	"github.com/nhatdang2003/tms-backend/internal/core/common/validation"
)

type CreatePermissionDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

func (d CreatePermissionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100).PermissionName()
	v.Field("description", d.Description).MaxLength(255)
	v.Field("resource", d.Resource).MaxLength(50)
	v.Field("action", d.Action).MaxLength(50)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Permission fills resource and action from the name when they are omitted.
func (d CreatePermissionDTO) Permission() Permission {
	name := strings.TrimSpace(d.Name)
	p := Permission{Description: d.Description}
	return Patch{
		Name:     &name,
		Resource: optional(d.Resource),
		Action:   optional(d.Action),
	}.Apply(p)
}

type UpdatePermissionDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Resource    *string `json:"resource"`
	Action      *string `json:"action"`
}

func (d UpdatePermissionDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(100).PermissionName()
	}
	v.Field("description", d.Description).MaxLength(255)
	v.Field("resource", d.Resource).MaxLength(50)
	v.Field("action", d.Action).MaxLength(50)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d UpdatePermissionDTO) Patch() Patch {
	p := Patch{Description: d.Description, Resource: d.Resource, Action: d.Action}
	if d.Name != nil {
		name := strings.TrimSpace(*d.Name)
		p.Name = &name
	}
	return p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
