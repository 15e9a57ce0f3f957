package organization

import (
	"strings"

	"github.com/nhatdang2003/tms-backend/internal/core/common/validation"
)

type CreateOrganizationDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

func (d CreateOrganizationDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("description", d.Description).MaxLength(1000)
	v.Field("address", d.Address).MaxLength(500)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateOrganizationDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
}

func (d UpdateOrganizationDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(255)
	}
	v.Field("description", d.Description).MaxLength(1000)
	v.Field("address", d.Address).MaxLength(500)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d UpdateOrganizationDTO) Patch() Patch {
	p := Patch{Description: d.Description, Address: d.Address}
	if d.Name != nil {
		name := strings.TrimSpace(*d.Name)
		p.Name = &name
	}
	return p
}
