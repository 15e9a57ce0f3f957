package organization

import (
	"time"

	organizationDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/organization"
)

type Organization struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Patch lists the fields an update may change; nil fields are left alone.
type Patch struct {
	Name        *string
	Description *string
	Address     *string
}

// Apply returns o with the patch applied.
func (p Patch) Apply(o Organization) Organization {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	if p.Address != nil {
		o.Address = *p.Address
	}
	return o
}

// RenamesFrom reports whether the patch sets a name different from current.
func (p Patch) RenamesFrom(current string) bool {
	return p.Name != nil && *p.Name != current
}

func FromDataModel(o *organizationDatamodel.Organization) *Organization {
	return &Organization{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		Address:     o.Address,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func ToDataModel(o *Organization) *organizationDatamodel.Organization {
	return &organizationDatamodel.Organization{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		Address:     o.Address,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
