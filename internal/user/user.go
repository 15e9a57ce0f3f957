package user

import (
	"time"

	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
)

// User is the public view of an account. The password hash never leaves the
// datamodel.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PhoneNumber    string    `json:"phone_number"`
	Status         string    `json:"status"`
	RoleID         *int64    `json:"role_id,omitempty"`
	Role           string    `json:"role,omitempty"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	Organization   string    `json:"organization,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Patch holds the fields an update may set. Nil means unchanged.
type Patch struct {
	Email          *string
	FirstName      *string
	LastName       *string
	PhoneNumber    *string
	Status         *string
	RoleID         *int64
	OrganizationID *int64
}

func (pt Patch) Apply(u User) User {
	if pt.Email != nil {
		u.Email = *pt.Email
	}
	if pt.FirstName != nil {
		u.FirstName = *pt.FirstName
	}
	if pt.LastName != nil {
		u.LastName = *pt.LastName
	}
	if pt.PhoneNumber != nil {
		u.PhoneNumber = *pt.PhoneNumber
	}
	if pt.Status != nil {
		u.Status = *pt.Status
	}
	if pt.RoleID != nil {
		id := *pt.RoleID
		u.RoleID = &id
	}
	if pt.OrganizationID != nil {
		id := *pt.OrganizationID
		u.OrganizationID = &id
	}
	return u
}

func (pt Patch) ChangesEmail(current string) bool {
	return pt.Email != nil && *pt.Email != current
}

func (pt Patch) ChangesRole(current *int64) bool {
	return pt.RoleID != nil && (current == nil || *current != *pt.RoleID)
}

func (pt Patch) ChangesOrganization(current *int64) bool {
	return pt.OrganizationID != nil && (current == nil || *current != *pt.OrganizationID)
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		PhoneNumber:    u.PhoneNumber,
		Status:         u.Status,
		RoleID:         u.RoleID,
		Role:           u.RoleName(),
		OrganizationID: u.OrganizationID,
		Organization:   u.OrganizationName(),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// ToDataModel copies the profile columns. The caller sets PasswordHash.
func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		PhoneNumber:    u.PhoneNumber,
		Status:         u.Status,
		RoleID:         u.RoleID,
		OrganizationID: u.OrganizationID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
