package user

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/nhatdang2003/tms-backend/internal/core/common/validation"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
)

var statuses = []string{userDatamodel.StatusActive, userDatamodel.StatusInactive, userDatamodel.StatusBlocked}

type CreateUserDTO struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Password       string `json:"password"`
	PhoneNumber    string `json:"phone_number"`
	RoleID         *int64 `json:"role_id"`
	OrganizationID *int64 `json:"organization_id"`
}

func (d *CreateUserDTO) Normalize() {
	d.Email = strings.TrimSpace(d.Email)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
}

func (d CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Email()
	v.Field("first_name", d.FirstName).Required().MaxLength(100)
	v.Field("last_name", d.LastName).Required().MaxLength(100)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(100)
	v.Field("phone_number", d.PhoneNumber).Required().MaxLength(20)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateProfileDTO is what a user may change on their own account.
type UpdateProfileDTO struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
}

func (d UpdateProfileDTO) Validate() error {
	v := validation.NewValidator()
	d.fields(v)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d UpdateProfileDTO) fields(v *validation.ValidationBuilder) {
	if d.Email != nil {
		v.Field("email", strings.TrimSpace(*d.Email)).Required().MaxLength(255).Email()
	}
	if d.FirstName != nil {
		v.Field("first_name", *d.FirstName).Required().MaxLength(100)
	}
	if d.LastName != nil {
		v.Field("last_name", *d.LastName).Required().MaxLength(100)
	}
	v.Field("phone_number", d.PhoneNumber).MaxLength(20)
}

func (d UpdateProfileDTO) Patch() Patch {
	return Patch{
		Email:       trimmed(d.Email),
		FirstName:   trimmed(d.FirstName),
		LastName:    trimmed(d.LastName),
		PhoneNumber: trimmed(d.PhoneNumber),
	}
}

// UpdateUserDTO is the administrative update, which may also move the user
// between roles and organizations or change their status.
type UpdateUserDTO struct {
	UpdateProfileDTO
	RoleID         *int64  `json:"role_id"`
	OrganizationID *int64  `json:"organization_id"`
	Status         *string `json:"status"`
}

func (d UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	d.UpdateProfileDTO.fields(v)
	v.Field("status", d.Status).OneOf(statuses...)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d UpdateUserDTO) Patch() Patch {
	p := d.UpdateProfileDTO.Patch()
	p.RoleID = d.RoleID
	p.OrganizationID = d.OrganizationID
	p.Status = d.Status
	return p
}

type ListQuery struct {
	Status         string
	Role           string
	OrganizationID int64
}

func ParseListQuery(q url.Values) ListQuery {
	out := ListQuery{
		Status: q.Get("status"),
		Role:   q.Get("role"),
	}
	if raw := q.Get("organization_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			out.OrganizationID = id
		}
	}
	return out
}

func (q ListQuery) Validate() error {
	v := validation.NewValidator()
	v.Field("status", q.Status).OneOf(statuses...)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RoleResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

type RevokeSessionsResponse struct {
	UserID  int64 `json:"user_id"`
	Revoked int64 `json:"revoked"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
