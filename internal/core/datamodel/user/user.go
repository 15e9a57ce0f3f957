package user

import (
	"time"

	organizationDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/organization"
	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
	"gorm.io/gorm"
)

const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusBlocked  = "BLOCKED"
)

type User struct {
	ID             int64                               `gorm:"primaryKey"`
	Email          string                              `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash   string                              `gorm:"column:password_hash;not null"`
	FirstName      string                              `gorm:"column:first_name"`
	LastName       string                              `gorm:"column:last_name"`
	PhoneNumber    string                              `gorm:"column:phone_number"`
	Status         string                              `gorm:"column:status;not null;default:ACTIVE"`
	RoleID         *int64                              `gorm:"column:role_id;index"`
	Role           *rbacDatamodel.Role                 `gorm:"foreignKey:RoleID"`
	OrganizationID *int64                              `gorm:"column:organization_id;index"`
	Organization   *organizationDatamodel.Organization `gorm:"foreignKey:OrganizationID"`
	CreatedAt      time.Time                           `gorm:"column:created_at"`
	UpdatedAt      time.Time                           `gorm:"column:updated_at"`
	DeletedAt      gorm.DeletedAt                      `gorm:"column:deleted_at;index"`
	DeletedBy      *int64                              `gorm:"column:deleted_by"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

func (u *User) OrganizationName() string {
	if u.Organization == nil {
		return ""
	}
	return u.Organization.Name
}
