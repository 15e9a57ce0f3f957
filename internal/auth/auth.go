package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
)

const (
	// AdminRoleName is the reserved role whose holders pass every check.
	AdminRoleName = "ADMIN"
	// WildcardPermission grants every permission to the roles that hold it.
	WildcardPermission = "admin:*"

	SupervisorRoleName = "SUPERVISOR"
	TechnicianRoleName = "TECHNICIAN"

	TokenTypeRefresh       = "refresh"
	TokenTypePasswordReset = "password_reset"
)

// Principal is the authenticated caller, built from access token claims only.
type Principal struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
}

// Subject is a user together with the role and permissions loaded from the store.
type Subject struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	Status       string
	Role         string
	Organization string
	Permissions  []string
}

func (s *Subject) IsActive() bool {
	return s.Status == userDatamodel.StatusActive
}

func (s *Subject) HasRole() bool {
	return s.Role != ""
}

func (s *Subject) Principal() *Principal {
	return &Principal{
		ID:           s.ID,
		Email:        s.Email,
		Role:         s.Role,
		Organization: s.Organization,
	}
}

func (s *Subject) Summary() UserSummary {
	return UserSummary{
		ID:           s.ID,
		Email:        s.Email,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Role:         s.Role,
		Organization: s.Organization,
	}
}

func SubjectFromDataModel(u *userDatamodel.User) *Subject {
	s := &Subject{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Status:       u.Status,
		Role:         u.RoleName(),
		Organization: u.OrganizationName(),
	}
	if u.Role != nil {
		s.Permissions = make([]string, 0, len(u.Role.Permissions))
		for _, p := range u.Role.Permissions {
			s.Permissions = append(s.Permissions, p.Name)
		}
	}
	return s
}

// Claims is the payload shared by access, refresh and password reset tokens.
// Access tokens leave TokenType empty.
type Claims struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
	TokenType    string `json:"tokenType,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

func (c *Claims) Principal() (*Principal, error) {
	id, err := c.UserID()
	if err != nil {
		return nil, err
	}
	return &Principal{
		ID:           id,
		Email:        c.Email,
		Role:         c.Role,
		Organization: c.Organization,
	}, nil
}

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// IssueOptions describes the client a refresh token is bound to.
type IssueOptions struct {
	DeviceInfo string
	IPAddress  string
}

type UserSummary struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
}
