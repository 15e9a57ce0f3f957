package user

import (
	"context"
	"log/slog"

	"github.com/nhatdang2003/tms-backend/internal"
	"github.com/nhatdang2003/tms-backend/internal/auth"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
)

// Filter narrows List. A non-nil OrganizationName restricts results to that
// organization, and an empty name matches nothing.
type Filter struct {
	Status           string
	Role             string
	OrganizationID   int64
	OrganizationName *string
}

type RepositoryAPI interface {
	List(ctx context.Context, f Filter) ([]*userDatamodel.User, error)
	// GetByID preloads role and organization and returns nil, nil when absent.
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	// EmailTaken includes soft-deleted accounts.
	EmailTaken(ctx context.Context, email string) (bool, error)
	RoleExists(ctx context.Context, id int64) (bool, error)
	OrganizationExists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	UpdateProfile(ctx context.Context, u *userDatamodel.User) error
	SoftDelete(ctx context.Context, id, deletedBy int64) error
}

type SessionRevoker interface {
	RevokeAllUserTokens(ctx context.Context, userID int64) (int64, error)
}

type Service struct {
	repo       RepositoryAPI
	sessions   SessionRevoker
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, sessions SessionRevoker, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, dto.Email); err != nil {
		return nil, err
	}
	if err := s.ensureReferences(ctx, dto.RoleID, dto.OrganizationID); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	data := &userDatamodel.User{
		Email:          dto.Email,
		PasswordHash:   hash,
		FirstName:      dto.FirstName,
		LastName:       dto.LastName,
		PhoneNumber:    dto.PhoneNumber,
		Status:         userDatamodel.StatusActive,
		RoleID:         dto.RoleID,
		OrganizationID: dto.OrganizationID,
	}
	if err := s.repo.Create(ctx, data); err != nil {
		s.logger.Error("failed to create user", "email", dto.Email, "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}
	s.logger.Info("user created", "user_id", data.ID)
	return s.Get(ctx, data.ID)
}

// List applies the caller's scope: supervisors only see their own
// organization.
func (s *Service) List(ctx context.Context, caller *auth.Principal, q ListQuery) ([]*User, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	f := Filter{
		Status:         q.Status,
		Role:           q.Role,
		OrganizationID: q.OrganizationID,
	}
	if caller != nil && caller.Role == auth.SupervisorRoleName {
		org := caller.Organization
		f.OrganizationName = &org
	}

	rows, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, internal.NewInternalError("failed to list users", err)
	}
	out := make([]*User, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, dto.Patch())
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, dto.Patch())
}

func (s *Service) Delete(ctx context.Context, id, deletedBy int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, deletedBy); err != nil {
		return internal.NewInternalError("failed to delete user", err)
	}
	s.logger.Info("user deleted", "user_id", id, "deleted_by", deletedBy)
	return nil
}

func (s *Service) GetRole(ctx context.Context, id int64) (*RoleResponse, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RoleResponse{UserID: u.ID, Role: u.Role}, nil
}

// RevokeSessions signs the user out of every device.
func (s *Service) RevokeSessions(ctx context.Context, id int64) (*RevokeSessionsResponse, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	n, err := s.sessions.RevokeAllUserTokens(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RevokeSessionsResponse{UserID: id, Revoked: n}, nil
}

func (s *Service) apply(ctx context.Context, id int64, patch Patch) (*User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.ChangesEmail(current.Email) {
		if err := s.ensureEmailFree(ctx, *patch.Email); err != nil {
			return nil, err
		}
	}
	var roleID, orgID *int64
	if patch.ChangesRole(current.RoleID) {
		roleID = patch.RoleID
	}
	if patch.ChangesOrganization(current.OrganizationID) {
		orgID = patch.OrganizationID
	}
	if err := s.ensureReferences(ctx, roleID, orgID); err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)
	if err := s.repo.UpdateProfile(ctx, ToDataModel(&updated)); err != nil {
		s.logger.Error("failed to update user", "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	if patch.Status != nil && *patch.Status != current.Status {
		s.logger.Info("user status changed", "user_id", id, "from", current.Status, "to", *patch.Status)
	}
	return s.Get(ctx, id)
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := s.repo.EmailTaken(ctx, email)
	if err != nil {
		return internal.NewInternalError("failed to check email", err)
	}
	if taken {
		s.logger.Warn("email already registered", "email", email)
		return internal.ErrEmailTaken
	}
	return nil
}

func (s *Service) ensureReferences(ctx context.Context, roleID, orgID *int64) error {
	if roleID != nil {
		ok, err := s.repo.RoleExists(ctx, *roleID)
		if err != nil {
			return internal.NewInternalError("failed to check role", err)
		}
		if !ok {
			return internal.ErrRoleNotFound
		}
	}
	if orgID != nil {
		ok, err := s.repo.OrganizationExists(ctx, *orgID)
		if err != nil {
			return internal.NewInternalError("failed to check organization", err)
		}
		if !ok {
			return internal.ErrOrganizationNotFound
		}
	}
	return nil
}
