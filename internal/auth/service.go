package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nhatdang2003/tms-backend/internal"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/nhatdang2003/tms-backend/internal/core/events"
)

// AccountRepository is the credential store as seen by the auth flows.
type AccountRepository interface {
	UserFinder
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

type ServiceConfig struct {
	BCryptCost       int
	PasswordResetURL string
}

// Service runs the login, refresh, logout and password flows.
type Service struct {
	accounts  AccountRepository
	tokens    *TokenService
	publisher events.Publisher
	metrics   *Metrics
	cfg       ServiceConfig
	logger    *slog.Logger
}

func NewService(accounts AccountRepository, tokens *TokenService, publisher events.Publisher, metrics *Metrics, cfg ServiceConfig, lg *slog.Logger) *Service {
	if lg == nil {
		lg = slog.Default()
	}
	return &Service{
		accounts:  accounts,
		tokens:    tokens,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    lg,
	}
}

func (s *Service) Login(ctx context.Context, dto LoginDTO, opts IssueOptions) (*LoginResponse, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.accounts.FindByEmail(ctx, dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if u == nil {
		s.logger.Warn("login failed: unknown email")
		s.metrics.LoginAttempt("invalid_credentials")
		return nil, internal.ErrInvalidCredentials
	}
	if err := VerifyPassword(u.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login failed: wrong password", "user_id", u.ID)
		s.metrics.LoginAttempt("invalid_credentials")
		return nil, internal.ErrInvalidCredentials
	}
	if u.Status != userDatamodel.StatusActive {
		s.logger.Warn("login refused for inactive user", "user_id", u.ID, "status", u.Status)
		s.metrics.LoginAttempt("inactive")
		return nil, internal.ErrUserInactive
	}

	subject := SubjectFromDataModel(u)
	pair, err := s.tokens.GenerateTokenPair(ctx, subject, opts)
	if err != nil {
		return nil, err
	}

	s.metrics.LoginAttempt("success")
	s.logger.Info("user logged in", "user_id", u.ID, "device", opts.DeviceInfo, "ip", opts.IPAddress)
	return &LoginResponse{TokenPair: *pair, User: subject.Summary()}, nil
}

// Refresh rotates a refresh token. The new pair keeps the original refresh expiry.
func (s *Service) Refresh(ctx context.Context, dto RefreshTokenDTO, opts IssueOptions) (*LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, _, err := s.tokens.VerifyRefreshToken(ctx, dto.RefreshToken)
	if err != nil {
		return nil, s.uniformTokenError("refresh", err)
	}
	if row.User == nil {
		return nil, s.uniformTokenError("refresh", internal.ErrTokenNotFound)
	}
	if row.User.Status != userDatamodel.StatusActive {
		s.logger.Warn("refresh refused for inactive user", "user_id", row.UserID, "status", row.User.Status)
		return nil, internal.ErrUserInactive
	}

	subject := SubjectFromDataModel(row.User)
	pair, err := s.tokens.GenerateTokenPairWithExistingExpiration(ctx, subject, row.ExpiresAt.Unix(), row, opts)
	if err != nil {
		return nil, s.uniformTokenError("refresh", err)
	}
	return &LoginResponse{TokenPair: *pair, User: subject.Summary()}, nil
}

// Logout revokes one refresh token. Unknown or already revoked tokens are not an error.
func (s *Service) Logout(ctx context.Context, dto LogoutDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	revoked, err := s.tokens.RevokeRefreshToken(ctx, dto.RefreshToken)
	if err != nil {
		s.logger.Error("logout failed to revoke token", "error", err)
		return nil
	}
	if !revoked {
		s.logger.Debug("logout with unknown or revoked token")
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	return s.tokens.RevokeAllUserTokens(ctx, userID)
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		s.logger.Warn("change password: wrong current password", "user_id", userID)
		return internal.ErrInvalidCurrentPassword
	}
	if dto.CurrentPassword == dto.NewPassword {
		return internal.ErrPasswordUnchanged
	}

	return s.setPassword(ctx, userID, dto.NewPassword, "change")
}

// ForgotPassword answers the same way whether or not the address is known.
func (s *Service) ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.accounts.FindByEmail(ctx, dto.Email)
	if err != nil {
		return internal.NewInternalError("failed to load user", err)
	}
	if u == nil || u.Status != userDatamodel.StatusActive {
		s.logger.Info("password reset requested for unknown or inactive account")
		return nil
	}

	subject := SubjectFromDataModel(u)
	token, expiresAt, err := s.tokens.SignPasswordResetToken(subject)
	if err != nil {
		return err
	}

	event := events.NewPasswordResetRequestedEvent(u.ID, u.Email, fullName(u), s.resetLink(token), expiresAt)
	if err := s.publisher.Publish(ctx, event); err != nil {
		return internal.NewInternalError("failed to queue password reset mail", err)
	}
	s.logger.Info("password reset requested", "user_id", u.ID)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	claims, err := s.tokens.VerifyPasswordResetToken(dto.ResetToken)
	if err != nil {
		return s.uniformTokenError("reset", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return s.uniformTokenError("reset", internal.ErrInvalidToken)
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}

	return s.setPassword(ctx, userID, dto.NewPassword, "reset")
}

func (s *Service) Profile(ctx context.Context, userID int64) (*ProfileResponse, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	subject := SubjectFromDataModel(u)
	perms := subject.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &ProfileResponse{
		UserSummary: subject.Summary(),
		Status:      subject.Status,
		Permissions: perms,
	}, nil
}

// setPassword stores the new hash and ends every session of the user.
func (s *Service) setPassword(ctx context.Context, userID int64, password, source string) error {
	hash, err := HashPassword(password, s.cfg.BCryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.accounts.UpdatePassword(ctx, userID, hash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	count, err := s.tokens.RevokeAllUserTokens(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("password updated", "user_id", userID, "source", source, "sessions_revoked", count)

	if err := s.publisher.Publish(ctx, events.NewPasswordChangedEvent(userID, source)); err != nil {
		s.logger.Warn("failed to publish password changed event", "user_id", userID, "error", err)
	}
	return nil
}

func (s *Service) loadUser(ctx context.Context, userID int64) (*userDatamodel.User, error) {
	u, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

// uniformTokenError hides which token check failed from the caller.
func (s *Service) uniformTokenError(flow string, err error) error {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		return err
	}
	switch appErr.Code {
	case internal.ErrCodeInvalidToken, internal.ErrCodeTokenExpired, internal.ErrCodeTokenRevoked, internal.ErrCodeTokenNotFound:
	default:
		return err
	}
	s.logger.Warn("token rejected", "flow", flow, "reason", appErr.Code)
	return internal.ErrUnauthenticated
}

func (s *Service) resetLink(token string) string {
	base := s.cfg.PasswordResetURL
	if base == "" {
		base = "/reset-password"
	}
	return fmt.Sprintf("%s?token=%s", base, url.QueryEscape(token))
}

func fullName(u *userDatamodel.User) string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}
