package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nhatdang2003/tms-backend/internal"
	tokenDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/token"
	"github.com/nhatdang2003/tms-backend/internal/core/events"
	"github.com/nhatdang2003/tms-backend/pkg/logger"
)

// RefreshTokenRepository persists refresh token rows. Lookups return nil, nil
// when nothing matches.
type RefreshTokenRepository interface {
	FindLiveByUserAndDevice(ctx context.Context, userID int64, deviceInfo string) (*tokenDatamodel.RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*tokenDatamodel.RefreshToken, error)
	Create(ctx context.Context, row *tokenDatamodel.RefreshToken) error
	// ReplaceToken swaps the token of a live row only if it still holds expected.
	ReplaceToken(ctx context.Context, id int64, expected, token string, expiresAt time.Time, ipAddress string) (bool, error)
	Revoke(ctx context.Context, token, reason string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64, reason string, at time.Time) (int64, error)
}

type TokenConfig struct {
	AccessSecret     []byte
	RefreshSecret    []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	PasswordResetTTL time.Duration
}

// NewTokenConfig resolves lifetimes from the security section. Unusable values
// fall back to the defaults with a warning; boot validation reports them first.
func NewTokenConfig(sec internal.SecurityConfig, lg *slog.Logger) TokenConfig {
	if lg == nil {
		lg = slog.Default()
	}
	resolve := func(name, value string, fallback time.Duration) time.Duration {
		d, err := internal.ResolveTTL(value, fallback)
		if err != nil {
			lg.Warn("invalid token lifetime, using default", "setting", name, "value", value, "default", fallback.String(), "error", err)
		}
		return d
	}
	return TokenConfig{
		AccessSecret:     []byte(sec.AccessTokenSecret),
		RefreshSecret:    []byte(sec.RefreshTokenSecret),
		AccessTTL:        resolve("access_token_ttl", sec.AccessTokenTTL, internal.DefaultAccessTokenTTL),
		RefreshTTL:       resolve("refresh_token_ttl", sec.RefreshTokenTTL, internal.DefaultRefreshTokenTTL),
		PasswordResetTTL: resolve("password_reset_ttl", sec.PasswordResetTTL, internal.DefaultPasswordResetTTL),
	}
}

type TokenService struct {
	cfg       TokenConfig
	repo      RefreshTokenRepository
	publisher events.Publisher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewTokenService(cfg TokenConfig, repo RefreshTokenRepository, publisher events.Publisher, metrics *Metrics, lg *slog.Logger) *TokenService {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &TokenService{
		cfg:       cfg,
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    lg,
		now:       time.Now,
	}
}

// clock is truncated to whole seconds so stored expiries equal the JWT exp claim.
func (s *TokenService) clock() time.Time {
	return s.now().Truncate(time.Second)
}

// GenerateTokenPair signs a new pair and stores the refresh token. A live row
// for the same device is overwritten instead of adding another session.
func (s *TokenService) GenerateTokenPair(ctx context.Context, subject *Subject, opts IssueOptions) (*TokenPair, error) {
	now := s.clock()
	refreshExpiresAt := now.Add(s.cfg.RefreshTTL)

	pair, err := s.signPair(subject, now, refreshExpiresAt)
	if err != nil {
		return nil, err
	}

	if opts.DeviceInfo != "" {
		replaced, err := s.replaceDeviceSession(ctx, subject.ID, opts, pair.RefreshToken, refreshExpiresAt)
		if err != nil {
			return nil, err
		}
		if replaced {
			return pair, nil
		}
	}

	row := &tokenDatamodel.RefreshToken{
		Token:      pair.RefreshToken,
		UserID:     subject.ID,
		ExpiresAt:  refreshExpiresAt,
		DeviceInfo: opts.DeviceInfo,
		IPAddress:  opts.IPAddress,
	}
	err = s.repo.Create(ctx, row)
	if errors.Is(err, tokenDatamodel.ErrLiveSessionExists) && opts.DeviceInfo != "" {
		// a concurrent login from the same device inserted first; take over its row
		replaced, rerr := s.replaceDeviceSession(ctx, subject.ID, opts, pair.RefreshToken, refreshExpiresAt)
		if rerr != nil {
			return nil, rerr
		}
		if replaced {
			return pair, nil
		}
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to store refresh token", err)
	}
	return pair, nil
}

func (s *TokenService) replaceDeviceSession(ctx context.Context, userID int64, opts IssueOptions, token string, expiresAt time.Time) (bool, error) {
	// a concurrent login from the same device may rotate the row between the
	// lookup and the update, so look again a couple of times
	for attempt := 0; attempt < 3; attempt++ {
		existing, err := s.repo.FindLiveByUserAndDevice(ctx, userID, opts.DeviceInfo)
		if err != nil {
			return false, internal.NewInternalError("failed to look up device session", err)
		}
		if existing == nil {
			return false, nil
		}
		ok, err := s.repo.ReplaceToken(ctx, existing.ID, existing.Token, token, expiresAt, opts.IPAddress)
		if err != nil {
			return false, internal.NewInternalError("failed to update device session", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// GenerateTokenPairWithExistingExpiration rotates the presented refresh token
// while keeping its original expiry. Only one of several concurrent rotations
// of the same row succeeds; the others get ErrTokenRevoked.
func (s *TokenService) GenerateTokenPairWithExistingExpiration(ctx context.Context, subject *Subject, refreshExpiresAt int64, current *tokenDatamodel.RefreshToken, opts IssueOptions) (*TokenPair, error) {
	now := s.clock()
	expiresAt := time.Unix(refreshExpiresAt, 0)
	if !expiresAt.After(now) {
		s.reject("expired")
		return nil, internal.ErrTokenExpired
	}

	pair, err := s.signPair(subject, now, expiresAt)
	if err != nil {
		return nil, err
	}

	if current == nil {
		row := &tokenDatamodel.RefreshToken{
			Token:      pair.RefreshToken,
			UserID:     subject.ID,
			ExpiresAt:  expiresAt,
			DeviceInfo: opts.DeviceInfo,
			IPAddress:  opts.IPAddress,
		}
		if err := s.repo.Create(ctx, row); err != nil {
			return nil, internal.NewInternalError("failed to store refresh token", err)
		}
		return pair, nil
	}

	ip := opts.IPAddress
	if ip == "" {
		ip = current.IPAddress
	}
	ok, err := s.repo.ReplaceToken(ctx, current.ID, current.Token, pair.RefreshToken, expiresAt, ip)
	if err != nil {
		return nil, internal.NewInternalError("failed to rotate refresh token", err)
	}
	if !ok {
		s.logger.Warn("refresh token already rotated or revoked", "user_id", subject.ID, "token_id", current.ID)
		s.reject("revoked")
		return nil, internal.ErrTokenRevoked
	}
	return pair, nil
}

// VerifyRefreshToken checks the signature and type of a refresh token and
// returns its stored row, preloaded with the user, role and organization.
func (s *TokenService) VerifyRefreshToken(ctx context.Context, token string) (*tokenDatamodel.RefreshToken, *Claims, error) {
	claims, err := s.parse(token, s.cfg.RefreshSecret)
	if err != nil {
		return nil, nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		s.reject("wrong_type")
		return nil, nil, internal.ErrInvalidToken
	}

	row, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to load refresh token", err)
	}
	if row == nil {
		s.reject("not_found")
		return nil, nil, internal.ErrTokenNotFound
	}
	if row.IsRevoked {
		s.reject("revoked")
		return nil, nil, internal.ErrTokenRevoked
	}
	if uid, err := claims.UserID(); err != nil || uid != row.UserID {
		s.reject("subject_mismatch")
		return nil, nil, internal.ErrInvalidToken
	}
	return row, claims, nil
}

// VerifyAccessToken validates an access token without touching the store.
func (s *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	claims, err := s.parse(token, s.cfg.AccessSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "" {
		s.reject("wrong_type")
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) RevokeRefreshToken(ctx context.Context, token string) (bool, error) {
	ok, err := s.repo.Revoke(ctx, token, tokenDatamodel.RevokeReasonLogout, s.clock())
	if err != nil {
		return false, internal.NewInternalError("failed to revoke refresh token", err)
	}
	return ok, nil
}

// RevokeAllUserTokens revokes every live session of userID and reports how many
// rows changed. The caller found in ctx is recorded as the actor.
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID int64) (int64, error) {
	count, err := s.repo.RevokeAllForUser(ctx, userID, tokenDatamodel.RevokeReasonRevokeAll, s.clock())
	if err != nil {
		return 0, internal.NewInternalError("failed to revoke sessions", err)
	}
	if count == 0 {
		return 0, nil
	}

	actor, _ := internal.UserIDFromContext(ctx)
	s.logger.Info("sessions revoked", "user_id", userID, "revoked_by", actor, "count", count)
	if s.publisher != nil {
		event := events.NewSessionsRevokedEvent(userID, actor, count, tokenDatamodel.RevokeReasonRevokeAll)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish sessions revoked event", "user_id", userID, "error", err)
		}
	}
	return count, nil
}

// SignPasswordResetToken returns a short lived token that only the reset
// endpoint accepts.
func (s *TokenService) SignPasswordResetToken(subject *Subject) (string, time.Time, error) {
	now := s.clock()
	expiresAt := now.Add(s.cfg.PasswordResetTTL)
	token, err := s.sign(subject, TokenTypePasswordReset, now, expiresAt, s.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	s.metrics.TokenIssued(TokenTypePasswordReset)
	return token, expiresAt, nil
}

func (s *TokenService) VerifyPasswordResetToken(token string) (*Claims, error) {
	claims, err := s.parse(token, s.cfg.AccessSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypePasswordReset {
		s.reject("wrong_type")
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) signPair(subject *Subject, now, refreshExpiresAt time.Time) (*TokenPair, error) {
	accessExpiresAt := now.Add(s.cfg.AccessTTL)
	access, err := s.sign(subject, "", now, accessExpiresAt, s.cfg.AccessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(subject, TokenTypeRefresh, now, refreshExpiresAt, s.cfg.RefreshSecret)
	if err != nil {
		return nil, err
	}
	s.metrics.TokenIssued("access")
	s.metrics.TokenIssued(TokenTypeRefresh)
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func (s *TokenService) sign(subject *Subject, tokenType string, issuedAt, expiresAt time.Time, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", internal.NewInternalError("token secret is not configured", nil)
	}
	if subject == nil {
		return "", internal.NewInternalError("cannot sign a token without a subject", nil)
	}

	claims := &Claims{
		Email:        subject.Email,
		Role:         subject.Role,
		Organization: subject.Organization,
		TokenType:    tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", internal.NewInternalError("failed to sign token", err)
	}
	return signed, nil
}

func (s *TokenService) parse(token string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, internal.NewInternalError("token secret is not configured", nil)
	}
	if token == "" {
		s.reject("missing")
		return nil, internal.ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.reject("expired")
			return nil, internal.ErrTokenExpired.WithCause(err)
		}
		s.reject("invalid")
		return nil, internal.ErrInvalidToken.WithCause(err)
	}
	return claims, nil
}

func (s *TokenService) reject(reason string) {
	s.metrics.TokenRejected(reason)
}
