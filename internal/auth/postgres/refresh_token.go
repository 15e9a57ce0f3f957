package postgres

import (
	"context"
	"errors"
	"time"

	tokenDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/token"
	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) FindLiveByUserAndDevice(ctx context.Context, userID int64, deviceInfo string) (*tokenDatamodel.RefreshToken, error) {
	var row tokenDatamodel.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND device_info = ? AND is_revoked = ?", userID, deviceInfo, false).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindByToken returns the row with its user graph, revoked or not.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*tokenDatamodel.RefreshToken, error) {
	var row tokenDatamodel.RefreshToken
	err := r.db.WithContext(ctx).
		Preload("User.Role.Permissions").
		Preload("User.Organization").
		Where("token = ?", token).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Create inserts a new session. The DB must be opened with TranslateError so
// a clash on the live device index surfaces as ErrLiveSessionExists.
func (r *RefreshTokenRepository) Create(ctx context.Context, row *tokenDatamodel.RefreshToken) error {
	err := r.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return tokenDatamodel.ErrLiveSessionExists
	}
	return err
}

// ReplaceToken is a single conditional UPDATE, so concurrent rotations of the
// same row cannot both succeed.
func (r *RefreshTokenRepository) ReplaceToken(ctx context.Context, id int64, expected, token string, expiresAt time.Time, ipAddress string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&tokenDatamodel.RefreshToken{}).
		Where("id = ? AND token = ? AND is_revoked = ?", id, expected, false).
		Updates(map[string]interface{}{
			"token":      token,
			"expires_at": expiresAt,
			"ip_address": ipAddress,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&tokenDatamodel.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Updates(revocation(reason, at))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, reason string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&tokenDatamodel.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Updates(revocation(reason, at))
	return res.RowsAffected, res.Error
}

func revocation(reason string, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"is_revoked":     true,
		"revoked_at":     at,
		"revoked_reason": reason,
		"updated_at":     time.Now(),
	}
}
