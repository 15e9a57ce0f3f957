package token

import (
	"errors"
	"time"

	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
)

const (
	RevokeReasonLogout    = "User logout"
	RevokeReasonRevokeAll = "Admin revoked all sessions"
)

// LiveDeviceIndexDDL keeps at most one live row per user and device. It is a
// partial index, so gorm tags cannot express it portably.
const LiveDeviceIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS uq_refresh_tokens_live_device
    ON refresh_tokens (user_id, device_info)
    WHERE is_revoked = FALSE AND device_info IS NOT NULL AND device_info <> ''`

// ErrLiveSessionExists is returned by Create when the device already has a live row.
var ErrLiveSessionExists = errors.New("a live session already exists for this device")

type RefreshToken struct {
	ID            int64               `gorm:"primaryKey"`
	Token         string              `gorm:"column:token;type:text;not null;index"`
	UserID        int64               `gorm:"column:user_id;not null;index;index:idx_refresh_tokens_user_revoked,priority:1"`
	User          *userDatamodel.User `gorm:"foreignKey:UserID"`
	ExpiresAt     time.Time           `gorm:"column:expires_at;not null"`
	DeviceInfo    string              `gorm:"column:device_info"`
	IPAddress     string              `gorm:"column:ip_address"`
	IsRevoked     bool                `gorm:"column:is_revoked;not null;default:false;index:idx_refresh_tokens_user_revoked,priority:2"`
	RevokedAt     *time.Time          `gorm:"column:revoked_at"`
	RevokedReason string              `gorm:"column:revoked_reason"`
	CreatedAt     time.Time           `gorm:"column:created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
