package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePasswordResetRequested = "auth.password_reset_requested"
	EventTypeSessionsRevoked        = "auth.sessions_revoked"
	EventTypePasswordChanged        = "auth.password_changed"
)

type PasswordResetRequestedEvent struct {
	BaseEvent
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	ResetLink string    `json:"reset_link"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewPasswordResetRequestedEvent(userID int64, email, fullName, resetLink string, expiresAt time.Time) *PasswordResetRequestedEvent {
	return &PasswordResetRequestedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePasswordResetRequested,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"email":      email,
				"expires_at": expiresAt,
			},
		},
		UserID:    userID,
		Email:     email,
		FullName:  fullName,
		ResetLink: resetLink,
		ExpiresAt: expiresAt,
	}
}

type SessionsRevokedEvent struct {
	BaseEvent
	UserID    int64  `json:"user_id"`
	RevokedBy int64  `json:"revoked_by,omitempty"`
	Count     int64  `json:"count"`
	Reason    string `json:"reason"`
}

func NewSessionsRevokedEvent(userID, revokedBy, count int64, reason string) *SessionsRevokedEvent {
	return &SessionsRevokedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionsRevoked,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"revoked_by": revokedBy,
				"count":      count,
				"reason":     reason,
			},
		},
		UserID:    userID,
		RevokedBy: revokedBy,
		Count:     count,
		Reason:    reason,
	}
}

type PasswordChangedEvent struct {
	BaseEvent
	UserID int64  `json:"user_id"`
	Source string `json:"source"`
}

// NewPasswordChangedEvent records a password change; source is "change" or "reset".
func NewPasswordChangedEvent(userID int64, source string) *PasswordChangedEvent {
	return &PasswordChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePasswordChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"source":  source,
			},
		},
		UserID: userID,
		Source: source,
	}
}
